package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 1984},
		Broker: BrokerConfig{
			Workers:          4,
			ReadBufferSize:   4096,
			ReadBufferGrowth: 1024,
			CommandBuffer:    1024,
			RearmBuffer:      1024,
			MaxEvents:        128,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Admin:   AdminConfig{Host: "127.0.0.1", Port: 1985},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "empty host",
			mutate:  func(c *Config) { c.Server.Host = "" },
			wantErr: "server.host cannot be empty",
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.Broker.Workers = 0 },
			wantErr: "broker.workers must be at least 1",
		},
		{
			name:    "too many workers",
			mutate:  func(c *Config) { c.Broker.Workers = 5000 },
			wantErr: "broker.workers cannot exceed 1024",
		},
		{
			name:    "zero read buffer",
			mutate:  func(c *Config) { c.Broker.ReadBufferSize = 0 },
			wantErr: "broker.read_buffer_size",
		},
		{
			name:    "zero growth",
			mutate:  func(c *Config) { c.Broker.ReadBufferGrowth = 0 },
			wantErr: "broker.read_buffer_growth",
		},
		{
			name:    "zero max events",
			mutate:  func(c *Config) { c.Broker.MaxEvents = 0 },
			wantErr: "broker.max_events",
		},
		{
			name:    "bad level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format must be console or json",
		},
		{
			name: "disabled admin is not checked",
			mutate: func(c *Config) {
				c.Admin.Port = 0
			},
		},
		{
			name: "admin port clash",
			mutate: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.Port = 1984
			},
			wantErr: "must be different",
		},
		{
			name: "admin port invalid",
			mutate: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.Port = -1
			},
			wantErr: "admin.port must be between 1 and 65535",
		},
		{
			name: "admin host empty",
			mutate: func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.Host = ""
			},
			wantErr: "admin.host cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := Validate(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				return
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
