package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateBroker(&cfg.Broker); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	if err := validateAdmin(&cfg.Admin, &cfg.Server); err != nil {
		return err
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	return nil
}

func validateBroker(cfg *BrokerConfig) error {
	if cfg.Workers < 1 {
		return fmt.Errorf("broker.workers must be at least 1")
	}
	if cfg.Workers > 1024 {
		return fmt.Errorf("broker.workers cannot exceed 1024")
	}
	if cfg.ReadBufferSize < 1 {
		return fmt.Errorf("broker.read_buffer_size must be at least 1")
	}
	if cfg.ReadBufferGrowth < 1 {
		return fmt.Errorf("broker.read_buffer_growth must be at least 1")
	}
	if cfg.CommandBuffer < 1 {
		return fmt.Errorf("broker.command_buffer must be at least 1")
	}
	if cfg.RearmBuffer < 1 {
		return fmt.Errorf("broker.rearm_buffer must be at least 1")
	}
	if cfg.MaxEvents < 1 {
		return fmt.Errorf("broker.max_events must be at least 1")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	if _, err := zerolog.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("logging.level %q is not a valid level", cfg.Level)
	}
	switch cfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	return nil
}

func validateAdmin(cfg *AdminConfig, server *ServerConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("admin.port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("admin.host cannot be empty")
	}
	if cfg.Port == server.Port {
		return fmt.Errorf("admin.port and server.port must be different")
	}
	return nil
}
