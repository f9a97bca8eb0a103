// Package config handles configuration management for pubd.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Logging LoggingConfig `mapstructure:"logging"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Client  ClientConfig  `mapstructure:"client"`
}

// ServerConfig holds the pub/sub listener address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// BrokerConfig tunes the broker runtime.
type BrokerConfig struct {
	Workers              int  `mapstructure:"workers"`
	ReadBufferSize       int  `mapstructure:"read_buffer_size"`
	ReadBufferGrowth     int  `mapstructure:"read_buffer_growth"`
	CommandBuffer        int  `mapstructure:"command_buffer"`
	RearmBuffer          int  `mapstructure:"rearm_buffer"`
	MaxEvents            int  `mapstructure:"max_events"`
	PruneDeadSubscribers bool `mapstructure:"prune_dead_subscribers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// AdminConfig holds the optional admin HTTP server configuration.
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Pprof   bool   `mapstructure:"pprof"`
}

// ClientConfig holds defaults for the client subcommand.
type ClientConfig struct {
	Address string `mapstructure:"address"`
}

// Loader keeps the viper instance a Config was read from so the file can
// be watched afterwards.
type Loader struct {
	v *viper.Viper
}

// NewLoader prepares a viper instance. An empty configPath searches the
// default locations.
func NewLoader(configPath string) *Loader {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pubd")
		v.AddConfigPath("/etc/pubd")
	}

	v.SetEnvPrefix("PUBD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &Loader{v: v}
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads the config file, if any, and returns the validated result.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	postProcess(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ConfigFile returns the file the configuration was read from, or "".
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the reloaded configuration every time the config
// file changes. Invalid edits are logged and ignored. Watch does nothing
// when no file was loaded.
func (l *Loader) Watch(fn func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name).Msg("ignoring invalid config change")
			return
		}
		log.Info().Str("file", e.Name).Msg("config reloaded")
		fn(cfg)
	})
	l.v.WatchConfig()
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 1984)

	// Broker defaults
	v.SetDefault("broker.workers", 4)
	v.SetDefault("broker.read_buffer_size", 4096)
	v.SetDefault("broker.read_buffer_growth", 1024)
	v.SetDefault("broker.command_buffer", 1024)
	v.SetDefault("broker.rearm_buffer", 1024)
	v.SetDefault("broker.max_events", 128)
	v.SetDefault("broker.prune_dead_subscribers", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Admin defaults
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 1985)
	v.SetDefault("admin.pprof", false)

	// Client defaults
	v.SetDefault("client.address", "127.0.0.1:1984")
}

// postProcess normalizes values that are easy to get slightly wrong.
func postProcess(cfg *Config) {
	cfg.Server.Host = strings.TrimSpace(cfg.Server.Host)
	cfg.Admin.Host = strings.TrimSpace(cfg.Admin.Host)
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
}

// ListenAddress returns the pub/sub listener as host:port.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.Host, fmt.Sprint(c.Server.Port))
}

// AdminAddress returns the admin server as host:port.
func (c *Config) AdminAddress() string {
	return net.JoinHostPort(c.Admin.Host, fmt.Sprint(c.Admin.Port))
}

// GetConfigDir returns the user config directory for pubd.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".pubd"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
