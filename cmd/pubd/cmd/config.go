package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brianly1003/pubd/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configInitLocal bool
	configInitForce bool
)

// configCmd displays or manages configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display and manage configuration",
	Long: `Display and manage pubd configuration.

Without subcommands, shows the current effective configuration.

Examples:
  pubd config              # Show current config
  pubd config init         # Create config file with defaults
  pubd config path         # Show config file location
  pubd config get <key>    # Get a config value
  pubd config set <key> <value>  # Set a config value`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

// configInitCmd creates a config file with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Create a config file with default settings and documentation.

By default, creates ~/.pubd/config.yaml.
Use --local to create ./config.yaml in the current directory.`,
	RunE: runConfigInit,
}

// configPathCmd shows config file location.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config file search paths",
	RunE:  runConfigPath,
}

// configGetCmd gets a config value.
var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by key.

Examples:
  pubd config get server.port
  pubd config get broker.workers
  pubd config get logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a config value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by key in ~/.pubd/config.yaml.

Creates the config file if it doesn't exist.

Examples:
  pubd config set server.port 7000
  pubd config set broker.prune_dead_subscribers true
  pubd config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "create config in current directory instead of ~/.pubd/")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	var configPath string

	if configInitLocal {
		configPath = "config.yaml"
	} else {
		configDir, err := config.EnsureConfigDir()
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		configPath = filepath.Join(configDir, "config.yaml")
	}

	if _, err := os.Stat(configPath); err == nil && !configInitForce {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", configPath)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Config search paths (in order):")
	for i, loc := range configSearchPaths(cfgFile) {
		exists := "not found"
		if _, err := os.Stat(loc); err == nil {
			exists = "exists"
		}
		fmt.Fprintf(out, "  %d. %s (%s)\n", i+1, loc, exists)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if err := setConfigFileValue(configPath, key, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, configPath)
	return nil
}

// setConfigFileValue rewrites one key of the YAML file at path, creating
// the file when needed.
func setConfigFileValue(path, key, value string) error {
	var data map[string]interface{}

	if content, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
	}
	if data == nil {
		data = make(map[string]interface{})
	}

	if err := setNestedValue(data, key, value); err != nil {
		return err
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func getConfigValue(cfg *config.Config, key string) (interface{}, error) {
	switch key {
	case "server.host":
		return cfg.Server.Host, nil
	case "server.port":
		return cfg.Server.Port, nil
	case "broker.workers":
		return cfg.Broker.Workers, nil
	case "broker.read_buffer_size":
		return cfg.Broker.ReadBufferSize, nil
	case "broker.read_buffer_growth":
		return cfg.Broker.ReadBufferGrowth, nil
	case "broker.command_buffer":
		return cfg.Broker.CommandBuffer, nil
	case "broker.rearm_buffer":
		return cfg.Broker.RearmBuffer, nil
	case "broker.max_events":
		return cfg.Broker.MaxEvents, nil
	case "broker.prune_dead_subscribers":
		return cfg.Broker.PruneDeadSubscribers, nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
	case "admin.enabled":
		return cfg.Admin.Enabled, nil
	case "admin.host":
		return cfg.Admin.Host, nil
	case "admin.port":
		return cfg.Admin.Port, nil
	case "admin.pprof":
		return cfg.Admin.Pprof, nil
	case "client.address":
		return cfg.Client.Address, nil
	}

	return nil, fmt.Errorf("unknown config key: %s", key)
}

func setNestedValue(data map[string]interface{}, key string, value string) error {
	parts := strings.Split(key, ".")

	current := data
	for i := 0; i < len(parts)-1; i++ {
		if _, ok := current[parts[i]]; !ok {
			current[parts[i]] = make(map[string]interface{})
		}
		nested, ok := current[parts[i]].(map[string]interface{})
		if !ok {
			return fmt.Errorf("cannot set nested value: %s is not a map", parts[i])
		}
		current = nested
	}

	current[parts[len(parts)-1]] = parseValue(value)
	return nil
}

// parseValue keeps booleans and integers typed in the YAML output.
func parseValue(value string) interface{} {
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return value
}

func configSearchPaths(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	paths := []string{"./config.yaml"}
	if dir, err := config.GetConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	return append(paths, "/etc/pubd/config.yaml")
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current Configuration:")
	fmt.Fprintln(w, "----------------------")
	fmt.Fprintf(w, "Listen:          %s\n", cfg.ListenAddress())
	fmt.Fprintf(w, "Workers:         %d\n", cfg.Broker.Workers)
	fmt.Fprintf(w, "Read buffer:     %d (+%d)\n", cfg.Broker.ReadBufferSize, cfg.Broker.ReadBufferGrowth)
	fmt.Fprintf(w, "Prune dead subs: %t\n", cfg.Broker.PruneDeadSubscribers)
	fmt.Fprintf(w, "Log Level:       %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "Log Format:      %s\n", cfg.Logging.Format)
	if cfg.Admin.Enabled {
		fmt.Fprintf(w, "Admin:           %s (pprof %t)\n", cfg.AdminAddress(), cfg.Admin.Pprof)
	} else {
		fmt.Fprintln(w, "Admin:           disabled")
	}
}

const defaultConfig = `# pubd configuration
# Every key can also be set through the environment, e.g. PUBD_SERVER_PORT=7000.

# Pub/sub listener
server:
  host: "0.0.0.0"
  port: 1984

# Broker runtime
broker:
  # Worker goroutines that read requests and deliver messages
  workers: 4

  # Initial read buffer per read, and how much it grows when full
  read_buffer_size: 4096
  read_buffer_growth: 1024

  # Queue capacities
  command_buffer: 1024
  rearm_buffer: 1024

  # Readiness events collected per poll
  max_events: 128

  # Remove a subscriber from every topic once its socket fails.
  # When false, dead subscribers stay listed and writes to them are skipped.
  prune_dead_subscribers: false

# Logging settings (level is reloaded when this file changes)
logging:
  # Log level: trace, debug, info, warn, error
  level: "info"

  # Log format: console (human-readable) or json
  format: "console"

# Admin HTTP server: /health, /stats, /debug/runtime
admin:
  enabled: false
  host: "127.0.0.1"
  port: 1985
  pprof: false

# Defaults for "pubd client"
client:
  address: "127.0.0.1:1984"
`
