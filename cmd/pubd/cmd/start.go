package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianly1003/pubd/internal/broker"
	"github.com/brianly1003/pubd/internal/config"
	adminhttp "github.com/brianly1003/pubd/internal/server/http"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	startHost    string
	startPort    int
	startWorkers int
	startPrune   bool
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pubd broker",
	Long: `Start the broker and serve clients until interrupted.

Example:
  pubd start                     # listen on 0.0.0.0:1984
  pubd start --port 7000         # custom port
  pubd start --workers 16        # larger worker pool
  pubd start --prune             # forget subscribers whose socket died

SIGINT or SIGTERM stops the broker and closes every connection.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startHost, "host", "", "listen address (default: 0.0.0.0)")
	startCmd.Flags().IntVar(&startPort, "port", 0, "listen port (default: 1984)")
	startCmd.Flags().IntVar(&startWorkers, "workers", 0, "worker pool size (default: 4)")
	startCmd.Flags().BoolVar(&startPrune, "prune", false, "remove dead subscribers from every topic")
}

func runStart(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyStartFlags(cfg)

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging(cfg)
	loader.Watch(func(updated *config.Config) {
		setLogLevel(updated.Logging.Level)
	})

	log.Info().
		Str("version", version).
		Str("addr", cfg.ListenAddress()).
		Str("config", loader.ConfigFile()).
		Msg("starting pubd")

	b, err := broker.New(brokerOptions(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var admin *adminhttp.Server
	if cfg.Admin.Enabled {
		admin = adminhttp.New(cfg.AdminAddress(), b, cfg.Admin.Pprof)
		if err := admin.Start(); err != nil {
			return fmt.Errorf("failed to start admin server: %w", err)
		}
	}

	runErr := b.Run(ctx)

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := admin.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("admin server did not stop cleanly")
		}
	}

	if runErr != nil {
		return fmt.Errorf("broker error: %w", runErr)
	}

	log.Info().Msg("pubd stopped")
	return nil
}

func applyStartFlags(cfg *config.Config) {
	if startHost != "" {
		cfg.Server.Host = startHost
	}
	if startPort != 0 {
		cfg.Server.Port = startPort
	}
	if startWorkers != 0 {
		cfg.Broker.Workers = startWorkers
	}
	if startPrune {
		cfg.Broker.PruneDeadSubscribers = true
	}
}

// brokerOptions maps configuration onto the broker. The broker itself never
// reads files or the environment.
func brokerOptions(cfg *config.Config) broker.Options {
	return broker.Options{
		Host:                 cfg.Server.Host,
		Port:                 cfg.Server.Port,
		Workers:              cfg.Broker.Workers,
		ReadBufferSize:       cfg.Broker.ReadBufferSize,
		ReadBufferGrowth:     cfg.Broker.ReadBufferGrowth,
		CommandBuffer:        cfg.Broker.CommandBuffer,
		RearmBuffer:          cfg.Broker.RearmBuffer,
		MaxEvents:            cfg.Broker.MaxEvents,
		PruneDeadSubscribers: cfg.Broker.PruneDeadSubscribers,
		Observer:             broker.NewLogObserver(),
	}
}

func setupLogging(cfg *config.Config) {
	setLogLevel(cfg.Logging.Level)

	if cfg.Logging.Format == "console" || verbose {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// setLogLevel applies level, falling back to info. --verbose always wins.
func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	if verbose {
		parsed = zerolog.DebugLevel
	}
	if zerolog.GlobalLevel() != parsed {
		log.Info().Str("level", parsed.String()).Msg("log level set")
	}
	zerolog.SetGlobalLevel(parsed)
}
