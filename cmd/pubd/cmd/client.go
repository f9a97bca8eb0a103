package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brianly1003/pubd/internal/config"
	"github.com/brianly1003/pubd/internal/protocol"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	clientAddress string
	clientTimeout time.Duration
)

// clientCmd groups the manual-testing client commands.
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Talk to a running broker",
	Long: `A minimal client for trying out a broker by hand. Every command opens
one connection and sends one protocol message.

Examples:
  pubd client sub news                 # print every message on "news"
  pubd client sub news hello           # subscribe and announce
  pubd client pub news the sky is blue
  pubd client unsub news goodbye`,
}

var clientSubCmd = &cobra.Command{
	Use:   "sub <topic> [message...]",
	Short: "Subscribe and print messages until interrupted",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runClient(ctx, cmd.OutOrStdout(), protocol.OpSubscribe, args, true)
	},
}

var clientPubCmd = &cobra.Command{
	Use:   "pub <topic> <message...>",
	Short: "Publish one message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient(cmd.Context(), cmd.OutOrStdout(), protocol.OpPublish, args, false)
	},
}

var clientUnsubCmd = &cobra.Command{
	Use:   "unsub <topic> [message...]",
	Short: "Unsubscribe, optionally publishing a last message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient(cmd.Context(), cmd.OutOrStdout(), protocol.OpUnsubscribe, args, false)
	},
}

func init() {
	clientCmd.PersistentFlags().StringVarP(&clientAddress, "address", "a", "", "broker address (default: client.address from config)")
	clientCmd.PersistentFlags().DurationVar(&clientTimeout, "timeout", 5*time.Second, "dial timeout")

	clientCmd.AddCommand(clientSubCmd)
	clientCmd.AddCommand(clientPubCmd)
	clientCmd.AddCommand(clientUnsubCmd)
}

func newClientLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func resolveClientAddress() string {
	if clientAddress != "" {
		return clientAddress
	}
	if cfg, err := config.Load(cfgFile); err == nil && cfg.Client.Address != "" {
		return cfg.Client.Address
	}
	return "127.0.0.1:1984"
}

// clientMessage builds the protocol message for op from command arguments.
func clientMessage(op string, args []string) string {
	return protocol.Encode(op, args[0], strings.Join(args[1:], " "))
}

// runClient sends one message. With follow set it then copies everything
// the broker sends to out until ctx ends or the broker hangs up.
func runClient(ctx context.Context, out io.Writer, op string, args []string, follow bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newClientLogger()
	addr := resolveClientAddress()

	dialer := net.Dialer{Timeout: clientTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	msg := clientMessage(op, args)
	if _, err := conn.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	logger.Debug("sent", "addr", addr, "message", msg)

	if !follow {
		return nil
	}

	logger.Info("subscribed", "addr", addr, "topic", args[0])
	return followMessages(ctx, conn, out, logger)
}

func followMessages(ctx context.Context, conn net.Conn, out io.Writer, logger *slog.Logger) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			if buf[n-1] != '\n' {
				fmt.Fprintln(out)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				logger.Warn("broker closed the connection")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}
