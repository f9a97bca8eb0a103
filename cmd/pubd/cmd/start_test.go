package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/brianly1003/pubd/internal/config"
	"github.com/rs/zerolog"
)

func TestApplyStartFlags(t *testing.T) {
	t.Cleanup(func() {
		startHost, startPort, startWorkers, startPrune = "", 0, 0, false
	})

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "0.0.0.0", Port: 1984},
		Broker: config.BrokerConfig{Workers: 4},
	}

	applyStartFlags(cfg)
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 1984 || cfg.Broker.Workers != 4 {
		t.Fatalf("unset flags changed config: %+v", cfg)
	}

	startHost, startPort, startWorkers, startPrune = "127.0.0.1", 7000, 9, true
	applyStartFlags(cfg)
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 7000 || cfg.Broker.Workers != 9 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !cfg.Broker.PruneDeadSubscribers {
		t.Error("--prune not applied")
	}
}

func TestBrokerOptions(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 7000},
		Broker: config.BrokerConfig{
			Workers:              2,
			ReadBufferSize:       512,
			ReadBufferGrowth:     128,
			CommandBuffer:        16,
			RearmBuffer:          32,
			MaxEvents:            64,
			PruneDeadSubscribers: true,
		},
	}

	opts := brokerOptions(cfg)
	if opts.Host != "127.0.0.1" || opts.Port != 7000 || opts.Workers != 2 {
		t.Errorf("unexpected address/workers: %+v", opts)
	}
	if opts.ReadBufferSize != 512 || opts.ReadBufferGrowth != 128 {
		t.Errorf("unexpected read buffer: %+v", opts)
	}
	if opts.CommandBuffer != 16 || opts.RearmBuffer != 32 || opts.MaxEvents != 64 {
		t.Errorf("unexpected buffers: %+v", opts)
	}
	if !opts.PruneDeadSubscribers {
		t.Error("PruneDeadSubscribers not carried over")
	}
	if opts.Observer == nil {
		t.Error("Observer should be set")
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	setLogLevel("warn")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("level = %s, want warn", zerolog.GlobalLevel())
	}

	setLogLevel("bogus")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %s, want info fallback", zerolog.GlobalLevel())
	}
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "today", "abc123")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown") })

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.Contains(out.String(), "pubd 1.2.3") || !strings.Contains(out.String(), "abc123") {
		t.Errorf("unexpected version output %q", out.String())
	}
}
