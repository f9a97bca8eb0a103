package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brianly1003/pubd/internal/config"
	"gopkg.in/yaml.v3"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"true", true},
		{"false", false},
		{"1984", 1984},
		{"debug", "debug"},
		{"127.0.0.1:1984", "127.0.0.1:1984"},
	}

	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestSetNestedValue(t *testing.T) {
	data := map[string]interface{}{"server": "flat"}

	if err := setNestedValue(data, "broker.workers", "8"); err != nil {
		t.Fatalf("setNestedValue() error = %v", err)
	}
	broker, ok := data["broker"].(map[string]interface{})
	if !ok || broker["workers"] != 8 {
		t.Fatalf("unexpected data %#v", data)
	}

	if err := setNestedValue(data, "server.port", "1"); err == nil {
		t.Error("setNestedValue() through a scalar should fail")
	}
}

func TestSetConfigFileValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := setConfigFileValue(path, "server.port", "7000"); err != nil {
		t.Fatalf("setConfigFileValue() error = %v", err)
	}
	if err := setConfigFileValue(path, "broker.prune_dead_subscribers", "true"); err != nil {
		t.Fatalf("setConfigFileValue() error = %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Server.Port)
	}
	if !cfg.Broker.PruneDeadSubscribers {
		t.Error("PruneDeadSubscribers should be true")
	}
}

func TestSetConfigFileValue_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if err := setConfigFileValue(path, "server.port", "1"); err == nil {
		t.Error("setConfigFileValue() should refuse to rewrite a corrupt file")
	}
}

func TestGetConfigValue(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "0.0.0.0", Port: 1984},
		Broker: config.BrokerConfig{Workers: 4},
	}

	got, err := getConfigValue(cfg, "server.port")
	if err != nil || got != 1984 {
		t.Errorf("server.port = %v, %v", got, err)
	}
	got, err = getConfigValue(cfg, "broker.workers")
	if err != nil || got != 4 {
		t.Errorf("broker.workers = %v, %v", got, err)
	}
	if _, err := getConfigValue(cfg, "nope.nothing"); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	var parsed map[string]interface{}
	if err := yaml.Unmarshal([]byte(defaultConfig), &parsed); err != nil {
		t.Fatalf("default config is not valid YAML: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("default config does not load: %v", err)
	}
}

func TestConfigSearchPaths(t *testing.T) {
	if got := configSearchPaths("/tmp/x.yaml"); len(got) != 1 || got[0] != "/tmp/x.yaml" {
		t.Errorf("explicit path = %v", got)
	}
	got := configSearchPaths("")
	if len(got) != 3 || got[0] != "./config.yaml" || got[2] != "/etc/pubd/config.yaml" {
		t.Errorf("default paths = %v", got)
	}
}
