package control

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
listen:
  - path: /run/a.sock
  - path: /run/b.sock
    kind: datagram
destination: 10.0.0.5:514
relay:
  read_buffer_size: 4096
log:
  level: debug
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Destination != "10.0.0.5:514" {
		t.Errorf("Destination = %q", cfg.Destination)
	}
	if got := cfg.Paths(); len(got) != 2 || got[0] != "/run/a.sock" || got[1] != "/run/b.sock" {
		t.Errorf("Paths = %v", got)
	}
	if cfg.Listen[0].Kind != "stream" || cfg.Listen[1].Kind != "datagram" {
		t.Errorf("kinds = %q, %q", cfg.Listen[0].Kind, cfg.Listen[1].Kind)
	}
	if cfg.Relay.ReadBufferSize != 4096 {
		t.Errorf("ReadBufferSize = %d", cfg.Relay.ReadBufferSize)
	}
	if cfg.Relay.MaxEvents != DefaultMaxEvents || cfg.Relay.MaxReadErrors != DefaultMaxReadErrors ||
		cfg.Relay.DatagramBufferSize != DefaultDatagramBufferSize {
		t.Errorf("defaults lost: %+v", cfg.Relay)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestMaxReadErrorsZeroMeansDefault(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "destination: 127.0.0.1:514\nrelay: {max_read_errors: 0}\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	if cfg.Relay.MaxReadErrors != DefaultMaxReadErrors {
		t.Errorf("MaxReadErrors = %d, want %d", cfg.Relay.MaxReadErrors, DefaultMaxReadErrors)
	}
}

func TestNegativeMaxReadErrorsDisablesBound(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "destination: 127.0.0.1:514\nrelay: {max_read_errors: -1}\n"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Relay.MaxReadErrors != -1 {
		t.Errorf("MaxReadErrors = %d, want -1", cfg.Relay.MaxReadErrors)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadConfig(writeFile(t, "listen: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestApplyDefaultsAddsDefaultSocket(t *testing.T) {
	cfg := &Config{Destination: "127.0.0.1:514"}
	cfg.ApplyDefaults()
	if len(cfg.Listen) != 1 || cfg.Listen[0].Path != DefaultSocketPath {
		t.Errorf("Listen = %+v", cfg.Listen)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := DefaultConfig()
		c.Destination = "127.0.0.1:514"
		c.Listen = []ListenerConfig{{Path: "/tmp/a.sock"}}
		return c
	}
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no destination", func(c *Config) { c.Destination = " " }, "destination"},
		{"duplicate path", func(c *Config) { c.Listen = append(c.Listen, ListenerConfig{Path: "/tmp/a.sock"}) }, "twice"},
		{"empty path", func(c *Config) { c.Listen[0].Path = "" }, "empty"},
		{"bad kind", func(c *Config) { c.Listen[0].Kind = "raw" }, "unknown kind"},
		{"buffer", func(c *Config) { c.Relay.ReadBufferSize = -1 }, "read_buffer_size"},
		{"events", func(c *Config) { c.Relay.MaxEvents = 0 }, "max_events"},
		{"datagram buffer", func(c *Config) { c.Relay.DatagramBufferSize = -1 }, "datagram_buffer_size"},
		{"metrics addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Addr = "" }, "metrics"},
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base config invalid: %v", err)
	}
	for _, tc := range cases {
		c := base()
		tc.mutate(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want mention of %q", tc.name, err, tc.want)
		}
	}
}
