// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Relay configuration: YAML file shape, defaults and validation.

package control

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultSocketPath is used when no listener is configured.
	DefaultSocketPath = "/dev/log"

	DefaultReadBufferSize     = 2048
	// DefaultDatagramBufferSize is the largest payload one UDP datagram
	// can carry.
	DefaultDatagramBufferSize = 65507
	DefaultMaxEvents          = 128
	DefaultMaxReadErrors      = 8
	DefaultSlabCapacity       = 128
	DefaultMetricsAddr        = "127.0.0.1:9108"
)

// Config is the full relay configuration.
type Config struct {
	Listen      []ListenerConfig `yaml:"listen"`
	Destination string           `yaml:"destination"`
	Relay       RelayConfig      `yaml:"relay"`
	Log         LogConfig        `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
}

// ListenerConfig describes one local listening endpoint.
type ListenerConfig struct {
	Path string `yaml:"path"`
	Kind string `yaml:"kind"` // stream or datagram
}

// RelayConfig tunes the event loop.
type RelayConfig struct {
	ReadBufferSize     int `yaml:"read_buffer_size"`
	DatagramBufferSize int `yaml:"datagram_buffer_size"`
	MaxEvents          int `yaml:"max_events"`
	// MaxReadErrors bounds consecutive failed reads per connection. Zero
	// selects DefaultMaxReadErrors, a negative value disables the bound.
	MaxReadErrors      int `yaml:"max_read_errors"`
	SlabCapacity       int `yaml:"slab_capacity"`
}

// LogConfig selects logger level, encoding and sink.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, file path
}

// MetricsConfig controls the metrics/debug HTTP endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns a configuration with every tunable set.
func DefaultConfig() *Config {
	return &Config{
		Relay: RelayConfig{
			ReadBufferSize:     DefaultReadBufferSize,
			DatagramBufferSize: DefaultDatagramBufferSize,
			MaxEvents:          DefaultMaxEvents,
			MaxReadErrors:      DefaultMaxReadErrors,
			SlabCapacity:       DefaultSlabCapacity,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Addr: DefaultMetricsAddr,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read configuration")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "unable to parse configuration %s", path)
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields, including the default listener.
func (c *Config) ApplyDefaults() {
	if len(c.Listen) == 0 {
		c.Listen = []ListenerConfig{{Path: DefaultSocketPath}}
	}
	for i := range c.Listen {
		if c.Listen[i].Kind == "" {
			c.Listen[i].Kind = "stream"
		}
	}
	if c.Relay.ReadBufferSize == 0 {
		c.Relay.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Relay.DatagramBufferSize == 0 {
		c.Relay.DatagramBufferSize = DefaultDatagramBufferSize
	}
	if c.Relay.MaxEvents == 0 {
		c.Relay.MaxEvents = DefaultMaxEvents
	}
	if c.Relay.MaxReadErrors == 0 {
		c.Relay.MaxReadErrors = DefaultMaxReadErrors
	}
	if c.Relay.SlabCapacity == 0 {
		c.Relay.SlabCapacity = DefaultSlabCapacity
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}

// Paths returns the configured listener paths in order.
func (c *Config) Paths() []string {
	out := make([]string, 0, len(c.Listen))
	for _, l := range c.Listen {
		out = append(out, l.Path)
	}
	return out
}

// Validate checks the configuration for values the relay cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Destination) == "" {
		return errors.New("destination address is required")
	}
	if len(c.Listen) == 0 {
		return errors.New("at least one listener is required")
	}
	seen := make(map[string]struct{}, len(c.Listen))
	for _, l := range c.Listen {
		if l.Path == "" {
			return errors.New("listener path must not be empty")
		}
		if _, dup := seen[l.Path]; dup {
			return errors.Errorf("listener path %s configured twice", l.Path)
		}
		seen[l.Path] = struct{}{}
		switch strings.ToLower(l.Kind) {
		case "", "stream", "datagram", "dgram":
		default:
			return errors.Errorf("listener %s: unknown kind %q", l.Path, l.Kind)
		}
	}
	if c.Relay.ReadBufferSize <= 0 {
		return errors.New("read_buffer_size must be positive")
	}
	if c.Relay.MaxEvents <= 0 {
		return errors.New("max_events must be positive")
	}
	if c.Relay.DatagramBufferSize <= 0 {
		return errors.New("datagram_buffer_size must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics address is required when metrics are enabled")
	}
	return nil
}
