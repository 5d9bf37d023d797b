package main

import (
	"context"

	"github.com/momentics/hioload-logrelay/control"
	"github.com/momentics/hioload-logrelay/relay"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// kindValue is a pflag.Value for --socket-kind.
type kindValue struct {
	kind relay.ListenerKind
}

func (v *kindValue) String() string { return v.kind.String() }

func (v *kindValue) Set(s string) error {
	k, err := relay.ParseListenerKind(s)
	if err != nil {
		return err
	}
	v.kind = k
	return nil
}

func (v *kindValue) Type() string { return "kind" }

type rootOptions struct {
	configPath  string
	destination string
	sockets     []string
	kind        kindValue
	logLevel    string
	logFormat   string
	metricsAddr string
}

type runner func(ctx context.Context, cfg *control.Config) error

func newRootCommand(run runner) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "logrelay",
		Short:        "Relay local socket messages to a remote datagram collector",
		Long:         `Listen on one or more unix sockets and forward every message read from them, unmodified, as one UDP datagram to a fixed destination.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&opts.destination, "destination", "d", "", "destination address:port")
	flags.StringArrayVarP(&opts.sockets, "socket", "s", nil, "incoming socket path, repeatable (default "+control.DefaultSocketPath+")")
	flags.Var(&opts.kind, "socket-kind", "socket type for --socket paths: stream or datagram")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: console or json")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /debug/state on this address")
	return cmd
}

// config loads the file, if any, then applies explicitly set flags.
func (o *rootOptions) config(flags *pflag.FlagSet) (*control.Config, error) {
	cfg := control.DefaultConfig()
	if o.configPath != "" {
		loaded, err := control.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.Changed("destination") {
		cfg.Destination = o.destination
	}
	if flags.Changed("socket") {
		cfg.Listen = cfg.Listen[:0]
		for _, p := range o.sockets {
			cfg.Listen = append(cfg.Listen, control.ListenerConfig{Path: p, Kind: o.kind.String()})
		}
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = o.metricsAddr
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
