package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/momentics/hioload-logrelay/control"
	"github.com/momentics/hioload-logrelay/internal/logging"
	"github.com/momentics/hioload-logrelay/reactor"
	"github.com/momentics/hioload-logrelay/relay"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// run owns process lifecycle around the relay core: stale socket cleanup,
// signal handling and unlinking the socket paths on the way out.
func run(ctx context.Context, cfg *control.Config) error {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	paths := control.NewPathRegistry()
	paths.Set(cfg.Paths())
	if err := paths.UnlinkAll(); err != nil {
		return err
	}
	defer func() {
		if err := paths.UnlinkAll(); err != nil {
			log.Warn("socket cleanup failed", zap.Error(err))
		}
	}()

	poller, err := reactor.NewPoller(cfg.Relay.MaxEvents)
	if err != nil {
		return err
	}
	listeners, err := openListeners(cfg.Listen)
	if err != nil {
		poller.Close()
		return err
	}

	opts := relay.OptionsFromConfig(cfg)
	opts.Logger = log
	opts.Metrics = control.NewMetrics()
	r, err := relay.New(poller, listeners, cfg.Destination, opts)
	if err != nil {
		for _, l := range listeners {
			l.Close()
		}
		poller.Close()
		return err
	}
	defer r.Close()

	log.Info("log relay starting",
		zap.String("relay_id", r.ID()),
		zap.Strings("paths", r.Paths()),
		zap.String("destination", r.Destination()),
		zap.String("read_buffer", humanize.IBytes(uint64(cfg.Relay.ReadBufferSize))),
		zap.String("datagram_buffer", humanize.IBytes(uint64(cfg.Relay.DatagramBufferSize))))

	if cfg.Metrics.Enabled {
		probes := control.NewDebugProbes()
		control.RegisterPlatformProbes(probes)
		r.RegisterProbes(probes)
		srv := startMetricsServer(cfg.Metrics.Addr, opts.Metrics, probes, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := r.Run(ctx); err != nil {
		log.Error("relay stopped", zap.Error(err))
		return err
	}
	log.Info("log relay stopped")
	return nil
}

func openListeners(cfgs []control.ListenerConfig) ([]*relay.Listener, error) {
	listeners := make([]*relay.Listener, 0, len(cfgs))
	fail := func(path string, err error) ([]*relay.Listener, error) {
		for _, l := range listeners {
			l.Close()
		}
		return nil, errors.Wrapf(err, "listener %s", path)
	}
	for _, lc := range cfgs {
		kind, err := relay.ParseListenerKind(lc.Kind)
		if err != nil {
			return fail(lc.Path, err)
		}
		l, err := relay.Listen(lc.Path, kind)
		if err != nil {
			return fail(lc.Path, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}

func startMetricsServer(addr string, m *control.Metrics, probes *control.DebugProbes, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/debug/state", probes)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
