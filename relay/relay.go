// File: relay/relay.go
// Author: momentics <momentics@gmail.com>
//
// The poll loop tying the incoming side and the outbound writer together.

package relay

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/control"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultPollTimeout bounds each Wait in Run so cancellation is noticed.
const DefaultPollTimeout = 250 * time.Millisecond

// Options configures a Relay.
type Options struct {
	ReadBufferSize     int
	DatagramBufferSize int
	MaxEvents          int
	// MaxReadErrors: zero selects the default bound, negative disables it.
	MaxReadErrors      int
	SlabCapacity       int
	PollTimeout        time.Duration
	Logger             *zap.Logger
	Metrics            *control.Metrics
}

// OptionsFromConfig maps the relay section of cfg.
func OptionsFromConfig(cfg *control.Config) Options {
	return Options{
		ReadBufferSize:     cfg.Relay.ReadBufferSize,
		DatagramBufferSize: cfg.Relay.DatagramBufferSize,
		MaxEvents:          cfg.Relay.MaxEvents,
		MaxReadErrors:      cfg.Relay.MaxReadErrors,
		SlabCapacity:       cfg.Relay.SlabCapacity,
	}
}

// Stats is a point-in-time view of the relay, safe to read concurrently.
type Stats struct {
	Connections  int
	Pending      int
	PendingBytes int
	Armed        bool
}

// Relay owns the poller and everything registered with it.
type Relay struct {
	id          string
	poller      api.Poller
	incoming    *IncomingManager
	outgoing    *OutgoingForwarder
	dispatcher  *Dispatcher
	events      []api.Event
	pollTimeout time.Duration
	log         *zap.Logger
	metrics     *control.Metrics

	connections  atomic.Int64
	pending      atomic.Int64
	pendingBytes atomic.Int64
	armed        atomic.Bool
}

// New builds a relay over poller. Listeners get tokens 1..len(listeners) in
// slice order and are owned by the relay once New succeeds.
func New(poller api.Poller, listeners []*Listener, destination string, opts Options) (*Relay, error) {
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = control.DefaultMaxEvents
	}
	if opts.PollTimeout == 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = control.NewMetrics()
	}

	id := uuid.NewString()
	log := opts.Logger.With(zap.String("relay_id", id))

	set := make(map[api.Token]*Listener, len(listeners))
	for i, l := range listeners {
		set[api.NewToken(uint32(i+1), 0)] = l
	}
	incoming, err := NewIncomingManager(poller, set, IncomingOptions{
		ReadBufferSize:     opts.ReadBufferSize,
		DatagramBufferSize: opts.DatagramBufferSize,
		MaxReadErrors:      opts.MaxReadErrors,
		SlabCapacity:       opts.SlabCapacity,
		Logger:             log,
		Metrics:            opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	outgoing, err := NewOutgoingForwarder(poller, destination, incoming.Pending(), OutgoingOptions{
		Logger:  log,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	r := &Relay{
		id:          id,
		poller:      poller,
		incoming:    incoming,
		outgoing:    outgoing,
		dispatcher:  NewDispatcher(incoming, outgoing, log),
		events:      make([]api.Event, opts.MaxEvents),
		pollTimeout: opts.PollTimeout,
		log:         log,
		metrics:     opts.Metrics,
	}
	r.publishStats()
	return r, nil
}

// ID returns the random identifier attached to this relay's log lines.
func (r *Relay) ID() string { return r.id }

// Paths lists the listener socket paths in token order.
func (r *Relay) Paths() []string {
	ls := r.incoming.Listeners()
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Path())
	}
	return out
}

// Destination returns the resolved outbound address.
func (r *Relay) Destination() string { return r.outgoing.Destination() }

// Step waits up to timeout for one batch of events and dispatches it. Only
// slot exhaustion is returned as a dispatch error; other handler errors are
// logged.
func (r *Relay) Step(timeout time.Duration) (int, error) {
	n, err := r.poller.Wait(r.events, timeout)
	if err != nil {
		return 0, errors.Wrap(err, "poll failed")
	}
	for _, ev := range r.events[:n] {
		if err := r.dispatcher.Dispatch(ev); err != nil {
			if errors.Is(err, api.ErrResourceExhausted) {
				return n, err
			}
			r.log.Warn("event handling failed",
				zap.Stringer("token", ev.Token),
				zap.Stringer("ready", ev.Ready),
				zap.Error(err))
		}
	}
	r.publishStats()
	return n, nil
}

// Run loops over Step until ctx is done or a fatal error occurs.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("relay running",
		zap.Strings("paths", r.Paths()),
		zap.String("destination", r.Destination()))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", zap.Int("pending", r.incoming.Pending().Len()))
			return nil
		default:
		}
		if _, err := r.Step(r.pollTimeout); err != nil {
			return err
		}
	}
}

// Stats returns the counters published after the last Step.
func (r *Relay) Stats() Stats {
	return Stats{
		Connections:  int(r.connections.Load()),
		Pending:      int(r.pending.Load()),
		PendingBytes: int(r.pendingBytes.Load()),
		Armed:        r.armed.Load(),
	}
}

// RegisterProbes exposes Stats through dp.
func (r *Relay) RegisterProbes(dp *control.DebugProbes) {
	dp.RegisterProbe("relay.id", func() any { return r.id })
	dp.RegisterProbe("relay.connections", func() any { return r.Stats().Connections })
	dp.RegisterProbe("relay.pending", func() any { return r.Stats().Pending })
	dp.RegisterProbe("relay.pending_bytes", func() any { return r.Stats().PendingBytes })
	dp.RegisterProbe("relay.armed", func() any { return r.Stats().Armed })
}

func (r *Relay) publishStats() {
	p := r.incoming.Pending()
	r.connections.Store(int64(r.incoming.Connections().Len()))
	r.pending.Store(int64(p.Len()))
	r.pendingBytes.Store(int64(p.Bytes()))
	r.armed.Store(r.outgoing.Armed())
	r.metrics.PendingMessages.Set(float64(p.Len()))
}

// Close releases connections, listeners, the outbound socket and the
// poller. Listener paths are not unlinked.
func (r *Relay) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	keep(r.incoming.Close())
	keep(r.outgoing.Close())
	keep(r.poller.Close())
	r.publishStats()
	return first
}
