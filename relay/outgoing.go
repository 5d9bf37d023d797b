// File: relay/outgoing.go
// Author: momentics <momentics@gmail.com>
//
// The single outbound datagram writer.

package relay

import (
	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/control"
	"github.com/momentics/hioload-logrelay/internal/sockets"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OutgoingOptions tunes an OutgoingForwarder.
type OutgoingOptions struct {
	Logger  *zap.Logger
	Metrics *control.Metrics
}

// OutgoingForwarder drains the pending buffer to a fixed destination. Its
// write interest is one-shot: every writable notification disarms it and
// only Rearm asks for the next one. A UDP socket is writable nearly always,
// so a persistent interest would wake the loop continuously.
type OutgoingForwarder struct {
	poller  api.Poller
	fd      int
	dest    sockets.Destination
	pending *PendingBuffer
	armed   bool
	log     *zap.Logger
	metrics *control.Metrics
}

// NewOutgoingForwarder resolves destination once, opens the outbound socket
// and registers it under api.OutgoingToken, initially armed.
func NewOutgoingForwarder(poller api.Poller, destination string, pending *PendingBuffer, opts OutgoingOptions) (*OutgoingForwarder, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = control.NewMetrics()
	}
	dest, err := sockets.ResolveDestination(destination)
	if err != nil {
		return nil, err
	}
	fd, err := sockets.OpenDatagram(dest)
	if err != nil {
		return nil, err
	}
	f := &OutgoingForwarder{
		poller:  poller,
		fd:      fd,
		dest:    dest,
		pending: pending,
		log:     opts.Logger.Named("outgoing"),
		metrics: opts.Metrics,
	}
	if err := poller.Register(fd, api.OutgoingToken, api.Writable, api.OneShot); err != nil {
		sockets.Close(fd)
		return nil, errors.Wrap(err, "unable to register outbound socket")
	}
	f.armed = true
	f.log.Info("forwarding", zap.Stringer("destination", dest))
	return f, nil
}

// Armed reports whether a writable notification has been requested and not
// yet delivered.
func (f *OutgoingForwarder) Armed() bool { return f.armed }

// Destination returns the resolved destination address.
func (f *OutgoingForwarder) Destination() string { return f.dest.String() }

// Writable handles one writable notification: the registration is now
// disarmed, and every pending payload is sent once in FIFO order. Failed
// sends are dropped.
func (f *OutgoingForwarder) Writable() error {
	f.armed = false
	f.metrics.WritableEvents.Inc()
	if f.pending.Len() == 0 {
		return nil
	}

	var sent, dropped int
	f.pending.Drain(func(p []byte) {
		if err := sockets.SendTo(f.fd, p, f.dest); err != nil {
			dropped++
			f.log.Debug("payload dropped", zap.Int("size", len(p)), zap.Error(err))
			return
		}
		sent++
	})
	f.metrics.MessagesForwarded.Add(float64(sent))
	f.metrics.MessagesDropped.Add(float64(dropped))
	if dropped > 0 {
		f.log.Warn("dropped payloads", zap.Int("dropped", dropped), zap.Int("sent", sent))
	}
	return nil
}

// Rearm requests exactly one more writable notification.
func (f *OutgoingForwarder) Rearm() error {
	f.metrics.Rearms.Inc()
	if err := f.poller.Reregister(f.fd, api.OutgoingToken, api.Writable, api.OneShot); err != nil {
		return errors.Wrap(err, "unable to rearm outbound socket")
	}
	f.armed = true
	return nil
}

// Close deregisters and closes the outbound socket.
func (f *OutgoingForwarder) Close() error {
	if f.fd < 0 {
		return nil
	}
	if err := f.poller.Deregister(f.fd); err != nil {
		f.log.Debug("deregister failed", zap.Int("fd", f.fd), zap.Error(err))
	}
	fd := f.fd
	f.fd = -1
	f.armed = false
	return sockets.Close(fd)
}
