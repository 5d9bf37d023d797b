// File: relay/incoming.go
// Author: momentics <momentics@gmail.com>
//
// Listening endpoints, accepted connections and the pending payload buffer.

package relay

import (
	"sort"

	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/control"
	"github.com/momentics/hioload-logrelay/internal/sockets"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// IncomingOptions tunes an IncomingManager.
type IncomingOptions struct {
	ReadBufferSize     int
	// DatagramBufferSize sizes the receive buffer of datagram listeners.
	DatagramBufferSize int
	// MaxReadErrors tears a connection down after that many consecutive
	// failed reads. Zero selects control.DefaultMaxReadErrors, a negative
	// value disables the bound.
	MaxReadErrors      int
	SlabCapacity       int
	Logger             *zap.Logger
	Metrics            *control.Metrics
}

// IncomingManager owns the listeners, the connection table and the pending
// buffer.
type IncomingManager struct {
	poller        api.Poller
	listeners     map[api.Token]*Listener
	maxListener   uint32
	conns         *ConnectionTable
	pending       *PendingBuffer
	buf           []byte
	dgram         []byte
	maxReadErrors int
	log           *zap.Logger
	metrics       *control.Metrics
}

// NewIncomingManager takes ownership of listeners, keyed by their tokens,
// and registers each with poller for level-triggered reads. Listener tokens
// must be generation zero with indices starting at 1.
func NewIncomingManager(poller api.Poller, listeners map[api.Token]*Listener, opts IncomingOptions) (*IncomingManager, error) {
	if len(listeners) == 0 {
		return nil, errors.Wrap(api.ErrInvalidArgument, "no listeners")
	}
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = control.DefaultReadBufferSize
	}
	if opts.DatagramBufferSize <= 0 {
		opts.DatagramBufferSize = control.DefaultDatagramBufferSize
	}
	if opts.MaxReadErrors == 0 {
		opts.MaxReadErrors = control.DefaultMaxReadErrors
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = control.NewMetrics()
	}

	var highest uint32
	for tok := range listeners {
		if tok.Index() == 0 || tok.Generation() != 0 {
			return nil, errors.Wrapf(api.ErrInvalidArgument, "listener token %s", tok)
		}
		if tok.Index() > highest {
			highest = tok.Index()
		}
	}

	m := &IncomingManager{
		poller:        poller,
		listeners:     listeners,
		maxListener:   highest,
		conns:         NewConnectionTable(highest+1, opts.SlabCapacity),
		pending:       NewPendingBuffer(),
		buf:           make([]byte, opts.ReadBufferSize),
		dgram:         make([]byte, opts.DatagramBufferSize),
		maxReadErrors: opts.MaxReadErrors,
		log:           opts.Logger.Named("incoming"),
		metrics:       opts.Metrics,
	}
	for _, tok := range m.listenerTokens() {
		l := listeners[tok]
		l.token = tok
		if err := poller.Register(l.fd, tok, api.Readable, api.Level); err != nil {
			return nil, errors.Wrapf(err, "unable to register listener %s", l.path)
		}
		m.log.Info("listening", zap.String("path", l.path), zap.Stringer("kind", l.kind), zap.Stringer("token", tok))
	}
	return m, nil
}

func (m *IncomingManager) listenerTokens() []api.Token {
	toks := make([]api.Token, 0, len(m.listeners))
	for tok := range m.listeners {
		toks = append(toks, tok)
	}
	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })
	return toks
}

// Listeners returns the listeners in token order.
func (m *IncomingManager) Listeners() []*Listener {
	toks := m.listenerTokens()
	out := make([]*Listener, 0, len(toks))
	for _, tok := range toks {
		out = append(out, m.listeners[tok])
	}
	return out
}

// Listener returns the listener registered under tok.
func (m *IncomingManager) Listener(tok api.Token) (*Listener, bool) {
	l, ok := m.listeners[tok]
	return l, ok
}

// IsListenerToken reports whether tok falls in the listener range.
func (m *IncomingManager) IsListenerToken(tok api.Token) bool {
	return tok.Index() >= 1 && tok.Index() <= m.maxListener
}

// MaxListenerIndex is the highest listener token index.
func (m *IncomingManager) MaxListenerIndex() uint32 { return m.maxListener }

// Connections exposes the connection table.
func (m *IncomingManager) Connections() *ConnectionTable { return m.conns }

// Pending exposes the buffer shared with the outbound writer.
func (m *IncomingManager) Pending() *PendingBuffer { return m.pending }

// Accept takes at most one connection off the listener named by tok and
// registers it for level-triggered reads. Nothing pending is not an error.
func (m *IncomingManager) Accept(tok api.Token) error {
	l, ok := m.listeners[tok]
	if !ok {
		return errors.Wrapf(api.ErrNotFound, "listener %s", tok)
	}
	fd, ok, err := sockets.Accept(l.fd)
	if err != nil {
		return errors.Wrapf(err, "accept on %s", l.path)
	}
	if !ok {
		return nil
	}

	conn := NewConnection(fd)
	ctok, err := m.conns.Insert(conn)
	if err != nil {
		sockets.Close(fd)
		return err
	}
	conn.AssignToken(ctok)
	if err := m.poller.Register(fd, ctok, api.Readable|api.Hangup, api.Level); err != nil {
		m.conns.Remove(ctok)
		return errors.Wrapf(err, "unable to register connection %s", ctok)
	}

	m.metrics.ConnectionsAccepted.Inc()
	m.metrics.ConnectionsOpen.Inc()
	m.log.Debug("accepted", zap.String("path", l.path), zap.Stringer("token", ctok), zap.Int("fd", fd))
	return nil
}

// Readable performs one bounded read on the connection named by tok, then
// re-arms the outbound writer.
func (m *IncomingManager) Readable(out *OutgoingForwarder, tok api.Token) error {
	conn, err := m.conns.Get(tok)
	if err != nil {
		return err
	}

	n, ok, err := conn.read(m.buf)
	switch {
	case err != nil:
		conn.readErrors++
		m.metrics.ReadErrors.Inc()
		m.log.Warn("read failed",
			zap.Stringer("token", tok),
			zap.Int("fd", conn.fd),
			zap.Int("consecutive", conn.readErrors),
			zap.Error(err))
		if m.maxReadErrors > 0 && conn.readErrors >= m.maxReadErrors {
			m.closeConnection(tok, control.CloseReasonReadError)
		}
	case !ok:
		// spurious wakeup
	case n == 0:
		m.closeConnection(tok, control.CloseReasonEOF)
	default:
		conn.readErrors = 0
		m.enqueue(m.buf[:n])
	}

	return out.Rearm()
}

// ReceiveDatagram reads one datagram from the datagram listener named by
// tok, then re-arms the outbound writer. A datagram larger than the
// datagram buffer is forwarded truncated and counted.
func (m *IncomingManager) ReceiveDatagram(out *OutgoingForwarder, tok api.Token) error {
	l, ok := m.listeners[tok]
	if !ok {
		return errors.Wrapf(api.ErrNotFound, "listener %s", tok)
	}
	n, truncated, ok, err := sockets.ReadDatagram(l.fd, m.dgram)
	switch {
	case err != nil:
		m.metrics.ReadErrors.Inc()
		m.log.Warn("datagram read failed", zap.String("path", l.path), zap.Error(err))
	case ok && n > 0:
		if truncated {
			m.metrics.DatagramsTruncated.Inc()
			m.log.Warn("datagram truncated",
				zap.String("path", l.path),
				zap.Int("kept", n),
				zap.Int("buffer", len(m.dgram)))
		}
		m.enqueue(m.dgram[:n])
	}
	return out.Rearm()
}

// enqueue copies the valid prefix of the read buffer into the pending queue.
func (m *IncomingManager) enqueue(p []byte) {
	payload := make([]byte, len(p))
	copy(payload, p)
	m.pending.Push(payload)
	m.metrics.MessagesReceived.Inc()
	m.metrics.BytesReceived.Add(float64(len(payload)))
}

func (m *IncomingManager) closeConnection(tok api.Token, reason string) {
	conn, err := m.conns.Get(tok)
	if err != nil {
		return
	}
	fd := conn.fd
	if err := m.poller.Deregister(fd); err != nil {
		m.log.Debug("deregister failed", zap.Stringer("token", tok), zap.Error(err))
	}
	if err := m.conns.Remove(tok); err != nil {
		m.log.Warn("close failed", zap.Stringer("token", tok), zap.Error(err))
	}
	m.metrics.ConnectionsClosed.WithLabelValues(reason).Inc()
	m.metrics.ConnectionsOpen.Dec()
	m.log.Debug("closed", zap.Stringer("token", tok), zap.Int("fd", fd), zap.String("reason", reason))
}

// Close tears down every connection and closes the listeners.
func (m *IncomingManager) Close() error {
	var toks []api.Token
	m.conns.Range(func(tok api.Token, _ *Connection) bool {
		toks = append(toks, tok)
		return true
	})
	for _, tok := range toks {
		m.closeConnection(tok, control.CloseReasonShutdown)
	}
	var first error
	for _, l := range m.Listeners() {
		if err := l.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "unable to close listener %s", l.path)
		}
	}
	return first
}
