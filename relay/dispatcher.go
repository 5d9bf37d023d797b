// File: relay/dispatcher.go
// Author: momentics <momentics@gmail.com>
//
// Routes readiness events to the incoming manager or the outbound writer by
// token class.

package relay

import (
	"github.com/momentics/hioload-logrelay/api"
	"go.uber.org/zap"
)

// Dispatcher classifies each event as outbound, listener or connection.
type Dispatcher struct {
	incoming *IncomingManager
	outgoing *OutgoingForwarder
	log      *zap.Logger
}

// NewDispatcher wires the two handlers together.
func NewDispatcher(incoming *IncomingManager, outgoing *OutgoingForwarder, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{incoming: incoming, outgoing: outgoing, log: log.Named("dispatch")}
}

// Dispatch handles one event. Returned errors are recoverable; broken token
// invariants panic with *api.InvariantError.
func (d *Dispatcher) Dispatch(ev api.Event) error {
	tok := ev.Token
	switch {
	case tok.Index() == 0:
		if tok != api.OutgoingToken {
			violation(ev, "generation on outbound token")
		}
		if !d.outgoing.Armed() {
			violation(ev, "outbound socket reported while disarmed")
		}
		if ev.Ready&(api.Writable|api.Failed|api.Hangup) == 0 {
			violation(ev, "outbound socket reported without write readiness")
		}
		return d.outgoing.Writable()

	case ev.Ready&api.Writable != 0:
		violation(ev, "writable event for a non-outbound token")

	case d.incoming.IsListenerToken(tok):
		l, ok := d.incoming.Listener(tok)
		if !ok {
			violation(ev, "listener token without listener")
		}
		if l.Kind() == DatagramListener {
			return d.incoming.ReceiveDatagram(d.outgoing, tok)
		}
		return d.incoming.Accept(tok)

	default:
		// An earlier event in the same batch may have closed this connection.
		if !d.incoming.Connections().Contains(tok) {
			d.log.Debug("stale connection token", zap.Stringer("token", tok), zap.Stringer("ready", ev.Ready))
			return nil
		}
		return d.incoming.Readable(d.outgoing, tok)
	}
	return nil
}

func violation(ev api.Event, reason string) {
	panic(&api.InvariantError{Token: ev.Token, Ready: ev.Ready, Reason: reason})
}
