// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the readiness poller used by the relay
// to multiplex listeners, accepted connections and the outbound writer.

package api

import "time"

// Interest is a bit set of readiness conditions. It is used both to request
// notifications and to report them.
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
	Hangup
	// Failed is only ever reported, never requested.
	Failed
)

func (i Interest) String() string {
	if i == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if i&Readable != 0 {
		add("readable")
	}
	if i&Writable != 0 {
		add("writable")
	}
	if i&Hangup != 0 {
		add("hangup")
	}
	if i&Failed != 0 {
		add("failed")
	}
	return s
}

// Mode selects how the poller keeps reporting a ready resource.
type Mode uint8

const (
	// Level re-reports readiness on every Wait while the condition holds.
	Level Mode = iota
	// OneShot reports readiness once, then disarms the registration until
	// Reregister is called.
	OneShot
)

func (m Mode) String() string {
	if m == OneShot {
		return "oneshot"
	}
	return "level"
}

// Event encapsulates one readiness notification.
type Event struct {
	Token Token
	Ready Interest
}

// Poller is a single-threaded readiness multiplexer over raw descriptors.
type Poller interface {
	// Register starts watching fd and tags its notifications with tok.
	Register(fd int, tok Token, interest Interest, mode Mode) error

	// Reregister replaces the interest set of an already registered fd.
	// For OneShot registrations this is what re-arms delivery.
	Reregister(fd int, tok Token, interest Interest, mode Mode) error

	// Deregister stops watching fd.
	Deregister(fd int) error

	// Wait blocks up to timeout (negative means forever) and fills events.
	// An interrupted wait returns zero events and no error.
	Wait(events []Event, timeout time.Duration) (int, error)

	// Close releases the poller backend.
	Close() error
}
