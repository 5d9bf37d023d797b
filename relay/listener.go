// File: relay/listener.go
// Author: momentics <momentics@gmail.com>

package relay

import (
	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/internal/sockets"
)

// ListenerKind selects stream (accept then read) or datagram (read directly)
// listening endpoints.
type ListenerKind = sockets.Kind

const (
	StreamListener   = sockets.Stream
	DatagramListener = sockets.Datagram
)

// ParseListenerKind accepts "stream" or "datagram".
func ParseListenerKind(s string) (ListenerKind, error) {
	return sockets.ParseKind(s)
}

// Listener is a bound unix socket living for the whole process.
type Listener struct {
	path  string
	kind  ListenerKind
	fd    int
	token api.Token
}

// Listen binds a non-blocking unix socket at path. The path must not exist.
func Listen(path string, kind ListenerKind) (*Listener, error) {
	fd, err := sockets.ListenUnix(path, kind)
	if err != nil {
		return nil, err
	}
	return &Listener{path: path, kind: kind, fd: fd, token: api.InvalidToken}, nil
}

func (l *Listener) Path() string       { return l.path }
func (l *Listener) Kind() ListenerKind { return l.kind }
func (l *Listener) Token() api.Token   { return l.token }
func (l *Listener) FD() int            { return l.fd }

// Close closes the socket. The filesystem path is left in place.
func (l *Listener) Close() error {
	fd := l.fd
	if fd < 0 {
		return nil
	}
	l.fd = -1
	return sockets.Close(fd)
}
