package relay

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/control"
	"github.com/momentics/hioload-logrelay/reactor"
)

// udpSink stands in for the remote collector.
type udpSink struct {
	conn *net.UDPConn
}

func newUDPSink(t *testing.T) *udpSink {
	t.Helper()
	c, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &udpSink{conn: c}
}

func (s *udpSink) addr() string { return s.conn.LocalAddr().String() }

// expect reads exactly n datagrams.
func (s *udpSink) expect(t *testing.T, n int) []string {
	t.Helper()
	var out []string
	buf := make([]byte, 64*1024)
	for len(out) < n {
		s.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		k, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("received %d of %d datagrams: %v", len(out), n, err)
		}
		out = append(out, string(buf[:k]))
	}
	return out
}

func (s *udpSink) expectNone(t *testing.T) {
	t.Helper()
	buf := make([]byte, 1024)
	s.conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if k, _, err := s.conn.ReadFromUDP(buf); err == nil {
		t.Fatalf("unexpected datagram %q", buf[:k])
	}
}

func listen(t *testing.T, name string, kind ListenerKind) (*Listener, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	l, err := Listen(path, kind)
	if err != nil {
		t.Fatalf("Listen(%s): %v", path, err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func dial(t *testing.T, network, path string) net.Conn {
	t.Helper()
	c, err := net.Dial(network, path)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func newEpoll(t *testing.T) api.Poller {
	t.Helper()
	p, err := reactor.NewPoller(16)
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	return p
}

func newRelay(t *testing.T, p api.Poller, listeners []*Listener, dest string, opts Options) *Relay {
	t.Helper()
	if opts.Metrics == nil {
		opts.Metrics = control.NewMetrics()
	}
	r, err := New(p, listeners, dest, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// stepUntil drives the loop until cond holds.
func stepUntil(t *testing.T, r *Relay, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s (stats %+v)", what, r.Stats())
		}
		if _, err := r.Step(20 * time.Millisecond); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
}

func liveTokens(r *Relay) []api.Token {
	var toks []api.Token
	r.incoming.Connections().Range(func(tok api.Token, _ *Connection) bool {
		toks = append(toks, tok)
		return true
	})
	return toks
}
