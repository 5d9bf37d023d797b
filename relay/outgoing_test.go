package relay

import (
	"testing"

	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/fake"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOutgoingCloseLogsDeregisterFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p := fake.NewPoller()
	sink := newUDPSink(t)
	f, err := NewOutgoingForwarder(p, sink.addr(), NewPendingBuffer(), OutgoingOptions{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("NewOutgoingForwarder: %v", err)
	}
	reg, ok := p.Lookup(api.OutgoingToken)
	if !ok {
		t.Fatal("outbound socket not registered")
	}
	// Someone else already dropped the registration.
	if err := p.Deregister(reg.FD); err != nil {
		t.Fatalf("Deregister: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.fd != -1 || f.Armed() {
		t.Error("forwarder still holds its socket")
	}
	if got := logs.FilterMessage("deregister failed").Len(); got != 1 {
		t.Errorf("deregister failures logged = %d, want 1", got)
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
