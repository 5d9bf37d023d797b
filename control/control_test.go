package control

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPathRegistryUnlinkAll(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.sock")
	if err := os.WriteFile(present, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "b.sock")

	r := NewPathRegistry()
	in := []string{present, missing}
	r.Set(in)
	in[0] = "mutated"
	if got := r.Paths(); got[0] != present {
		t.Fatalf("registry aliased caller slice: %v", got)
	}
	if err := r.UnlinkAll(); err != nil {
		t.Fatalf("UnlinkAll: %v", err)
	}
	if _, err := os.Stat(present); !os.IsNotExist(err) {
		t.Errorf("%s still present", present)
	}
}

func TestMetricsAreIndependentPerInstance(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.MessagesForwarded.Add(3)
	a.ConnectionsClosed.WithLabelValues(CloseReasonEOF).Inc()
	if got := testutil.ToFloat64(a.MessagesForwarded); got != 3 {
		t.Errorf("a forwarded = %v", got)
	}
	if got := testutil.ToFloat64(b.MessagesForwarded); got != 0 {
		t.Errorf("b forwarded = %v", got)
	}

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `logrelay_connections_closed_total{reason="eof"} 1`) {
		t.Errorf("exposition missing close counter:\n%s", rec.Body.String())
	}
}

func TestDebugProbesServeJSON(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("relay.pending", func() any { return 4 })
	RegisterPlatformProbes(dp)

	rec := httptest.NewRecorder()
	dp.ServeHTTP(rec, httptest.NewRequest("GET", "/debug/state", nil))
	var state Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := state.Value("relay.pending"); !ok || v != float64(4) {
		t.Errorf("relay.pending = %v, %v", v, ok)
	}
	if _, ok := state.Value("platform.cpus"); !ok {
		t.Error("platform probes not registered")
	}
}

func TestDumpStateOrdersByName(t *testing.T) {
	dp := NewDebugProbes()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		name := name
		dp.RegisterProbe(name, func() any { return name })
	}
	// A probe may register further probes while being evaluated.
	dp.RegisterProbe("self", func() any {
		dp.RegisterProbe("late", func() any { return 1 })
		return "ok"
	})

	snap := dp.DumpState()
	var names []string
	for _, s := range snap.Probes {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "alpha,mid,self,zeta" {
		t.Errorf("order = %v", names)
	}
	if v, _ := snap.Value("self"); v != "ok" {
		t.Errorf("self = %v", v)
	}
	if _, ok := snap.Value("late"); ok {
		t.Error("probe registered mid-dump appeared in the same snapshot")
	}
	if _, ok := dp.DumpState().Value("late"); !ok {
		t.Error("late probe missing from the next snapshot")
	}
}
