// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug probes and their JSON state endpoint.

package control

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// ProbeSample is one evaluated probe.
type ProbeSample struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Snapshot is the state of every probe, ordered by name.
type Snapshot struct {
	Probes []ProbeSample `json:"probes"`
}

// Value returns the sample recorded for name.
func (s Snapshot) Value(name string) (any, bool) {
	i := sort.Search(len(s.Probes), func(i int) bool { return s.Probes[i].Name >= name })
	if i < len(s.Probes) && s.Probes[i].Name == name {
		return s.Probes[i].Value, true
	}
	return nil, false
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// RegisterProbe inserts or replaces a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState evaluates every probe in name order. Probes run without the
// registry lock held.
func (dp *DebugProbes) DumpState() Snapshot {
	dp.mu.RLock()
	samples := make([]ProbeSample, 0, len(dp.probes))
	fns := make(map[string]func() any, len(dp.probes))
	for name, fn := range dp.probes {
		samples = append(samples, ProbeSample{Name: name})
		fns[name] = fn
	}
	dp.mu.RUnlock()

	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	for i := range samples {
		samples[i].Value = fns[samples[i].Name]()
	}
	return Snapshot{Probes: samples}
}

// ServeHTTP writes DumpState as JSON.
func (dp *DebugProbes) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dp.DumpState())
}
