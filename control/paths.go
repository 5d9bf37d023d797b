// control/paths.go
// Author: momentics <momentics@gmail.com>
//
// Process-scoped registry of filesystem socket paths that must be unlinked
// when the process stops. Startup fills it once; the signal path only reads.

package control

import (
	"os"
	"sync"

	"github.com/pkg/errors"
)

// PathRegistry records listener socket paths for cleanup.
type PathRegistry struct {
	mu    sync.RWMutex
	paths []string
}

// NewPathRegistry creates an empty registry.
func NewPathRegistry() *PathRegistry {
	return &PathRegistry{}
}

// Set replaces the registered paths.
func (r *PathRegistry) Set(paths []string) {
	cp := append([]string(nil), paths...)
	r.mu.Lock()
	r.paths = cp
	r.mu.Unlock()
}

// Paths returns a copy of the registered paths.
func (r *PathRegistry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.paths...)
}

// UnlinkAll removes every registered path, ignoring ones already gone. It
// keeps going after a failure and returns the first error.
func (r *PathRegistry) UnlinkAll() error {
	var first error
	for _, p := range r.Paths() {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && first == nil {
			first = errors.Wrapf(err, "unable to remove socket %s", p)
		}
	}
	return first
}
