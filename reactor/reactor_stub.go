//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-logrelay/api"
)

// DefaultMaxEvents bounds one Wait batch when the caller passes no size.
const DefaultMaxEvents = 128

// NewPoller returns an error for unsupported platforms.
func NewPoller(int) (api.Poller, error) {
	return nil, fmt.Errorf("reactor: %w on this platform", api.ErrNotSupported)
}
