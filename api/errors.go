// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types shared by the poller and relay packages.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the relay.
var (
	ErrClosed            = errors.New("resource is closed")
	ErrNotFound          = errors.New("resource not found")
	ErrStaleToken        = errors.New("token does not name a live resource")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotSupported      = errors.New("operation not supported")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// InvariantError reports a readiness event that cannot happen while the
// token space is consistent. The dispatcher panics with it.
type InvariantError struct {
	Token  Token
	Ready  Interest
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated: %s (token=%s ready=%s)", e.Reason, e.Token, e.Ready)
}
