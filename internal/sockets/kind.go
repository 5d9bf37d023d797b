// File: internal/sockets/kind.go
// Author: momentics <momentics@gmail.com>

package sockets

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind selects the socket type of a local listening endpoint.
type Kind int

const (
	Stream Kind = iota
	Datagram
)

func (k Kind) String() string {
	switch k {
	case Stream:
		return "stream"
	case Datagram:
		return "datagram"
	default:
		return "unknown"
	}
}

// ParseKind accepts "stream" or "datagram" (case-insensitive). An empty
// string means Stream.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stream":
		return Stream, nil
	case "datagram", "dgram":
		return Datagram, nil
	default:
		return Stream, errors.Errorf("unknown socket kind %q", s)
	}
}
