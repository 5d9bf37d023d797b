// File: api/token.go
// Author: momentics <momentics@gmail.com>
//
// Opaque readiness tokens shared by the poller and the relay slot table.

package api

import "fmt"

// Token identifies a registered resource to the poller. The low 32 bits are a
// slot index, the high 32 bits a generation counter that changes every time
// the slot is recycled.
type Token uint64

const (
	// OutgoingToken is reserved for the single outbound writer.
	OutgoingToken Token = 0

	// InvalidToken marks a resource that has not been given a slot yet.
	InvalidToken Token = ^Token(0)
)

// NewToken packs a slot index and generation.
func NewToken(index, generation uint32) Token {
	return Token(generation)<<32 | Token(index)
}

// Index returns the slot index part of the token.
func (t Token) Index() uint32 { return uint32(t) }

// Generation returns the generation part of the token.
func (t Token) Generation() uint32 { return uint32(t >> 32) }

func (t Token) String() string {
	if t == InvalidToken {
		return "invalid"
	}
	if t.Generation() == 0 {
		return fmt.Sprintf("%d", t.Index())
	}
	return fmt.Sprintf("%d/g%d", t.Index(), t.Generation())
}
