// File: relay/table.go
// Author: momentics <momentics@gmail.com>

package relay

import (
	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/internal/slab"
	"github.com/pkg/errors"
)

// ConnectionTable owns every live Connection and hands out their tokens.
// Removing an entry closes its socket immediately.
type ConnectionTable struct {
	slots *slab.Slab[*Connection]
}

// NewConnectionTable creates a table whose first token index is first.
func NewConnectionTable(first uint32, capacity int) *ConnectionTable {
	return &ConnectionTable{slots: slab.New[*Connection](first, capacity)}
}

// Insert stores c in the lowest free slot and returns the slot token. It
// does not assign the token to c.
func (t *ConnectionTable) Insert(c *Connection) (api.Token, error) {
	tok, err := t.slots.Insert(c)
	if err != nil {
		return api.InvalidToken, errors.Wrap(err, "unable to allocate connection slot")
	}
	return tok, nil
}

// Get returns the live connection for tok.
func (t *ConnectionTable) Get(tok api.Token) (*Connection, error) {
	c, ok := t.slots.Get(tok)
	if !ok {
		return nil, errors.Wrapf(api.ErrStaleToken, "connection %s", tok)
	}
	return c, nil
}

// Contains reports whether tok names a live connection.
func (t *ConnectionTable) Contains(tok api.Token) bool {
	return t.slots.Contains(tok)
}

// Remove frees the slot for tok and closes the connection socket.
func (t *ConnectionTable) Remove(tok api.Token) error {
	c, ok := t.slots.Remove(tok)
	if !ok {
		return errors.Wrapf(api.ErrStaleToken, "connection %s", tok)
	}
	if err := c.close(); err != nil {
		return errors.Wrapf(err, "unable to close connection %s", tok)
	}
	return nil
}

// Len returns the number of live connections.
func (t *ConnectionTable) Len() int { return t.slots.Len() }

// Range visits live connections in slot order.
func (t *ConnectionTable) Range(fn func(api.Token, *Connection) bool) {
	t.slots.Range(fn)
}
