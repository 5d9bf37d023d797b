// File: relay/connection.go
// Author: momentics <momentics@gmail.com>

package relay

import (
	"github.com/momentics/hioload-logrelay/api"
	"github.com/momentics/hioload-logrelay/internal/sockets"
)

// Connection wraps one accepted, non-blocking client socket.
type Connection struct {
	fd         int
	token      api.Token
	readErrors int // consecutive failed reads
}

// NewConnection wraps fd. The token stays invalid until AssignToken.
func NewConnection(fd int) *Connection {
	return &Connection{fd: fd, token: api.InvalidToken}
}

// AssignToken binds the slot token handed back by the connection table.
func (c *Connection) AssignToken(tok api.Token) { c.token = tok }

// Token returns the assigned token or api.InvalidToken.
func (c *Connection) Token() api.Token { return c.token }

// FD returns the raw descriptor, -1 once closed.
func (c *Connection) FD() int { return c.fd }

func (c *Connection) read(buf []byte) (int, bool, error) {
	return sockets.Read(c.fd, buf)
}

func (c *Connection) close() error {
	fd := c.fd
	if fd < 0 {
		return nil
	}
	c.fd = -1
	return sockets.Close(fd)
}
