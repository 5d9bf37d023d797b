// File: relay/pending.go
// Author: momentics <momentics@gmail.com>

package relay

import "github.com/eapache/queue"

// PendingBuffer is the unbounded FIFO of payloads between the incoming
// reads and the outbound writer.
type PendingBuffer struct {
	q     *queue.Queue
	bytes int
}

// NewPendingBuffer creates an empty buffer.
func NewPendingBuffer() *PendingBuffer {
	return &PendingBuffer{q: queue.New()}
}

// Push appends one payload. The buffer takes ownership of p.
func (b *PendingBuffer) Push(p []byte) {
	b.q.Add(p)
	b.bytes += len(p)
}

// Len returns the number of buffered payloads.
func (b *PendingBuffer) Len() int { return b.q.Length() }

// Bytes returns the total size of buffered payloads.
func (b *PendingBuffer) Bytes() int { return b.bytes }

// Drain removes every payload present at call time, oldest first, and hands
// ownership of each to fn. It returns the number drained.
func (b *PendingBuffer) Drain(fn func([]byte)) int {
	n := b.q.Length()
	for i := 0; i < n; i++ {
		p := b.q.Remove().([]byte)
		b.bytes -= len(p)
		fn(p)
	}
	return n
}
