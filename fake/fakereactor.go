// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides an in-memory api.Poller for deterministic tests of
// the relay loop.
package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/hioload-logrelay/api"
)

// Registration is the poller's view of one descriptor.
type Registration struct {
	FD       int
	Token    api.Token
	Interest api.Interest
	Mode     api.Mode
	Armed    bool
}

// Poller delivers scripted events plus, when AlwaysWritable is set, a
// writable event for every armed one-shot write registration, the way a UDP
// socket with an empty send buffer behaves under epoll.
type Poller struct {
	AlwaysWritable bool

	mu         sync.Mutex
	regs       map[int]*Registration
	fired      []api.Event
	deliveries map[api.Token]int
	waits      int
	closed     bool
}

// NewPoller returns a poller that simulates always-writable sockets.
func NewPoller() *Poller {
	return &Poller{
		AlwaysWritable: true,
		regs:           make(map[int]*Registration),
		deliveries:     make(map[api.Token]int),
	}
}

func (p *Poller) Register(fd int, tok api.Token, interest api.Interest, mode api.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return api.ErrClosed
	}
	if _, ok := p.regs[fd]; ok {
		return fmt.Errorf("fake poller: fd %d already registered", fd)
	}
	p.regs[fd] = &Registration{FD: fd, Token: tok, Interest: interest, Mode: mode, Armed: true}
	return nil
}

func (p *Poller) Reregister(fd int, tok api.Token, interest api.Interest, mode api.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.regs[fd]
	if !ok {
		return fmt.Errorf("fake poller: fd %d: %w", fd, api.ErrNotFound)
	}
	r.Token, r.Interest, r.Mode, r.Armed = tok, interest, mode, true
	return nil
}

func (p *Poller) Deregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.regs[fd]; !ok {
		return fmt.Errorf("fake poller: fd %d: %w", fd, api.ErrNotFound)
	}
	delete(p.regs, fd)
	return nil
}

// Fire queues an event for the next Wait. It is delivered verbatim, even
// for tokens that are no longer registered.
func (p *Poller) Fire(tok api.Token, ready api.Interest) {
	p.mu.Lock()
	p.fired = append(p.fired, api.Event{Token: tok, Ready: ready})
	p.mu.Unlock()
}

// Wait never blocks.
func (p *Poller) Wait(events []api.Event, _ time.Duration) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, api.ErrClosed
	}
	p.waits++
	n := 0
	for n < len(events) && len(p.fired) > 0 {
		events[n] = p.fired[0]
		p.fired = p.fired[1:]
		p.deliveries[events[n].Token]++
		n++
	}
	if !p.AlwaysWritable {
		return n, nil
	}
	for _, r := range p.regs {
		if n == len(events) {
			break
		}
		if r.Mode != api.OneShot || r.Interest&api.Writable == 0 || !r.Armed {
			continue
		}
		r.Armed = false
		events[n] = api.Event{Token: r.Token, Ready: api.Writable}
		p.deliveries[r.Token]++
		n++
	}
	return n, nil
}

func (p *Poller) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Deliveries counts events handed out for tok.
func (p *Poller) Deliveries(tok api.Token) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deliveries[tok]
}

// Waits counts Wait calls.
func (p *Poller) Waits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

// Lookup returns the registration for tok, if any.
func (p *Poller) Lookup(tok api.Token) (Registration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.regs {
		if r.Token == tok {
			return *r, true
		}
	}
	return Registration{}, false
}

// Registered counts registered descriptors.
func (p *Poller) Registered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.regs)
}

var _ api.Poller = (*Poller)(nil)
