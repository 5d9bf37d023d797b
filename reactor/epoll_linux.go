//go:build linux
// +build linux

// File: reactor/epoll_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based poller implementation and factory.

package reactor

import (
	"fmt"
	"time"

	"github.com/momentics/hioload-logrelay/api"
	"golang.org/x/sys/unix"
)

// DefaultMaxEvents bounds one Wait batch when the caller passes no size.
const DefaultMaxEvents = 128

// epollPoller implements api.Poller using Linux epoll.
type epollPoller struct {
	epfd int
	raw  []unix.EpollEvent // reused across Wait calls
}

// NewPoller constructs the platform poller.
func NewPoller(maxEvents int) (api.Poller, error) {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollPoller{
		epfd: epfd,
		raw:  make([]unix.EpollEvent, maxEvents),
	}, nil
}

func (p *epollPoller) Register(fd int, tok api.Token, interest api.Interest, mode api.Mode) error {
	if err := p.ctl(unix.EPOLL_CTL_ADD, fd, tok, interest, mode); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Reregister(fd int, tok api.Token, interest api.Interest, mode api.Mode) error {
	if err := p.ctl(unix.EPOLL_CTL_MOD, fd, tok, interest, mode); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) Deregister(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) ctl(op, fd int, tok api.Token, interest api.Interest, mode api.Mode) error {
	ev := unix.EpollEvent{Events: epollFlags(interest, mode)}
	encodeToken(&ev, tok)
	return unix.EpollCtl(p.epfd, op, fd, &ev)
}

// Wait blocks until at least one registered fd is ready or timeout expires.
func (p *epollPoller) Wait(events []api.Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, api.ErrInvalidArgument
	}
	if len(events) > len(p.raw) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	n, err := unix.EpollWait(p.epfd, p.raw[:len(events)], timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil // interrupted by signal, normal
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		events[i] = api.Event{
			Token: decodeToken(&p.raw[i]),
			Ready: readiness(p.raw[i].Events),
		}
	}
	return n, nil
}

// Close releases the epoll file descriptor.
func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

func epollFlags(interest api.Interest, mode api.Mode) uint32 {
	var flags uint32
	if interest&api.Readable != 0 {
		flags |= unix.EPOLLIN
	}
	if interest&api.Writable != 0 {
		flags |= unix.EPOLLOUT
	}
	if interest&api.Hangup != 0 {
		flags |= unix.EPOLLRDHUP
	}
	if mode == api.OneShot {
		flags |= unix.EPOLLONESHOT
	}
	return flags
}

func readiness(flags uint32) api.Interest {
	var r api.Interest
	if flags&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		r |= api.Readable
	}
	if flags&unix.EPOLLOUT != 0 {
		r |= api.Writable
	}
	if flags&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		r |= api.Hangup
	}
	if flags&unix.EPOLLERR != 0 {
		r |= api.Failed
	}
	return r
}

// The 64-bit epoll data word is exposed as two int32 fields; Fd holds the
// low half and Pad the high half.
func encodeToken(ev *unix.EpollEvent, tok api.Token) {
	ev.Fd = int32(uint32(tok))
	ev.Pad = int32(uint32(tok >> 32))
}

func decodeToken(ev *unix.EpollEvent) api.Token {
	return api.Token(uint32(ev.Fd)) | api.Token(uint32(ev.Pad))<<32
}

func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}
