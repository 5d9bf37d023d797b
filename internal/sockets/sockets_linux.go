//go:build linux
// +build linux

// File: internal/sockets/sockets_linux.go
// Author: momentics <momentics@gmail.com>
//
// Package sockets wraps the raw non-blocking socket calls the relay needs.
// Would-block results are reported through the ok flag, never as errors.

package sockets

import (
	"net"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const listenBacklog = 128

// ListenUnix binds a non-blocking unix socket at path. Stream sockets are
// also put into listening state.
func ListenUnix(path string, kind Kind) (int, error) {
	typ := unix.SOCK_STREAM
	if kind == Datagram {
		typ = unix.SOCK_DGRAM
	}
	fd, err := unix.Socket(unix.AF_UNIX, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errors.Wrap(os.NewSyscallError("socket", err), "unable to create unix socket")
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return -1, errors.Wrapf(os.NewSyscallError("bind", err), "unable to bind %s", path)
	}
	if kind == Stream {
		if err := unix.Listen(fd, listenBacklog); err != nil {
			unix.Close(fd)
			return -1, errors.Wrapf(os.NewSyscallError("listen", err), "unable to listen on %s", path)
		}
	}
	return fd, nil
}

// Accept takes one pending connection off a listening socket. The returned
// descriptor is non-blocking. ok is false when nothing was pending.
func Accept(fd int) (nfd int, ok bool, err error) {
	nfd, _, err = unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if wouldBlock(err) || err == unix.ECONNABORTED {
			return -1, false, nil
		}
		return -1, false, os.NewSyscallError("accept4", err)
	}
	return nfd, true, nil
}

// Read performs one read into buf. ok is false when no data was available.
// A zero count with ok set means the peer closed the stream.
func Read(fd int, buf []byte) (n int, ok bool, err error) {
	n, err = unix.Read(fd, buf)
	if err != nil {
		if wouldBlock(err) {
			return 0, false, nil
		}
		return 0, false, os.NewSyscallError("read", err)
	}
	return n, true, nil
}

// ReadDatagram receives one datagram into buf. truncated reports that the
// kernel discarded the part of the datagram that did not fit.
func ReadDatagram(fd int, buf []byte) (n int, truncated, ok bool, err error) {
	n, _, flags, _, err := unix.Recvmsg(fd, buf, nil, 0)
	if err != nil {
		if wouldBlock(err) {
			return 0, false, false, nil
		}
		return 0, false, false, os.NewSyscallError("recvmsg", err)
	}
	return n, flags&unix.MSG_TRUNC != 0, true, nil
}

// Close closes a raw descriptor.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

// Unlink removes a filesystem socket path. A missing path is not an error.
func Unlink(path string) error {
	if err := unix.Unlink(path); err != nil && err != unix.ENOENT {
		return errors.Wrapf(os.NewSyscallError("unlink", err), "unable to remove %s", path)
	}
	return nil
}

// Destination is a resolved datagram peer address.
type Destination struct {
	addr   *net.UDPAddr
	sa     unix.Sockaddr
	family int
}

// ResolveDestination resolves host:port once into a sendto address.
func ResolveDestination(hostport string) (Destination, error) {
	addr, err := net.ResolveUDPAddr("udp", hostport)
	if err != nil {
		return Destination{}, errors.Wrapf(err, "unable to resolve destination %q", hostport)
	}
	if len(addr.IP) == 0 {
		return Destination{}, errors.Errorf("destination %q has no host", hostport)
	}
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return Destination{addr: addr, sa: sa, family: unix.AF_INET}, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	if addr.Zone != "" {
		ifi, err := net.InterfaceByName(addr.Zone)
		if err != nil {
			return Destination{}, errors.Wrapf(err, "unknown zone in destination %q", hostport)
		}
		sa.ZoneId = uint32(ifi.Index)
	}
	return Destination{addr: addr, sa: sa, family: unix.AF_INET6}, nil
}

func (d Destination) String() string {
	if d.addr == nil {
		return "<unresolved>"
	}
	return d.addr.String()
}

// OpenDatagram creates a non-blocking UDP socket able to reach d.
func OpenDatagram(d Destination) (int, error) {
	if d.sa == nil {
		return -1, errors.New("destination is not resolved")
	}
	fd, err := unix.Socket(d.family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, errors.Wrap(os.NewSyscallError("socket", err), "unable to create datagram socket")
	}
	return fd, nil
}

// SendTo issues one non-blocking sendto of p to d.
func SendTo(fd int, p []byte, d Destination) error {
	if err := unix.Sendto(fd, p, 0, d.sa); err != nil {
		return os.NewSyscallError("sendto", err)
	}
	return nil
}

func wouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR
}
