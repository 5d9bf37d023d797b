//go:build !linux
// +build !linux

// File: internal/sockets/sockets_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package sockets

import "github.com/momentics/hioload-logrelay/api"

// Destination is a resolved datagram peer address.
type Destination struct {
	hostport string
}

func (d Destination) String() string { return d.hostport }

func ListenUnix(string, Kind) (int, error) { return -1, api.ErrNotSupported }
func Accept(int) (int, bool, error) { return -1, false, api.ErrNotSupported }
func Read(int, []byte) (int, bool, error) { return 0, false, api.ErrNotSupported }
func Close(int) error { return api.ErrNotSupported }

func ReadDatagram(int, []byte) (int, bool, bool, error) { return 0, false, false, api.ErrNotSupported }
func Unlink(string) error { return api.ErrNotSupported }
func OpenDatagram(Destination) (int, error) { return -1, api.ErrNotSupported }
func SendTo(int, []byte, Destination) error { return api.ErrNotSupported }

func ResolveDestination(hostport string) (Destination, error) {
	return Destination{hostport: hostport}, api.ErrNotSupported
}
