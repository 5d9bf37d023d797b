package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-logrelay/control"
)

func TestRunForwardsAndUnlinksOnShutdown(t *testing.T) {
	sink, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	defer sink.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "relay.sock")
	// A leftover socket file from an earlier run must not block startup.
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := control.DefaultConfig()
	cfg.Destination = sink.LocalAddr().String()
	cfg.Listen = []control.ListenerConfig{{Path: path}}
	cfg.Log.Output = filepath.Join(dir, "relay.log")
	cfg.ApplyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	var conn net.Conn
	deadline := time.Now().Add(3 * time.Second)
	for conn == nil {
		if c, err := net.Dial("unix", path); err == nil {
			conn = c
		} else if time.Now().After(deadline) {
			t.Fatalf("relay never listened: %v", err)
		} else {
			time.Sleep(10 * time.Millisecond)
		}
	}
	defer conn.Close()
	conn.Write([]byte("<14>started"))

	buf := make([]byte, 256)
	sink.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, _, err := sink.ReadFromUDP(buf)
	if err != nil || string(buf[:n]) != "<14>started" {
		t.Fatalf("received %q, %v", buf[:n], err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("socket path left behind: %v", err)
	}
}
