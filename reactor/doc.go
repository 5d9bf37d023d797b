// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness poller used by the relay loop.
// On Linux it is backed by epoll(7) with per-registration level-triggered
// or one-shot delivery; other platforms get a stub that refuses to start.
package reactor
