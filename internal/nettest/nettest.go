// Package nettest provides loopback TCP fixtures for tests.
package nettest

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"testing"
)

// Listen binds an ephemeral loopback port and accepts connections until the
// test ends, closing each one right away. The test is skipped when the
// sandbox forbids listening.
func Listen(t testing.TB) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		if shouldSkip(err) {
			t.Skipf("skipping: cannot listen on loopback: %v", err)
		}
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return ln
}

// ClosedAddr returns a loopback address nothing listens on, so dialing it is
// refused.
func ClosedAddr(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		if shouldSkip(err) {
			t.Skipf("skipping: cannot listen on loopback: %v", err)
		}
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}

// Port returns the TCP port ln is bound to.
func Port(ln net.Listener) uint16 {
	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

// Silent is a dialer whose peer never answers: every dial blocks until
// the caller's context ends.
type Silent struct{}

func (Silent) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// Redirect dials Routes[address] in place of address when present.
type Redirect struct {
	Routes map[string]string
	Dialer net.Dialer
}

func (r *Redirect) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if to, ok := r.Routes[address]; ok {
		address = to
	}
	return r.Dialer.DialContext(ctx, network, address)
}

func shouldSkip(err error) bool {
	if errors.Is(err, syscall.EPERM) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted")
}
