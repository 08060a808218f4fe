//go:build unix

package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"time"
)

// Listen binds the daemon's Unix domain socket. Before binding it checks
// whether a live peer already owns the endpoint (dialable) and, if not,
// removes a stale socket file if one exists (spec.md §4.1 "Listener
// creation policy"). The parent directory was already created user-only by
// NewEndpoint; the socket file itself is additionally chmod'd 0600.
func Listen(e Endpoint) (net.Listener, error) {
	addr := e.EndpointAddr()

	if canDial(addr) {
		return nil, fmt.Errorf("%w: %s", ErrBindFailed, addr)
	}
	_ = os.Remove(addr) // best-effort: stale socket file from a dead daemon

	l, err := net.Listen("unix", addr)
	if err != nil {
		if isAddrInUse(err) {
			return nil, fmt.Errorf("%w: %s", ErrBindFailed, addr)
		}
		return nil, fmt.Errorf("ipc: listen %s: %w", addr, err)
	}
	if err := os.Chmod(addr, 0o600); err != nil {
		l.Close()
		return nil, fmt.Errorf("ipc: chmod %s: %w", addr, err)
	}
	return l, nil
}

// Dial connects to the daemon's Unix domain socket.
func Dial(ctx context.Context, e Endpoint) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", e.EndpointAddr())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	return conn, nil
}

// canDial reports whether the Unix socket at addr currently has a live
// listener behind it.
func canDial(addr string) bool {
	conn, err := net.DialTimeout("unix", addr, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// isAddrInUse reports whether err indicates the socket path is already
// bound by another listener.
func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	if opErr, ok := err.(*net.OpError); ok {
		if syscallErr, ok := opErr.Err.(*os.SyscallError); ok {
			return syscallErr.Err == syscall.EADDRINUSE
		}
	}
	return strings.Contains(err.Error(), "address already in use")
}
