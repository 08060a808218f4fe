//go:build windows

package ipc

import (
	"context"
	"fmt"
	"net"
	"os/user"

	"github.com/Microsoft/go-winio"
)

// Listen creates the daemon's named pipe listener. Unlike the randomized,
// UUID-suffixed pipe names some IPC layers use to dodge collisions, this
// endpoint is the fixed name spec.md §3/§6 mandate, so daemon and client
// agree on it without an out-of-band discovery file. The security
// descriptor restricts the pipe to the owning user's SID (the Open
// Question decision recorded in DESIGN.md); go-winio additionally refuses
// connections from remote machines by default.
func Listen(e Endpoint) (net.Listener, error) {
	sd, err := ownerOnlySecurityDescriptor()
	if err != nil {
		return nil, fmt.Errorf("ipc: %w", err)
	}

	l, err := winio.ListenPipe(e.EndpointAddr(), &winio.PipeConfig{
		SecurityDescriptor: sd,
		MessageMode:        false,
		InputBufferSize:    4096,
		OutputBufferSize:   4096,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
	}
	return l, nil
}

// Dial connects to the daemon's named pipe.
func Dial(ctx context.Context, e Endpoint) (net.Conn, error) {
	conn, err := winio.DialPipeContext(ctx, e.EndpointAddr())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	return conn, nil
}

// ownerOnlySecurityDescriptor builds the SDDL string granting Generic All
// to the current user only, with no inherited ACEs (the "D:P(...)" prefix).
func ownerOnlySecurityDescriptor() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("look up current user: %w", err)
	}
	return fmt.Sprintf("D:P(A;;GA;;;%s)", u.Uid), nil
}
