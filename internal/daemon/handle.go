package daemon

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// Handle is an open IPC connection to a daemon. Each Send round-trips
// exactly one request, and the daemon closes the connection after
// answering it (one request per connection), so callers that need
// several (e.g. GetConfigFingerprint followed later by a real request)
// dial a fresh Handle for each.
type Handle struct {
	conn   net.Conn
	reader *bufio.Reader
}

func newHandle(conn net.Conn) *Handle {
	return &Handle{conn: conn, reader: bufio.NewReader(conn)}
}

// Send writes req and waits for its matching response, honoring ctx's
// deadline via the underlying connection's read/write deadline.
func (h *Handle) Send(ctx context.Context, req protocol.DaemonRequest) (protocol.DaemonResponse, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = h.conn.SetDeadline(deadline)
	} else {
		_ = h.conn.SetDeadline(time.Time{})
	}

	if err := protocol.WriteMessage(h.conn, req); err != nil {
		return protocol.DaemonResponse{}, err
	}
	var resp protocol.DaemonResponse
	if err := protocol.ReadMessage(h.reader, &resp); err != nil {
		return protocol.DaemonResponse{}, err
	}
	return resp, nil
}

// Shutdown sends a best-effort Shutdown request per spec.md §4.4: any
// outcome other than hanging counts as success, since the daemon is
// either gone already or about to be.
func (h *Handle) Shutdown(ctx context.Context) {
	_, _ = h.Send(ctx, protocol.NewShutdownRequest())
}

// Close closes the underlying connection.
func (h *Handle) Close() error {
	return h.conn.Close()
}
