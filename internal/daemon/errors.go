package daemon

import (
	"errors"
	"strings"

	"github.com/mvp-joe/mcpline/internal/ipc"
)

// ErrNoDaemon is returned by EnsureDaemon in ModeRequireDaemon when no
// live daemon answers and spawning one is disallowed.
var ErrNoDaemon = errors.New("daemon: no daemon running and spawning is disabled")

// IsConnectionError reports whether err indicates the daemon endpoint
// itself is unreachable, as distinct from a protocol-level failure once
// connected. Callers use it to decide whether a failed request warrants
// an EnsureDaemon retry.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ipc.ErrConnectFailed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such file or directory") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "use of closed network connection")
}
