package daemon

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mvp-joe/mcpline/internal/ipc"
)

// orphanProbeTimeout bounds the initial liveness dial; a daemon that
// cannot answer this fast is treated as unresponsive regardless of
// whether its process still exists.
const orphanProbeTimeout = 500 * time.Millisecond

// cleanupOrphan implements spec.md §4.4 step 1. It reports whether a
// live daemon already answers at e; when it does the caller skips
// straight to fingerprint validation.
func cleanupOrphan(ctx context.Context, e ipc.Endpoint, killGrace time.Duration) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, orphanProbeTimeout)
	conn, err := ipc.Dial(dialCtx, e)
	cancel()
	if err == nil {
		conn.Close()
		return true, nil
	}

	pid, ok := readPIDFile(e.PIDPath())
	if !ok {
		return false, nil
	}

	if !isProcessAlive(pid) {
		log.Printf("daemon: removing stale endpoint files of dead daemon (pid %d)", pid)
		removeArtifacts(e)
		return false, nil
	}

	// The process exists but its endpoint refuses connections. This is
	// a recovery path, not a routine one: terminate it and reclaim the
	// files it left behind.
	log.Printf("daemon: daemon pid %d is alive but not accepting connections, terminating it", pid)
	killGraceful(pid)
	if !waitProcessGone(pid, killGrace) {
		killHard(pid)
		waitProcessGone(pid, killGrace)
	}
	removeArtifacts(e)
	return false, nil
}

func readPIDFile(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func waitProcessGone(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isProcessAlive(pid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return !isProcessAlive(pid)
}

func removeArtifacts(e ipc.Endpoint) {
	_ = os.Remove(e.EndpointAddr())
	_ = os.Remove(e.PIDPath())
	_ = os.Remove(e.FingerprintPath())
}
