package daemon

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/mvp-joe/mcpline/internal/ipc"
)

// spawnDaemon relaunches the current executable as a daemon, passing
// the configuration path (never its contents) and the app name used to
// derive the IPC endpoint (spec.md §4.4 step 2). The flags here must
// stay in sync with cmd/mcpline's "daemon run" subcommand.
func spawnDaemon(cfg EnsureConfig) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("daemon: resolve own executable: %w", err)
	}

	cmd := exec.Command(exe, "daemon", "run", "--config", cfg.ConfigPath, "--app", cfg.Endpoint.AppName)
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("daemon: spawn %s: %w", exe, err)
	}
	// The child outlives this process; Release detaches it so this
	// process's exit does not wait on or reap it.
	return cmd.Process.Release()
}

// waitForHealthy polls the endpoint with short backoffs until it
// accepts a connection or timeout elapses (spec.md §4.4 step 2: "≤100ms
// intervals, total cap ≤ a few seconds").
func waitForHealthy(ctx context.Context, e ipc.Endpoint, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := 20 * time.Millisecond
	for {
		dialCtx, dialCancel := context.WithTimeout(ctx, 100*time.Millisecond)
		conn, err := ipc.Dial(dialCtx, e)
		dialCancel()
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("daemon: endpoint did not become ready within %v", timeout)
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 100*time.Millisecond)
	}
}
