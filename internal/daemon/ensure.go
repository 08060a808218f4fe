package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/mvp-joe/mcpline/internal/ipc"
	"github.com/mvp-joe/mcpline/internal/protocol"
)

// EnsureDaemon runs spec.md §4.4's client-side sequence: orphan
// cleanup, spawn if nothing answers, then fingerprint validation. On
// success it returns an open Handle to a daemon whose fingerprint
// matches cfg.Config.
func EnsureDaemon(ctx context.Context, cfg EnsureConfig) (*Handle, error) {
	cfg = cfg.WithDefaults()

	alive, err := cleanupOrphan(ctx, cfg.Endpoint, cfg.KillGraceTimeout)
	if err != nil {
		return nil, err
	}

	if !alive {
		if cfg.Mode == ModeRequireDaemon {
			return nil, ErrNoDaemon
		}
		if err := spawnDaemon(cfg); err != nil {
			return nil, err
		}
		if err := waitForHealthy(ctx, cfg.Endpoint, cfg.StartupTimeout); err != nil {
			return nil, err
		}
	}

	return reconcileFingerprint(ctx, cfg)
}

// reconcileFingerprint dials the daemon, compares its fingerprint
// against the CLI's locally-computed one, and restarts the daemon if
// they differ or if the daemon cannot be reached at all (spec.md §4.4
// step 3: any error or mismatch is treated as stale).
func reconcileFingerprint(ctx context.Context, cfg EnsureConfig) (*Handle, error) {
	want, err := protocol.Fingerprint(cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("daemon: compute local fingerprint: %w", err)
	}

	h, err := dial(ctx, cfg.Endpoint)
	if err != nil {
		return respawnAndConnect(ctx, cfg)
	}

	resp, sendErr := h.Send(ctx, protocol.NewGetConfigFingerprintRequest())
	if sendErr != nil || resp.Kind != protocol.ResponseConfigFingerprint {
		h.Close()
		return respawnAndConnect(ctx, cfg)
	}
	if resp.Fingerprint == want {
		// h's connection already served its one request-response and
		// was closed on the daemon side (spec.md §4.2: one request per
		// connection); hand back a fresh connection instead of a dead one.
		h.Close()
		return dial(ctx, cfg.Endpoint)
	}

	// Config changed underneath this daemon: shut it down and spawn
	// its replacement. h already served its one request, so Shutdown
	// goes out on a fresh connection.
	h.Close()
	if sh, err := dial(ctx, cfg.Endpoint); err == nil {
		sh.Shutdown(ctx)
		sh.Close()
	}
	waitQuiet(ctx, cfg.Endpoint, cfg.ShutdownQuietTimeout)

	return respawnAndConnect(ctx, cfg)
}

func respawnAndConnect(ctx context.Context, cfg EnsureConfig) (*Handle, error) {
	if cfg.Mode == ModeRequireDaemon {
		return nil, ErrNoDaemon
	}
	if err := spawnDaemon(cfg); err != nil {
		return nil, err
	}
	if err := waitForHealthy(ctx, cfg.Endpoint, cfg.StartupTimeout); err != nil {
		return nil, err
	}
	h, err := dial(ctx, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("daemon: connect to freshly spawned daemon: %w", err)
	}
	return h, nil
}

func dial(ctx context.Context, e ipc.Endpoint) (*Handle, error) {
	conn, err := ipc.Dial(ctx, e)
	if err != nil {
		return nil, err
	}
	return newHandle(conn), nil
}

// waitQuiet polls until the endpoint stops accepting connections or the
// timeout elapses. Best-effort: if the old daemon still accepts
// connections after this window, the replacement's internal/ipc Listen
// refuses to bind and fails with ipc.ErrBindFailed.
func waitQuiet(ctx context.Context, e ipc.Endpoint, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		dialCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		conn, err := ipc.Dial(dialCtx, e)
		cancel()
		if err != nil {
			return
		}
		conn.Close()
		time.Sleep(100 * time.Millisecond)
	}
}
