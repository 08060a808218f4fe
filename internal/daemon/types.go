// Package daemon implements the client-side lifecycle manager of
// spec.md §4.4: the sequence a short-lived CLI invocation runs before
// it sends any request to make sure a fingerprint-matching daemon is
// listening at the configured IPC endpoint.
package daemon

import (
	"time"

	"github.com/mvp-joe/mcpline/internal/ipc"
	"github.com/mvp-joe/mcpline/internal/protocol"
)

// EnsureMode selects one of spec.md §4.4's CLI-visible behaviors.
// Standalone mode (run the daemon in the foreground until signaled) is
// not represented here since it never calls EnsureDaemon at all;
// cmd/mcpline's "daemon run" subcommand invokes internal/daemonrt directly.
type EnsureMode int

const (
	// ModeAutoSpawn is the default for CLI commands: run orphan
	// cleanup, spawn if nothing answers, then validate the fingerprint.
	ModeAutoSpawn EnsureMode = iota
	// ModeRequireDaemon fails with ErrNoDaemon instead of spawning.
	ModeRequireDaemon
)

// EnsureConfig parameterizes EnsureDaemon.
type EnsureConfig struct {
	Endpoint ipc.Endpoint
	Config   protocol.Config
	// ConfigPath is passed to a spawned daemon as a file path, never as
	// content, per spec.md §4.4 step 2.
	ConfigPath string
	Mode       EnsureMode

	// StartupTimeout bounds how long EnsureDaemon waits for a freshly
	// spawned daemon's endpoint to become dialable.
	StartupTimeout time.Duration
	// ShutdownQuietTimeout bounds how long EnsureDaemon waits for a
	// superseded daemon's endpoint to stop accepting connections before
	// spawning its replacement.
	ShutdownQuietTimeout time.Duration
	// KillGraceTimeout bounds how long orphan cleanup waits after a
	// graceful termination signal before escalating to a hard kill.
	KillGraceTimeout time.Duration
}

// WithDefaults fills zero-valued timeouts with spec.md §4.4's "short
// backoffs, total cap of a few seconds" guidance.
func (c EnsureConfig) WithDefaults() EnsureConfig {
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = 5 * time.Second
	}
	if c.ShutdownQuietTimeout <= 0 {
		c.ShutdownQuietTimeout = 2 * time.Second
	}
	if c.KillGraceTimeout <= 0 {
		c.KillGraceTimeout = 2 * time.Second
	}
	return c
}
