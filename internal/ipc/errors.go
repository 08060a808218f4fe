// Package ipc implements the platform-abstract IPC transport described in
// spec.md §4.1: a listener/client pair speaking NDJSON (see
// internal/protocol) over a Unix domain socket on POSIX and a named pipe
// on Windows, at a fixed, non-PID-suffixed, per-user endpoint.
package ipc

import "errors"

// ErrBindFailed is returned by Listen when the endpoint is already held by
// a live peer.
var ErrBindFailed = errors.New("ipc: endpoint already bound by a live peer")

// ErrConnectFailed is returned by Dial when no peer is listening at the
// endpoint.
var ErrConnectFailed = errors.New("ipc: no peer listening at endpoint")
