package ipc

import (
	"fmt"
	"os"
	"path/filepath"
)

// Endpoint bundles the well-known, per-user, per-app paths described in
// spec.md §3 "Daemon on-disk artifacts" and §6 "On-disk state layout".
// SocketBase is a filesystem path used to derive the PID and fingerprint
// file names on both platforms ("path adjusted" on Windows, per §6); the
// actual connect/listen address is platform-specific and returned
// separately by EndpointAddr.
type Endpoint struct {
	AppName    string
	SocketBase string
}

// NewEndpoint derives the on-disk artifact paths for appName, creating the
// parent runtime directory (user-only permissions) if it does not exist.
func NewEndpoint(appName string) (Endpoint, error) {
	dir := runtimeDir(appName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Endpoint{}, fmt.Errorf("ipc: create runtime dir %s: %w", dir, err)
	}
	return Endpoint{
		AppName:    appName,
		SocketBase: filepath.Join(dir, "daemon.sock"),
	}, nil
}

// PIDPath is the file that holds the decimal PID of the running daemon.
func (e Endpoint) PIDPath() string {
	return e.SocketBase + ".pid"
}

// FingerprintPath is the file that holds the daemon's startup fingerprint.
func (e Endpoint) FingerprintPath() string {
	return e.SocketBase + ".fingerprint"
}
