//go:build windows

package ipc

import (
	"fmt"
	"os"
	"path/filepath"
)

// runtimeDir has no XDG_RUNTIME_DIR equivalent on Windows; metadata files
// still need a filesystem home ("path adjusted", spec.md §6), so this uses
// the per-user temp directory.
func runtimeDir(appName string) string {
	return filepath.Join(os.TempDir(), appName)
}

// EndpointAddr is the fixed, non-PID-suffixed named pipe path the daemon
// listens on and clients dial. It deliberately ignores e.SocketBase: the
// pipe namespace is flat and global to the session, not filesystem-rooted.
func (e Endpoint) EndpointAddr() string {
	return fmt.Sprintf(`\\.\pipe\%s-daemon-socket`, e.AppName)
}
