//go:build unix

package ipc

import (
	"fmt"
	"os"
	"path/filepath"
)

// runtimeDir implements the Open Question decision recorded in DESIGN.md:
// XDG_RUNTIME_DIR if set and non-empty, else a per-uid directory under the
// system temp directory.
func runtimeDir(appName string) string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d", appName, os.Getuid()))
}

// EndpointAddr is the Unix domain socket path the daemon listens on and
// clients dial.
func (e Endpoint) EndpointAddr() string {
	return e.SocketBase
}
