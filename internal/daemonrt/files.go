// Package daemonrt implements the daemon-side runtime of spec.md §4.2:
// startup (PID/fingerprint files, IPC listener, signal handlers, idle
// timer), the accept loop, and the per-connection request dispatch
// table backed by internal/pool.
package daemonrt

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename, so a reader (the client-side
// lifecycle manager) never observes a partially written PID or
// fingerprint file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("daemonrt: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("daemonrt: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("daemonrt: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("daemonrt: rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}
