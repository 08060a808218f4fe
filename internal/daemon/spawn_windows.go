//go:build windows

package daemon

import "syscall"

// sysProcAttr starts the daemon in its own process group so it is not
// torn down when the spawning console window closes.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
