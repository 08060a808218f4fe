//go:build unix

package daemon

import "syscall"

// sysProcAttr detaches the spawned daemon into its own process group so
// it survives the spawning CLI invocation exiting.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
