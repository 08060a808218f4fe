//go:build windows

package daemon

import "syscall"

// stillActive is the exit code Windows reports for a process that has
// not yet terminated.
const stillActive = 259

// isProcessAlive opens pid and inspects its exit code, the Windows
// equivalent of a POSIX signal-0 probe.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := syscall.OpenProcess(syscall.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer syscall.CloseHandle(h)

	var code uint32
	if err := syscall.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}

// killGraceful has no arbitrary-process equivalent on Windows without a
// shared console; orphan cleanup goes straight to a hard terminate.
func killGraceful(pid int) {
	killHard(pid)
}

// killHard forcibly terminates pid.
func killHard(pid int) {
	h, err := syscall.OpenProcess(syscall.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return
	}
	defer syscall.CloseHandle(h)
	_ = syscall.TerminateProcess(h, 1)
}
