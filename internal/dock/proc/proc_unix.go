//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// isolateProcess places the child in its own process group so group-wide
// signals do not touch the parent. Detached processes additionally get
// their own session, surviving parent exit.
func isolateProcess(cmd *exec.Cmd, detach bool) {
	if detach {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// Alive reports whether a process with the given PID exists. Signal 0
// performs the existence check without delivering anything; EPERM means
// the process exists but belongs to another user.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}

// Children returns the direct child PIDs of pid, using pgrep. A missing
// pgrep or a process with no children both yield an empty slice.
func Children(pid int) []int {
	out, err := exec.Command("pgrep", "-P", strconv.Itoa(pid)).Output()
	if err != nil {
		return nil
	}
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		child, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		pids = append(pids, child)
	}
	return pids
}

// Terminate sends SIGTERM to a single process.
func Terminate(pid int) error {
	return signalPID(pid, syscall.SIGTERM)
}

// Kill sends SIGKILL to a single process.
func Kill(pid int) error {
	return signalPID(pid, syscall.SIGKILL)
}

// TerminateGroup sends SIGTERM to the whole process group of pid.
func TerminateGroup(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

// KillGroup sends SIGKILL to the whole process group of pid.
func KillGroup(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

// NotifyResize sends SIGWINCH to the process group so full-screen children
// re-query their terminal dimensions.
func NotifyResize(pid int) error {
	return signalGroup(pid, syscall.SIGWINCH)
}

func signalPID(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	return syscall.Kill(pid, sig)
}

func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	pgid, err := syscall.Getpgid(pid)
	if err != nil || pgid <= 0 {
		// Fall back to the single process when the group is gone.
		return syscall.Kill(pid, sig)
	}
	return syscall.Kill(-pgid, sig)
}
