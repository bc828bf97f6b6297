//go:build windows

package proc

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
)

func isolateProcess(cmd *exec.Cmd, detach bool) {
	// Process groups are a Unix concept; nothing to set here.
	_ = detach
}

// Alive reports whether a process with the given PID exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), strconv.Itoa(pid))
}

// Children returns the direct child PIDs of pid via wmic.
func Children(pid int) []int {
	out, err := exec.Command("wmic", "process", "where",
		"ParentProcessId="+strconv.Itoa(pid), "get", "ProcessId").Output()
	if err != nil {
		return nil
	}
	var pids []int
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		child, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, child)
	}
	return pids
}

// Terminate asks the process to exit.
func Terminate(pid int) error {
	return killPID(pid)
}

// Kill forcefully ends the process.
func Kill(pid int) error {
	return killPID(pid)
}

// TerminateGroup ends the process tree rooted at pid.
func TerminateGroup(pid int) error {
	return killTree(pid)
}

// KillGroup ends the process tree rooted at pid.
func KillGroup(pid int) error {
	return killTree(pid)
}

// NotifyResize is a no-op on Windows; there is no SIGWINCH equivalent.
func NotifyResize(pid int) error {
	_ = pid
	return nil
}

func killPID(pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func killTree(pid int) error {
	if pid <= 0 {
		return nil
	}
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}
