package registry

import (
	"context"
	"time"

	"github.com/termdock/termdock/internal/config"
	"github.com/termdock/termdock/internal/dock/proc"
	"github.com/termdock/termdock/internal/log"
)

// termGrace is how long terminated processes get to exit before the
// force-kill pass.
var termGrace = 500 * time.Millisecond

// applyStrategy executes the configured kill strategy against the merged
// PID set. The job-handle stop that every strategy ends with is the
// caller's responsibility.
func applyStrategy(ctx context.Context, strategy string, pids []int, jobs []*proc.Job) {
	switch strategy {
	case config.StrategyPkillChildren:
		pkillChildren(ctx, pids)
	case config.StrategyAggressive:
		aggressive(pids)
	case config.StrategyJobStopOnly:
		// Handled entirely by the trailing job-handle stop.
	case config.StrategyNone:
		// Process-level killing skipped; manual cleanup assumed.
	default:
		log.Warn(log.CatRegistry, "unknown kill strategy, using default",
			"strategy", strategy)
		pkillChildren(ctx, pids)
	}
}

// pkillChildren is the two-phase strategy: graceful-terminate the process
// group, direct children, and the process itself, wait a grace interval,
// then force-kill survivors the same way. A single signal pass races: a
// wrapping shell killed before its child inherits the signal leaves orphans.
func pkillChildren(ctx context.Context, pids []int) {
	children := make(map[int][]int, len(pids))
	for _, pid := range pids {
		children[pid] = proc.Children(pid)
	}

	for _, pid := range pids {
		_ = proc.TerminateGroup(pid)
		for _, child := range children[pid] {
			_ = proc.Terminate(child)
		}
		_ = proc.Terminate(pid)
	}

	select {
	case <-time.After(termGrace):
	case <-ctx.Done():
	}

	for _, pid := range pids {
		if !anyAlive(pid, children[pid]) {
			continue
		}
		log.Debug(log.CatRegistry, "grace expired, force killing", "pid", pid)
		_ = proc.KillGroup(pid)
		for _, child := range children[pid] {
			_ = proc.Kill(child)
		}
		_ = proc.Kill(pid)
	}
}

// aggressive force-kills children then the process itself, no grace.
func aggressive(pids []int) {
	for _, pid := range pids {
		for _, child := range proc.Children(pid) {
			_ = proc.Kill(child)
		}
		_ = proc.KillGroup(pid)
		_ = proc.Kill(pid)
	}
}

// KillTwoPhase applies the two-phase group kill to a single PID. Session
// teardown uses it so a wrapping shell and its children go down together.
func KillTwoPhase(ctx context.Context, pid int) {
	if pid <= 0 {
		return
	}
	pkillChildren(ctx, []int{pid})
}

// forceKillTree is the orphan-sweep kill: children first, then the process.
func forceKillTree(pid int) {
	for _, child := range proc.Children(pid) {
		_ = proc.Kill(child)
	}
	_ = proc.KillGroup(pid)
	_ = proc.Kill(pid)
}

func anyAlive(pid int, children []int) bool {
	if proc.Alive(pid) {
		return true
	}
	for _, child := range children {
		if proc.Alive(child) {
			return true
		}
	}
	return false
}
