// Package proc spawns and supervises assistant CLI processes. A Job owns one
// OS process in its own process group, streams its output line by line, and
// reports exit through a single callback. Kill escalation and liveness
// probing live in the platform files (proc_unix.go, proc_windows.go).
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/session"
)

// JobID identifies one spawned process for the lifetime of the host,
// including across subsystem reloads.
type JobID string

// ExitEvent describes one job's termination. It fires exactly once per job,
// whether the process exited on its own or was stopped.
type ExitEvent struct {
	JobID     JobID
	SessionID session.ID
	PID       int
	ExitCode  int
	Cancelled bool
	Err       error
}

// LineFunc receives one output line, stripped of its trailing newline.
type LineFunc func(line string)

// Job supervises one spawned process.
type Job struct {
	id        JobID
	sessionID session.ID
	cmd       *exec.Cmd
	ctx       context.Context
	cancel    context.CancelFunc
	stdin     io.WriteCloser

	mu       sync.RWMutex
	status   Status
	exitCode int
	exitErr  error

	wg          sync.WaitGroup
	stdoutLine  LineFunc
	stderrLine  LineFunc
	onExit      func(ExitEvent)
	stderrTail  []string
	keepStderr  bool
	commandLine string
}

// NewJobID allocates a fresh job identifier.
func NewJobID() JobID {
	return JobID(uuid.NewString())
}

// ID returns the job identifier.
func (j *Job) ID() JobID { return j.id }

// SessionID returns the owning session, if any.
func (j *Job) SessionID() session.ID { return j.sessionID }

// PID returns the OS process ID, or -1 if the process never started.
func (j *Job) PID() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.cmd == nil || j.cmd.Process == nil {
		return -1
	}
	return j.cmd.Process.Pid
}

// Status returns the current job status.
func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// IsRunning reports whether the process is actively running.
func (j *Job) IsRunning() bool {
	return j.Status() == StatusRunning
}

// CommandLine returns the spawned command for logging.
func (j *Job) CommandLine() string { return j.commandLine }

// Stdin returns the process's stdin pipe, or nil when none was requested.
func (j *Job) Stdin() io.WriteCloser { return j.stdin }

// SendText writes text followed by a newline to the process's stdin.
func (j *Job) SendText(text string) error {
	if j.stdin == nil {
		return fmt.Errorf("job %s: no stdin pipe", j.id)
	}
	_, err := io.WriteString(j.stdin, text+"\n")
	return err
}

// ExitCode returns the recorded exit code; meaningful only once terminal.
func (j *Job) ExitCode() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.exitCode
}

// StderrTail returns the captured trailing stderr lines.
func (j *Job) StderrTail() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]string, len(j.stderrTail))
	copy(out, j.stderrTail)
	return out
}

// Stop requests termination via the job handle's own stop primitive: the
// spawn context is cancelled, which kills the process (but not necessarily
// its children, that is the cleanup engine's business). Stop marks the job
// cancelled before cancelling so the exit path cannot misreport a crash.
// Stop is a no-op once the job is terminal.
func (j *Job) Stop() {
	j.mu.Lock()
	if j.status.IsTerminal() {
		j.mu.Unlock()
		return
	}
	j.status = StatusCancelled
	j.mu.Unlock()
	j.cancel()
}

// Wait blocks until the supervision goroutines finish.
func (j *Job) Wait() {
	j.wg.Wait()
}

// start launches the reader and completion goroutines. Called by the builder
// after cmd.Start succeeds.
func (j *Job) start(stdout, stderr *bufio.Scanner) {
	j.mu.Lock()
	j.status = StatusRunning
	j.mu.Unlock()

	j.wg.Add(3)
	go j.readLines(stdout, j.stdoutLine, false)
	go j.readLines(stderr, j.stderrLine, true)
	go j.waitForCompletion()
}

func (j *Job) readLines(scanner *bufio.Scanner, fn LineFunc, isStderr bool) {
	defer j.wg.Done()
	if scanner == nil {
		return
	}
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if isStderr && j.keepStderr {
			j.mu.Lock()
			j.stderrTail = append(j.stderrTail, line)
			if len(j.stderrTail) > stderrTailLimit {
				j.stderrTail = j.stderrTail[len(j.stderrTail)-stderrTailLimit:]
			}
			j.mu.Unlock()
		}
		if fn != nil {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug(log.CatProc, "scanner error", "job", j.id, "stderr", isStderr, "error", err)
	}
}

// stderrTailLimit bounds the captured stderr used in exit error reports.
const stderrTailLimit = 20

// waitForCompletion waits for the process to exit, resolves the final
// status, and fires the exit callback. A job stopped via Stop keeps its
// cancelled status even though cmd.Wait reports a kill error.
func (j *Job) waitForCompletion() {
	defer j.wg.Done()

	err := j.cmd.Wait()

	j.mu.Lock()
	cancelled := j.status == StatusCancelled
	code := 0
	if j.cmd.ProcessState != nil {
		code = j.cmd.ProcessState.ExitCode()
	}
	j.exitCode = code
	switch {
	case cancelled:
		j.exitErr = nil
	case err != nil:
		j.status = StatusFailed
		var exitErr *exec.ExitError
		if j.keepStderr && len(j.stderrTail) > 0 && errors.As(err, &exitErr) {
			err = errors.Join(err, errors.New(strings.Join(j.stderrTail, "\n")))
		}
		j.exitErr = err
	default:
		j.status = StatusCompleted
	}
	exitErr := j.exitErr
	onExit := j.onExit
	pid := -1
	if j.cmd.Process != nil {
		pid = j.cmd.Process.Pid
	}
	j.mu.Unlock()

	log.Debug(log.CatProc, "job exited",
		"job", j.id, "session", j.sessionID, "pid", pid, "code", code, "cancelled", cancelled)

	if onExit != nil {
		onExit(ExitEvent{
			JobID:     j.id,
			SessionID: j.sessionID,
			PID:       pid,
			ExitCode:  code,
			Cancelled: cancelled,
			Err:       exitErr,
		})
	}
}
