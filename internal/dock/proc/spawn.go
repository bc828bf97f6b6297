package proc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/termdock/termdock/internal/log"
	"github.com/termdock/termdock/internal/session"
)

// CommandFactoryFunc creates an exec.Cmd. Tests set it to avoid spawning
// real processes.
type CommandFactoryFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// SpawnBuilder provides a fluent API for spawning a supervised job. It
// consolidates the spawn boilerplate (context setup, pipes, process-group
// isolation, goroutine start) in one place.
type SpawnBuilder struct {
	ctx            context.Context
	execPath       string
	args           []string
	env            []string
	workDir        string
	sessionID      session.ID
	stdoutLine     LineFunc
	stderrLine     LineFunc
	onExit         func(ExitEvent)
	keepStderr     bool
	needsStdin     bool
	detach         bool
	commandFactory CommandFactoryFunc
}

// NewSpawnBuilder creates a builder rooted at ctx.
func NewSpawnBuilder(ctx context.Context) *SpawnBuilder {
	return &SpawnBuilder{ctx: ctx}
}

// WithExecutable sets the executable path and arguments.
func (b *SpawnBuilder) WithExecutable(path string, args []string) *SpawnBuilder {
	b.execPath = path
	b.args = args
	return b
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func (b *SpawnBuilder) WithEnv(env []string) *SpawnBuilder {
	b.env = env
	return b
}

// WithWorkDir sets the working directory.
func (b *SpawnBuilder) WithWorkDir(dir string) *SpawnBuilder {
	b.workDir = dir
	return b
}

// WithSession associates the job with a session identity.
func (b *SpawnBuilder) WithSession(id session.ID) *SpawnBuilder {
	b.sessionID = id
	return b
}

// WithStdoutLine sets the sink for stdout lines.
func (b *SpawnBuilder) WithStdoutLine(fn LineFunc) *SpawnBuilder {
	b.stdoutLine = fn
	return b
}

// WithStderrLine sets the sink for stderr lines.
func (b *SpawnBuilder) WithStderrLine(fn LineFunc) *SpawnBuilder {
	b.stderrLine = fn
	return b
}

// WithStderrCapture keeps a bounded stderr tail for exit error reports.
func (b *SpawnBuilder) WithStderrCapture(keep bool) *SpawnBuilder {
	b.keepStderr = keep
	return b
}

// WithStdin requests a stdin pipe, exposed via Job.Stdin.
func (b *SpawnBuilder) WithStdin(needed bool) *SpawnBuilder {
	b.needsStdin = needed
	return b
}

// WithOnExit sets the exit callback. It fires exactly once.
func (b *SpawnBuilder) WithOnExit(fn func(ExitEvent)) *SpawnBuilder {
	b.onExit = fn
	return b
}

// WithDetach launches the process in its own session with no pipes; used by
// the external backend, which only tracks the PID.
func (b *SpawnBuilder) WithDetach(detach bool) *SpawnBuilder {
	b.detach = detach
	return b
}

// WithCommandFactory sets a custom command factory for testing.
func (b *SpawnBuilder) WithCommandFactory(fn CommandFactoryFunc) *SpawnBuilder {
	b.commandFactory = fn
	return b
}

// Build starts the process and its supervision goroutines. On error no
// partial state is retained: pipes are closed and the context cancelled.
func (b *SpawnBuilder) Build() (*Job, error) {
	if b.execPath == "" {
		return nil, fmt.Errorf("spawn builder: executable path is required")
	}

	procCtx, cancel := context.WithCancel(b.ctx)

	var cmd *exec.Cmd
	if b.commandFactory != nil {
		cmd = b.commandFactory(procCtx, b.execPath, b.args...)
	} else {
		// #nosec G204 -- command comes from validated configuration, not remote input
		cmd = exec.CommandContext(procCtx, b.execPath, b.args...)
	}
	cmd.Dir = b.workDir
	if len(b.env) > 0 {
		cmd.Env = append(os.Environ(), b.env...)
	}
	isolateProcess(cmd, b.detach)

	job := &Job{
		id:          NewJobID(),
		sessionID:   b.sessionID,
		cmd:         cmd,
		ctx:         procCtx,
		cancel:      cancel,
		status:      StatusPending,
		stdoutLine:  b.stdoutLine,
		stderrLine:  b.stderrLine,
		onExit:      b.onExit,
		keepStderr:  b.keepStderr,
		commandLine: cmd.String(),
	}

	var stdout, stderr io.ReadCloser
	cleanup := func() {
		cancel()
		if stdout != nil {
			_ = stdout.Close()
		}
		if stderr != nil {
			_ = stderr.Close()
		}
		if job.stdin != nil {
			_ = job.stdin.Close()
		}
	}

	if !b.detach {
		var err error
		stdout, err = cmd.StdoutPipe()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("spawn builder: stdout pipe: %w", err)
		}
		stderr, err = cmd.StderrPipe()
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("spawn builder: stderr pipe: %w", err)
		}
		if b.needsStdin {
			job.stdin, err = cmd.StdinPipe()
			if err != nil {
				cleanup()
				return nil, fmt.Errorf("spawn builder: stdin pipe: %w", err)
			}
		}
	}

	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, fmt.Errorf("spawn builder: starting %s: %w", b.execPath, err)
	}

	log.Debug(log.CatProc, "job spawned",
		"job", job.id, "session", job.sessionID, "pid", cmd.Process.Pid, "cmd", b.execPath)

	if b.detach {
		job.startDetached()
	} else {
		job.start(newScanner(stdout), newScanner(stderr))
	}
	return job, nil
}

// startDetached supervises a pipe-less detached process: only the exit
// waiter runs.
func (j *Job) startDetached() {
	j.mu.Lock()
	j.status = StatusRunning
	j.mu.Unlock()

	j.wg.Add(1)
	go j.waitForCompletion()
}

func newScanner(r io.Reader) *bufio.Scanner {
	if r == nil {
		return nil
	}
	scanner := bufio.NewScanner(r)
	// Assistant CLIs emit long single lines; allow up to 1MB.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return scanner
}
