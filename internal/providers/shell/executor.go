package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/shellbridge/internal/shared/id"
)

// Defaults applied when an Executor field is zero.
const (
	DefaultTimeout        = 60 * time.Second
	DefaultMaxOutputBytes = 1 << 20
	DefaultWaitDelay      = 2 * time.Second
)

// Executor runs one-shot commands through a shell. The zero value is usable.
type Executor struct {
	// Shell interprets the command with "-c". Defaults to /bin/sh.
	Shell string
	// Timeout bounds a run when the request does not set one.
	Timeout time.Duration
	// MaxOutputBytes caps stdout and stderr independently.
	MaxOutputBytes int
	// WaitDelay bounds how long Run waits for output pipes after the
	// process group is killed.
	WaitDelay time.Duration
}

// Request describes one command to run.
type Request struct {
	Command string
	Cwd     string
	Env     map[string]string
	Timeout time.Duration
}

// Execution is the outcome of a finished run.
type Execution struct {
	ID        id.ExecID     `json:"exec_id"`
	Command   string        `json:"command"`
	ExitCode  int           `json:"exit_code"`
	Signal    string        `json:"signal,omitempty"`
	TimedOut  bool          `json:"timed_out"`
	Truncated bool          `json:"truncated"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"-"`
}

// Run executes req and waits for it. A non-zero exit or a timeout is reported
// in the Execution, not as an error; errors mean the command never started.
func (e *Executor) Run(ctx context.Context, req Request) (*Execution, error) {
	if req.Command == "" {
		return nil, errors.New("command is required")
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.timeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := e.MaxOutputBytes
	if limit <= 0 {
		limit = DefaultMaxOutputBytes
	}
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}

	cmd := exec.CommandContext(ctx, e.shell(), "-c", req.Command)
	cmd.Dir = req.Cwd
	cmd.Env = environ(req.Env)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = e.waitDelay()

	run := &Execution{
		ID:        id.NewExecID(),
		Command:   req.Command,
		StartedAt: time.Now(),
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	waitErr := cmd.Wait()

	run.Duration = time.Since(run.StartedAt)
	run.Stdout = stdout.String()
	run.Stderr = stderr.String()
	run.Truncated = stdout.truncated || stderr.truncated
	run.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
	run.ExitCode, run.Signal = exitCode(cmd.ProcessState)

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !run.TimedOut && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return run, fmt.Errorf("command wait failed: %w", waitErr)
	}
	return run, nil
}

func (e *Executor) shell() string {
	if e.Shell != "" {
		return e.Shell
	}
	return "/bin/sh"
}

func (e *Executor) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

func (e *Executor) waitDelay() time.Duration {
	if e.WaitDelay > 0 {
		return e.WaitDelay
	}
	return DefaultWaitDelay
}

func exitCode(state *os.ProcessState) (int, string) {
	if state == nil {
		return -1, ""
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		return 128 + int(sig), unix.SignalName(sig)
	}
	return state.ExitCode(), ""
}

func environ(overrides map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

// cappedBuffer keeps the first limit bytes and discards the rest without
// failing the writer.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
