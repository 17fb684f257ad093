package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// EventKind distinguishes process output from process exit.
type EventKind string

const (
	EventData EventKind = "data"
	EventExit EventKind = "exit"
)

// Stream identifies the pipe a chunk was read from. PTY output is always stdout.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// ExitStatus describes how a process ended. Signal is the conventional
// signal name (e.g. "SIGHUP") when the process was terminated by one.
type ExitStatus struct {
	Code   int    `json:"exit_code"`
	Signal string `json:"signal,omitempty"`
}

// ProcessEvent is emitted by a Process. Exactly one EventExit is sent, last,
// and the channel is closed after it.
type ProcessEvent struct {
	Kind   EventKind
	Data   []byte
	Stream Stream
	Exit   *ExitStatus
}

// Process is a running child attached to a session.
type Process interface {
	Write(p []byte) error
	Resize(cols, rows int) error
	// Kill requests termination and returns without waiting for exit.
	Kill() error
	Pid() int
	Events() <-chan ProcessEvent
}

// SpawnOptions describes the shell to start under a pseudo-terminal.
type SpawnOptions struct {
	Shell string
	Cwd   string
	Env   []string
	Cols  int
	Rows  int
}

// Spawner starts processes. PTYSpawner is the production implementation.
type Spawner interface {
	Spawn(opts SpawnOptions) (Process, error)
}

const (
	readChunkSize = 4096
	eventQueue    = 64
	// drainTimeout bounds how long output is read after the shell exits, for
	// when a background job keeps the terminal open.
	drainTimeout = 2 * time.Second
)

// PTYSpawner starts shells under a pseudo-terminal.
type PTYSpawner struct{}

// Spawn starts opts.Shell attached to a new PTY sized cols x rows.
func (PTYSpawner) Spawn(opts SpawnOptions) (Process, error) {
	cmd := exec.Command(opts.Shell)
	cmd.Dir = opts.Cwd
	cmd.Env = opts.Env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Rows),
		Cols: uint16(opts.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	p := &ptyProcess{
		cmd:    cmd,
		ptmx:   ptmx,
		events: make(chan ProcessEvent, eventQueue),
	}
	go p.run()
	return p, nil
}

type ptyProcess struct {
	cmd     *exec.Cmd
	ptmx    *os.File
	events  chan ProcessEvent
	writeMu sync.Mutex
}

func (p *ptyProcess) Write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.ptmx.Write(data)
	return err
}

func (p *ptyProcess) Resize(cols, rows int) error {
	return pty.Setsize(p.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Kill sends SIGHUP, the signal a shell receives when its terminal goes away.
func (p *ptyProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Signal(syscall.SIGHUP)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *ptyProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *ptyProcess) Events() <-chan ProcessEvent {
	return p.events
}

func (p *ptyProcess) run() {
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		p.pump()
	}()

	waitErr := p.cmd.Wait()

	select {
	case <-readDone:
	case <-time.After(drainTimeout):
		_ = p.ptmx.Close()
		<-readDone
	}
	_ = p.ptmx.Close()

	status := exitStatus(p.cmd.ProcessState, waitErr)
	p.events <- ProcessEvent{Kind: EventExit, Exit: &status}
	close(p.events)
}

// pump forwards PTY output until the terminal is closed (EIO on Linux).
func (p *ptyProcess) pump() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.events <- ProcessEvent{Kind: EventData, Data: chunk}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, syscall.EIO) && !errors.Is(err, os.ErrClosed) {
				p.events <- ProcessEvent{Kind: EventData, Stream: StreamStderr, Data: []byte("pty read error: " + err.Error() + "\n")}
			}
			return
		}
	}
}

// exitStatus decodes the wait status of a finished process.
func exitStatus(state *os.ProcessState, waitErr error) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		return ExitStatus{Code: 128 + int(sig), Signal: unix.SignalName(sig)}
	}
	code := state.ExitCode()
	if code < 0 && waitErr != nil {
		code = -1
	}
	return ExitStatus{Code: code}
}

// DefaultShell resolves the shell to start: the hint, then $SHELL, then the
// first of bash, zsh and sh on PATH, then /bin/sh.
func DefaultShell(hint string) string {
	if hint != "" {
		return hint
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	for _, name := range []string{"bash", "zsh", "sh"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return "/bin/sh"
}

// defaultCwd returns the home directory, or the temp dir when HOME is unset.
func defaultCwd(cwd string) string {
	if cwd != "" {
		return cwd
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return os.TempDir()
}

// buildEnv returns the host environment with overrides applied in key order.
func buildEnv(overrides map[string]string, extra ...string) []string {
	env := append(os.Environ(), extra...)
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
