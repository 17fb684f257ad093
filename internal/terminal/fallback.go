package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
)

const (
	// pipeDrainDelay bounds how long an exited child's output pipes are read
	// while background processes still hold them.
	pipeDrainDelay = 500 * time.Millisecond

	maxLineBytes    = 1 << 20
	truncatedMarker = "[output truncated]"
)

// FallbackManager runs interactive sessions without a pseudo-terminal: the
// command is a direct child with piped stdio. It does not keep its own
// registry; sessions it creates live in the Manager's store.
type FallbackManager struct {
	cfg    Config
	audit  audit.Logger
	logger *zap.Logger
	hooks  Observer
	now    func() time.Time
}

// NewFallbackManager creates a fallback manager.
func NewFallbackManager(cfg Config, auditLog audit.Logger, logger *zap.Logger, hooks Observer, now func() time.Time) *FallbackManager {
	return &FallbackManager{cfg: cfg, audit: auditLog, logger: logger, hooks: hooks, now: now}
}

// Start spawns opts.Command (or the default shell when empty) with piped stdio.
func (f *FallbackManager) Start(sessionID string, opts StartOptions) (*Session, error) {
	name, args := opts.Command, opts.Args
	if name == "" {
		name, args = DefaultShell(opts.Shell), nil
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = opts.Cwd
	cmd.Env = buildEnv(opts.Env)

	proc, err := startPipeProcess(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawnFailure, err)
	}

	s := newSession(sessionID, KindFallback, opts, f.cfg, proc, f.audit, f.hooks, f.now)
	go s.run()

	f.logger.Debug("fallback session started",
		zap.String("session_id", sessionID),
		zap.String("command", name),
		zap.Int("pid", proc.Pid()))
	return s, nil
}

// SendInput echoes input into the buffer, since piped processes do not echo,
// and writes it with a trailing newline.
func (f *FallbackManager) SendInput(s *Session, input string, addNewline bool) error {
	data := input
	if addNewline {
		data += "\n"
	}
	return s.write([]byte(data), input)
}

// ReadOutput drains everything buffered since the last read.
func (f *FallbackManager) ReadOutput(s *Session) ([]Line, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Drain(), s.status
}

// Kill sends SIGTERM to the session's process group and escalates to SIGKILL
// after KillGrace if the child is still alive. It does not block.
func (f *FallbackManager) Kill(s *Session) error {
	if s.Status() != StatusRunning {
		return nil
	}
	if err := s.proc.Kill(); err != nil {
		return fmt.Errorf("terminate %s: %w", s.ID, err)
	}

	grace := f.cfg.KillGrace
	go func() {
		timer := time.NewTimer(grace)
		defer timer.Stop()

		select {
		case <-s.Done():
		case <-timer.C:
			if p, ok := s.proc.(*pipeProcess); ok {
				f.logger.Warn("fallback session ignored SIGTERM, killing",
					zap.String("session_id", s.ID),
					zap.Duration("grace", grace))
				p.forceKill()
			}
		}
	}()
	return nil
}

// pipeProcess adapts an exec.Cmd with piped stdio to Process. The child
// leads its own process group so signals reach anything it spawned. Output is
// delivered line by line, tagged with its stream.
type pipeProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan ProcessEvent
	stdout *lineWriter
	stderr *lineWriter

	writeMu sync.Mutex
}

func startPipeProcess(cmd *exec.Cmd) (*pipeProcess, error) {
	p := &pipeProcess{
		cmd:    cmd,
		events: make(chan ProcessEvent, eventQueue),
	}
	p.stdout = newLineWriter(StreamStdout, p.events)
	p.stderr = newLineWriter(StreamStderr, p.events)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	p.stdin = stdin
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Background children can hold the output pipes open after the child
	// exits. Wait gives up on them after pipeDrainDelay.
	cmd.WaitDelay = pipeDrainDelay

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	go func() {
		waitErr := cmd.Wait()
		p.stdout.flush()
		p.stderr.flush()
		status := exitStatus(cmd.ProcessState, waitErr)
		p.events <- ProcessEvent{Kind: EventExit, Exit: &status}
		close(p.events)
	}()

	return p, nil
}

func (p *pipeProcess) Write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if _, err := p.stdin.Write(data); err != nil {
		if errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
			return fmt.Errorf("%w: process has exited", ErrInvalidState)
		}
		return err
	}
	return nil
}

// Resize is a no-op: there is no terminal to resize.
func (p *pipeProcess) Resize(int, int) error {
	return nil
}

func (p *pipeProcess) Kill() error {
	_ = p.stdin.Close()
	return p.signalGroup(unix.SIGTERM)
}

func (p *pipeProcess) forceKill() {
	_ = p.signalGroup(unix.SIGKILL)
}

// signalGroup signals the whole process group. ESRCH means every member has
// already exited.
func (p *pipeProcess) signalGroup(sig unix.Signal) error {
	err := unix.Kill(-p.cmd.Process.Pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func (p *pipeProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *pipeProcess) Events() <-chan ProcessEvent {
	return p.events
}

// lineWriter splits a stream into newline-terminated chunks. A line longer
// than maxLineBytes is cut, followed by a truncation marker, and the rest of
// it is discarded up to the next newline.
type lineWriter struct {
	stream  Stream
	events  chan<- ProcessEvent
	partial []byte
	skip    bool
}

func newLineWriter(stream Stream, events chan<- ProcessEvent) *lineWriter {
	return &lineWriter{stream: stream, events: events}
}

// Write is called from a single exec copying goroutine per stream.
func (w *lineWriter) Write(data []byte) (int, error) {
	n := len(data)
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			w.add(data)
			break
		}
		w.add(data[:i])
		if w.skip {
			w.skip = false
		} else {
			w.emit()
		}
		data = data[i+1:]
	}
	return n, nil
}

func (w *lineWriter) add(data []byte) {
	if w.skip {
		return
	}
	if room := maxLineBytes - len(w.partial); len(data) > room {
		w.partial = append(w.partial, data[:room]...)
		w.emit()
		w.send([]byte(truncatedMarker + "\n"))
		w.skip = true
		return
	}
	w.partial = append(w.partial, data...)
}

// flush emits a trailing line that never got its newline.
func (w *lineWriter) flush() {
	if len(w.partial) > 0 {
		w.emit()
	}
}

func (w *lineWriter) emit() {
	chunk := make([]byte, len(w.partial)+1)
	copy(chunk, w.partial)
	chunk[len(w.partial)] = '\n'
	w.partial = w.partial[:0]
	w.send(chunk)
}

func (w *lineWriter) send(chunk []byte) {
	w.events <- ProcessEvent{Kind: EventData, Stream: w.stream, Data: chunk}
}
