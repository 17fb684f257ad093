package terminal

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
)

// Status is the lifecycle state of a session. Finished and error are terminal.
type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

// Kind identifies the backing process type of a session.
type Kind string

const (
	KindPTY      Kind = "pty"
	KindFallback Kind = "fallback"
)

// cooperativeSignals end an interactive shell the way a user expects, so
// they count as a clean exit whatever the exit code.
var cooperativeSignals = map[string]bool{
	"SIGHUP":  true,
	"SIGINT":  true,
	"SIGTERM": true,
}

// ClassifyExit maps an exit status to the terminal session status.
func ClassifyExit(es ExitStatus) Status {
	if es.Code == 0 || cooperativeSignals[es.Signal] {
		return StatusFinished
	}
	return StatusError
}

// exitMarker is the synthetic line appended when the process ends.
func exitMarker(es ExitStatus) string {
	if es.Signal != "" {
		return fmt.Sprintf("[Process exited with code %d (signal %s)]", es.Code, es.Signal)
	}
	return fmt.Sprintf("[Process exited with code %d]", es.Code)
}

// Event is delivered to attached viewers.
type Event struct {
	Kind   EventKind
	Data   []byte
	Status Status
	Exit   *ExitStatus
}

type viewer struct {
	id      string
	ch      chan Event
	dropped atomic.Bool
}

// Session is one interactive process with its scrollback and viewers.
// Command and Args record what was typed into the shell for PTY sessions; the
// live process is always the shell itself.
type Session struct {
	ID        string
	Kind      Kind
	Command   string
	Args      []string
	Cwd       string
	Env       map[string]string
	StartTime time.Time
	AIContext string

	buffer *RingBuffer
	proc   Process
	audit  audit.Logger
	hooks  Observer
	now    func() time.Time

	mu           sync.Mutex
	status       Status
	lastActivity time.Time
	exit         *ExitStatus
	cols, rows   int
	readOffset   int
	viewers      map[string]*viewer

	done chan struct{}
}

func newSession(id string, kind Kind, opts StartOptions, cfg Config, proc Process, auditLog audit.Logger, hooks Observer, now func() time.Time) *Session {
	start := now()
	return &Session{
		ID:           id,
		Kind:         kind,
		Command:      opts.Command,
		Args:         append([]string(nil), opts.Args...),
		Cwd:          opts.Cwd,
		Env:          opts.Env,
		StartTime:    start,
		AIContext:    opts.AIContext,
		buffer:       newRingBuffer(cfg.MaxLines, now),
		proc:         proc,
		audit:        auditLog,
		hooks:        hooks,
		now:          now,
		status:       StatusRunning,
		lastActivity: start,
		cols:         opts.Cols,
		rows:         opts.Rows,
		viewers:      make(map[string]*viewer),
		done:         make(chan struct{}),
	}
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastActivity returns the time of the last input, output or resize.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// ExitStatus returns the exit status once the process has ended.
func (s *Session) ExitStatus() *ExitStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exit == nil {
		return nil
	}
	es := *s.exit
	return &es
}

// Buffer exposes the session scrollback.
func (s *Session) Buffer() *RingBuffer {
	return s.buffer
}

// Done is closed once the process has exited and its events are consumed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// run consumes process events until the process exits. It is the only
// writer of process output into the buffer.
func (s *Session) run() {
	defer close(s.done)

	for ev := range s.proc.Events() {
		switch ev.Kind {
		case EventData:
			s.handleData(ev.Data, ev.Stream)
		case EventExit:
			if ev.Exit != nil {
				s.handleExit(*ev.Exit)
			}
		}
	}

	// Event source closed without reporting an exit.
	s.handleExit(ExitStatus{Code: -1})
}

func (s *Session) handleData(data []byte, stream Stream) {
	typ := LineOutput
	if stream == StreamStderr {
		typ = LineError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.Append(data, typ)
	s.lastActivity = s.now()
	s.broadcastLocked(Event{Kind: EventData, Data: data, Status: s.status})
}

func (s *Session) handleExit(es ExitStatus) {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return
	}

	status := ClassifyExit(es)
	s.status = status
	s.exit = &es

	typ := LineOutput
	if status == StatusError {
		typ = LineError
	}
	s.buffer.Flush()
	s.buffer.AppendLine(exitMarker(es), typ)
	s.lastActivity = s.now()

	s.broadcastLocked(Event{Kind: EventExit, Status: status, Exit: &es})
	for id, v := range s.viewers {
		delete(s.viewers, id)
		close(v.ch)
		s.hooks.ViewerDetached(false)
	}
	s.mu.Unlock()

	level := audit.LevelInfo
	if status == StatusError {
		level = audit.LevelWarn
	}
	s.audit.Log(level, "terminal session exited", map[string]any{
		"session_id": s.ID,
		"kind":       string(s.Kind),
		"status":     string(status),
		"exit_code":  es.Code,
		"signal":     es.Signal,
	})
	s.hooks.SessionExited(string(s.Kind), string(status))
}

// broadcastLocked fans ev out to every viewer. A viewer whose queue is full
// is disconnected so the remaining viewers keep an ungapped stream.
func (s *Session) broadcastLocked(ev Event) {
	for id, v := range s.viewers {
		select {
		case v.ch <- ev:
		default:
			v.dropped.Store(true)
			delete(s.viewers, id)
			close(v.ch)
			s.hooks.ViewerDetached(true)
		}
	}
}

// write sends input to the process if the session is still running. A
// non-empty echo is buffered as an input line before the write.
func (s *Session) write(data []byte, echo string) error {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, s.ID, s.status)
	}
	if echo != "" {
		s.buffer.AppendLine(echo, LineInput)
	}
	s.lastActivity = s.now()
	s.mu.Unlock()

	// Written outside the lock: a full PTY must not stall the event loop.
	if err := s.proc.Write(data); err != nil {
		return fmt.Errorf("write input to %s: %w", s.ID, err)
	}
	return nil
}

func (s *Session) resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning || s.Kind != KindPTY {
		return nil
	}
	if err := s.proc.Resize(cols, rows); err != nil {
		return fmt.Errorf("resize %s: %w", s.ID, err)
	}
	s.cols, s.rows = cols, rows
	s.lastActivity = s.now()
	return nil
}

// readSince returns lines not yet returned by a previous call.
func (s *Session) readSince() ([]Line, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, next := s.buffer.Since(s.readOffset)
	s.readOffset = next
	return lines, s.status
}

// attach registers a viewer and returns the replay and live channel taken
// under the same lock, so no event is lost or repeated between them.
func (s *Session) attach(queue int) *Subscription {
	if queue <= 0 {
		queue = 256
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{
		SessionID: s.ID,
		Replay:    s.buffer.Snapshot(),
		Status:    s.status,
	}
	if s.exit != nil {
		es := *s.exit
		sub.Exit = &es
	}

	v := &viewer{id: uuid.NewString(), ch: make(chan Event, queue)}
	sub.ViewerID = v.id
	sub.Events = v.ch
	sub.viewer = v

	if s.status != StatusRunning {
		close(v.ch)
		sub.detach = func() {}
		return sub
	}

	s.viewers[v.id] = v
	s.hooks.ViewerAttached()
	sub.detach = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.viewers[v.id]; ok {
			delete(s.viewers, v.id)
			close(existing.ch)
			s.hooks.ViewerDetached(false)
		}
	}
	return sub
}

func (s *Session) info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Info{
		SessionID:    s.ID,
		Kind:         s.Kind,
		Command:      s.Command,
		Args:         append([]string(nil), s.Args...),
		Cwd:          s.Cwd,
		StartTime:    s.StartTime,
		LastActivity: s.lastActivity,
		Status:       s.status,
		AIContext:    s.AIContext,
		HasViewer:    len(s.viewers) > 0,
		Viewers:      len(s.viewers),
		Cols:         s.cols,
		Rows:         s.rows,
		Pid:          s.proc.Pid(),
		Exit:         s.exitCopyLocked(),
	}
}

func (s *Session) exitCopyLocked() *ExitStatus {
	if s.exit == nil {
		return nil
	}
	es := *s.exit
	return &es
}

// Subscription is a viewer's attachment to a session.
type Subscription struct {
	SessionID string
	ViewerID  string
	Replay    Snapshot
	// Status and Exit describe the session at attach time.
	Status Status
	Exit   *ExitStatus
	// Events carries live output and closes on exit, detach or overflow.
	Events <-chan Event

	viewer *viewer
	detach func()
	once   sync.Once
}

// Close deregisters the viewer. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.detach)
}

// Dropped reports whether the viewer was disconnected for falling behind.
func (s *Subscription) Dropped() bool {
	return s.viewer.dropped.Load()
}

// commandLine joins a command and its arguments as typed into a shell.
func commandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
