package terminal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/shellbridge/internal/shared/id"
)

// Config holds session manager limits and defaults.
type Config struct {
	MaxSessions    int
	SessionTimeout time.Duration
	ReaperInterval time.Duration
	MaxLines       int
	KillGrace      time.Duration
	Shell          string
	Cols           int
	Rows           int
	ViewerQueue    int
}

// DefaultConfig returns the limits used when none are configured.
func DefaultConfig() Config {
	return Config{
		MaxSessions:    20,
		SessionTimeout: 30 * time.Minute,
		ReaperInterval: time.Minute,
		MaxLines:       1000,
		KillGrace:      5 * time.Second,
		Cols:           80,
		Rows:           24,
		ViewerQueue:    256,
	}
}

// StartOptions describes a session to create. With PTY set, Command and Args
// are typed into a shell; otherwise they are run directly without a terminal.
type StartOptions struct {
	Command   string
	Args      []string
	Cwd       string
	Env       map[string]string
	Shell     string
	PTY       bool
	Cols      int
	Rows      int
	AIContext string
}

// Info is the public view of a session.
type Info struct {
	SessionID    string      `json:"session_id"`
	Kind         Kind        `json:"kind"`
	Command      string      `json:"command"`
	Args         []string    `json:"args,omitempty"`
	Cwd          string      `json:"cwd"`
	StartTime    time.Time   `json:"start_time"`
	LastActivity time.Time   `json:"last_activity"`
	Status       Status      `json:"status"`
	AIContext    string      `json:"ai_context,omitempty"`
	HasViewer    bool        `json:"has_viewer"`
	Viewers      int         `json:"viewers"`
	Cols         int         `json:"cols,omitempty"`
	Rows         int         `json:"rows,omitempty"`
	Pid          int         `json:"pid"`
	Exit         *ExitStatus `json:"exit,omitempty"`
}

// Output is the result of ReadOutput.
type Output struct {
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
	HasMore bool   `json:"has_more"`
	Status  Status `json:"status"`
}

// Observer receives lifecycle notifications, typically for metrics.
type Observer interface {
	SessionStarted(kind string)
	SessionExited(kind, status string)
	SessionRemoved(kind, reason string)
	ViewerAttached()
	ViewerDetached(dropped bool)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string)         {}
func (nopObserver) SessionExited(string, string)  {}
func (nopObserver) SessionRemoved(string, string) {}
func (nopObserver) ViewerAttached()               {}
func (nopObserver) ViewerDetached(bool)           {}

// entry is one slot of the session store. Kind selects which manager owns
// the process; both kinds share the id space.
type entry struct {
	kind    Kind
	session *Session
}

// Manager owns every terminal session and the idle reaper.
type Manager struct {
	cfg      Config
	audit    audit.Logger
	logger   *zap.Logger
	spawner  Spawner
	breaker  *resilience.Breaker
	observer Observer
	now      func() time.Time
	fallback *FallbackManager

	mu       sync.RWMutex
	sessions map[string]*entry
	starting int

	stopReaper chan struct{}
	reaperDone chan struct{}
	stopOnce   sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithSpawner replaces the PTY spawner.
func WithSpawner(s Spawner) Option {
	return func(m *Manager) { m.spawner = s }
}

// WithSpawnBreaker routes PTY spawns through a circuit breaker, so repeated
// spawn failures fail fast with ErrSpawnFailure wrapping
// resilience.ErrCircuitOpen.
func WithSpawnBreaker(b *resilience.Breaker) Option {
	return func(m *Manager) { m.breaker = b }
}

// WithLogger sets the operational logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithoutReaper disables the background reaper; ReapIdle can still be called.
func WithoutReaper() Option {
	return func(m *Manager) { m.cfg.ReaperInterval = 0 }
}

// NewManager creates a manager and starts its reaper.
func NewManager(cfg Config, auditLog audit.Logger, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = def.MaxLines
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = def.SessionTimeout
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = def.KillGrace
	}
	if cfg.Cols <= 0 {
		cfg.Cols = def.Cols
	}
	if cfg.Rows <= 0 {
		cfg.Rows = def.Rows
	}
	if cfg.ViewerQueue <= 0 {
		cfg.ViewerQueue = def.ViewerQueue
	}
	if auditLog == nil {
		auditLog = audit.Nop
	}

	m := &Manager{
		cfg:        cfg,
		audit:      auditLog,
		logger:     zap.NewNop(),
		spawner:    PTYSpawner{},
		observer:   nopObserver{},
		now:        time.Now,
		sessions:   make(map[string]*entry),
		stopReaper: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.fallback = NewFallbackManager(m.cfg, m.audit, m.logger, m.observer, m.now)

	if m.cfg.ReaperInterval > 0 {
		go m.reapLoop(m.cfg.ReaperInterval)
	} else {
		close(m.reaperDone)
	}
	return m
}

// StartSession creates a PTY session, or a fallback session when opts.PTY is false.
func (m *Manager) StartSession(ctx context.Context, opts StartOptions) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.reserve(); err != nil {
		return nil, err
	}

	if opts.Cols <= 0 {
		opts.Cols = m.cfg.Cols
	}
	if opts.Rows <= 0 {
		opts.Rows = m.cfg.Rows
	}
	opts.Cwd = defaultCwd(opts.Cwd)
	if opts.Shell == "" {
		opts.Shell = m.cfg.Shell
	}

	sessionID := string(id.NewSessionID())

	var (
		s   *Session
		err error
	)
	if opts.PTY {
		s, err = m.startPTY(sessionID, opts)
	} else {
		s, err = m.fallback.Start(sessionID, opts)
	}
	if err != nil {
		m.release(nil)
		m.logger.Warn("failed to start session",
			zap.String("command", opts.Command),
			zap.Bool("pty", opts.PTY),
			zap.Error(err))
		return nil, err
	}

	m.release(&entry{kind: s.Kind, session: s})

	m.observer.SessionStarted(string(s.Kind))
	m.audit.Log(audit.LevelInfo, "terminal session created", map[string]any{
		"session_id": sessionID,
		"kind":       string(s.Kind),
		"command":    commandLine(opts.Command, opts.Args),
		"cwd":        opts.Cwd,
		"pid":        s.proc.Pid(),
		"ai_context": opts.AIContext,
	})
	m.logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.String("kind", string(s.Kind)),
		zap.Int("pid", s.proc.Pid()))

	info := s.info()
	return &info, nil
}

func (m *Manager) startPTY(sessionID string, opts StartOptions) (*Session, error) {
	proc, err := m.spawn(SpawnOptions{
		Shell: DefaultShell(opts.Shell),
		Cwd:   opts.Cwd,
		Env:   buildEnv(opts.Env, "TERM=xterm-256color"),
		Cols:  opts.Cols,
		Rows:  opts.Rows,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawnFailure, err)
	}

	s := newSession(sessionID, KindPTY, opts, m.cfg, proc, m.audit, m.observer, m.now)
	go s.run()

	if opts.Command != "" {
		line := commandLine(opts.Command, opts.Args)
		if err := proc.Write([]byte(line + "\r")); err != nil {
			m.logger.Warn("failed to type initial command",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}
	return s, nil
}

func (m *Manager) spawn(opts SpawnOptions) (Process, error) {
	if m.breaker == nil {
		return m.spawner.Spawn(opts)
	}
	return resilience.Do(m.breaker, func() (Process, error) {
		return m.spawner.Spawn(opts)
	})
}

// reserve claims a slot against MaxSessions for the duration of a start.
func (m *Manager) reserve() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.starting
	for _, e := range m.sessions {
		if e.session.Status() == StatusRunning {
			live++
		}
	}
	if live >= m.cfg.MaxSessions {
		return fmt.Errorf("%w: %d of %d sessions running", ErrResourceExhausted, live, m.cfg.MaxSessions)
	}
	m.starting++
	return nil
}

// release returns the slot claimed by reserve, storing e in the same step.
func (m *Manager) release(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starting--
	if e != nil {
		m.sessions[e.session.ID] = e
	}
}

func (m *Manager) lookup(sessionID string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return e, nil
}

// Session returns the live session object for sessionID.
func (m *Manager) Session(sessionID string) (*Session, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

// Get returns the public view of one session.
func (m *Manager) Get(sessionID string) (*Info, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	info := e.session.info()
	return &info, nil
}

// SendInput writes input to a running session. PTY input is terminated with
// \r and is never buffered here: the terminal echo is its only source.
func (m *Manager) SendInput(sessionID, input string, addNewline bool) error {
	e, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	switch e.kind {
	case KindFallback:
		return m.fallback.SendInput(e.session, input, addNewline)
	default:
		data := input
		if addNewline {
			data += "\r"
		}
		return e.session.write([]byte(data), "")
	}
}

// ReadOutput returns output produced since the previous call. Fallback
// sessions drain their buffer; PTY sessions advance a read cursor and keep
// the buffer intact for viewers.
func (m *Manager) ReadOutput(sessionID string) (*Output, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	var (
		lines  []Line
		status Status
	)
	switch e.kind {
	case KindFallback:
		lines, status = m.fallback.ReadOutput(e.session)
	default:
		lines, status = e.session.readSince()
	}

	out := &Output{Status: status, HasMore: status == StatusRunning}
	var stdout, stderr []string
	for _, l := range lines {
		if l.Type == LineError {
			stderr = append(stderr, l.Text)
			continue
		}
		stdout = append(stdout, l.Text)
	}
	out.Stdout = strings.Join(stdout, "\n")
	out.Stderr = strings.Join(stderr, "\n")
	return out, nil
}

// GetBuffer returns the full scrollback of a session in any status.
func (m *Manager) GetBuffer(sessionID string) (Snapshot, Status, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return Snapshot{}, "", err
	}
	s := e.session
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Snapshot(), s.status, nil
}

// KillSession removes a session and requests termination of its process.
// Unknown ids are a no-op so explicit kills and the reaper can race.
func (m *Manager) KillSession(sessionID string) error {
	return m.kill(sessionID, "requested")
}

func (m *Manager) kill(sessionID, reason string) error {
	m.mu.Lock()
	e, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	s := e.session
	m.observer.SessionRemoved(string(e.kind), reason)
	m.audit.Log(audit.LevelInfo, "terminal session killed", map[string]any{
		"session_id": sessionID,
		"kind":       string(e.kind),
		"reason":     reason,
		"status":     string(s.Status()),
	})

	var err error
	switch e.kind {
	case KindFallback:
		err = m.fallback.Kill(s)
	default:
		if s.Status() == StatusRunning {
			err = s.proc.Kill()
		}
	}
	if err != nil {
		m.logger.Warn("failed to signal session process",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return fmt.Errorf("kill %s: %w", sessionID, err)
	}
	return nil
}

// ResizeTerminal changes the terminal size. It is a no-op for sessions that
// are not running or have no terminal.
func (m *Manager) ResizeTerminal(sessionID string, cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return fmt.Errorf("%w: terminal size %dx%d", ErrInvalidArgument, cols, rows)
	}
	e, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return e.session.resize(cols, rows)
}

// ListSessions returns every session ordered by start time.
func (m *Manager) ListSessions() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		sessions = append(sessions, e.session)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartTime.Equal(infos[j].StartTime) {
			return infos[i].SessionID < infos[j].SessionID
		}
		return infos[i].StartTime.Before(infos[j].StartTime)
	})
	return infos
}

// Count returns the number of stored sessions and how many are running.
func (m *Manager) Count() (total, running int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.sessions {
		total++
		if e.session.Status() == StatusRunning {
			running++
		}
	}
	return total, running
}

// Attach subscribes a viewer to a PTY session. The returned replay and event
// stream are contiguous.
func (m *Manager) Attach(sessionID string) (*Subscription, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if e.kind != KindPTY {
		return nil, fmt.Errorf("%w: %s has no terminal to view", ErrInvalidState, sessionID)
	}

	sub := e.session.attach(m.cfg.ViewerQueue)
	m.logger.Debug("viewer attached",
		zap.String("session_id", sessionID),
		zap.String("viewer_id", sub.ViewerID))
	return sub, nil
}

// ReapIdle kills every session idle for longer than SessionTimeout and
// returns how many were reaped.
func (m *Manager) ReapIdle() int {
	cutoff := m.now().Add(-m.cfg.SessionTimeout)

	m.mu.RLock()
	var idle []string
	for sessionID, e := range m.sessions {
		if e.session.LastActivity().Before(cutoff) {
			idle = append(idle, sessionID)
		}
	}
	m.mu.RUnlock()

	for _, sessionID := range idle {
		m.logger.Info("reaping idle session", zap.String("session_id", sessionID))
		_ = m.kill(sessionID, "idle")
	}
	return len(idle)
}

func (m *Manager) reapLoop(interval time.Duration) {
	defer close(m.reaperDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.ReapIdle(); n > 0 {
				m.logger.Debug("reaper pass", zap.Int("reaped", n))
			}
		case <-m.stopReaper:
			return
		}
	}
}

// Shutdown stops the reaper, kills every session and waits for their
// processes to exit or ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopReaper) })
	<-m.reaperDone

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	sessions := make([]*Session, 0, len(m.sessions))
	for sessionID, e := range m.sessions {
		ids = append(ids, sessionID)
		sessions = append(sessions, e.session)
	}
	m.mu.RUnlock()

	for _, sessionID := range ids {
		_ = m.kill(sessionID, "shutdown")
	}

	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return fmt.Errorf("shutdown interrupted with sessions still exiting: %w", ctx.Err())
		}
	}
	return nil
}
