package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/shellbridge/internal/api/http"
	"github.com/GriffinCanCode/shellbridge/internal/api/middleware"
	"github.com/GriffinCanCode/shellbridge/internal/audit"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shellbridge/internal/mcp"
	"github.com/GriffinCanCode/shellbridge/internal/providers/shell"
	"github.com/GriffinCanCode/shellbridge/internal/providers/system"
	terminalProvider "github.com/GriffinCanCode/shellbridge/internal/providers/terminal"
	"github.com/GriffinCanCode/shellbridge/internal/security"
	"github.com/GriffinCanCode/shellbridge/internal/service"
	"github.com/GriffinCanCode/shellbridge/internal/terminal"
	"github.com/GriffinCanCode/shellbridge/internal/viewer"
)

const shutdownTimeout = 10 * time.Second

// Server wires the session manager, tool registry and HTTP surface together.
type Server struct {
	config     *config.Config
	version    string
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	manager    *terminal.Manager
	registry   *service.Registry
	router     *gin.Engine
	httpServer *http.Server
	closeAudit func() error
	configPath string
	watcher    *config.Watcher

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /health and MCP.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithConfigWatch reloads the security policy and log level whenever the
// config file at path changes. Other settings need a restart.
func WithConfigWatch(path string) Option {
	return func(s *Server) { s.configPath = path }
}

// New builds a server from cfg. Nothing listens until Run.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{config: cfg, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	}
	logger := s.logger.Logger

	s.metrics = monitoring.NewMetrics()
	s.tracer = tracing.New(logger)

	auditLog, err := s.auditLogger()
	if err != nil {
		s.tracer.Close()
		return nil, err
	}

	v, err := newValidator(cfg.Security)
	if err != nil {
		s.tracer.Close()
		return nil, err
	}
	validator := security.NewGuard(v)

	s.manager = terminal.NewManager(terminalConfig(cfg.Terminal), auditLog,
		terminal.WithLogger(logger),
		terminal.WithObserver(s.metrics),
		terminal.WithSpawnBreaker(spawnBreaker(logger)),
	)

	s.registry = service.NewRegistry()
	s.registerProviders(validator, auditLog)

	if s.configPath != "" {
		if s.watcher, err = config.Watch(s.configPath, logger, s.reload(validator)); err != nil {
			logger.Warn("Config file will not be watched", zap.Error(err))
		}
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized",
		zap.String("addr", cfg.Server.Addr()),
		zap.Int("max_sessions", cfg.Terminal.MaxSessions),
		zap.Int("tools", len(s.registry.Tools())),
	)
	return s, nil
}

func (s *Server) auditLogger() (audit.Logger, error) {
	path := s.config.Logging.AuditPath
	if path == "" {
		return audit.NewZap(s.logger.Logger), nil
	}
	z, closeFn, err := audit.NewZapWithFile(s.logger.Logger, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	s.closeAudit = closeFn
	return z, nil
}

func newValidator(c config.SecurityConfig) (*security.Validator, error) {
	v, err := security.NewValidator(security.Policy{
		Blocked:          c.BlockedCommands,
		Allowed:          c.AllowedCommands,
		MaxCommandLength: c.MaxCommandLength,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid security policy: %w", err)
	}
	return v, nil
}

// reload applies the settings that can change without a restart: the
// security policy and the log level.
func (s *Server) reload(guard *security.Guard) func(*config.Config) {
	return func(cfg *config.Config) {
		if err := s.logger.SetLevel(cfg.Logging.Level); err != nil {
			s.logger.Warn("Log level not reloaded", zap.Error(err))
		}
		v, err := newValidator(cfg.Security)
		if err != nil {
			s.logger.Warn("Security policy not reloaded", zap.Error(err))
			return
		}
		guard.Swap(v)
		s.logger.Info("Security policy reloaded",
			zap.Int("blocked", len(cfg.Security.BlockedCommands)),
			zap.Int("allowed", len(cfg.Security.AllowedCommands)),
		)
	}
}

func (s *Server) registerProviders(validator *security.Guard, auditLog audit.Logger) {
	providers := []service.Provider{
		terminalProvider.NewProvider(s.manager, validator, auditLog,
			terminalProvider.WithDenialRecorder(s.metrics)),
		shell.NewProvider(&shell.Executor{
			Shell:          s.config.Terminal.Shell,
			Timeout:        s.config.Executor.Timeout,
			MaxOutputBytes: s.config.Executor.MaxOutputBytes,
		}, validator, auditLog, shell.WithDenialRecorder(s.metrics)),
		system.NewProvider(s.manager, auditLog, system.WithStats(s.metrics)),
	}
	for _, p := range providers {
		if err := s.registry.Register(p); err != nil {
			s.logger.Warn("Failed to register provider",
				zap.String("service", p.Definition().ID), zap.Error(err))
		}
	}
}

func (s *Server) buildRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))
	corsCfg := middleware.DefaultCORSConfig(s.config.Server.AllowedOrigins...)
	router.Use(middleware.CORS(corsCfg))
	if rl := s.config.RateLimit; rl.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", rl.RequestsPerSecond),
			zap.Int("burst", rl.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: rl.RequestsPerSecond,
			Burst:             rl.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(s.registry, s.manager, s.metrics, s.logger.Logger, s.version)
	handlers.Register(router)

	viewer.NewService(s.manager, s.logger.Logger,
		viewer.WithRecorder(s.metrics),
		viewer.WithOriginCheck(corsCfg.CheckOrigin()),
	).Register(router)

	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return router
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Registry returns the tool registry.
func (s *Server) Registry() *service.Registry { return s.registry }

// Manager returns the session manager.
func (s *Server) Manager() *terminal.Manager { return s.manager }

// Metrics returns the metrics collector.
func (s *Server) Metrics() *monitoring.Metrics { return s.metrics }

// Logger returns the server logger.
func (s *Server) Logger() *zap.Logger { return s.logger.Logger }

// MCP returns an MCP server publishing the registry's tools.
func (s *Server) MCP() *mcp.Server {
	return mcp.NewServer(s.registry, "shellbridge", s.version, s.logger.Logger,
		mcp.WithMetrics(s.metrics),
		mcp.WithTracer(s.tracer),
	)
}

// Run serves HTTP until Close is called.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close stops accepting requests, kills every session and flushes logs.
// Later calls return the first call's result.
func (s *Server) Close(ctx context.Context) error {
	s.closeOnce.Do(func() { s.closeErr = s.close(ctx) })
	return s.closeErr
}

func (s *Server) close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	var errs []error
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop http server: %w", err))
	}
	if err := s.manager.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop sessions: %w", err))
	}
	s.tracer.Close()
	if s.closeAudit != nil {
		if err := s.closeAudit(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit log: %w", err))
		}
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func terminalConfig(c config.TerminalConfig) terminal.Config {
	return terminal.Config{
		MaxSessions:    c.MaxSessions,
		SessionTimeout: c.SessionTimeout,
		ReaperInterval: c.ReaperInterval,
		MaxLines:       c.MaxLines,
		KillGrace:      c.KillGrace,
		Shell:          c.Shell,
		Cols:           c.Cols,
		Rows:           c.Rows,
		ViewerQueue:    c.ViewerQueue,
	}
}

// spawnBreaker opens after repeated PTY allocation failures so a host out of
// ptys fails fast.
func spawnBreaker(logger *zap.Logger) *resilience.Breaker {
	return resilience.New("pty-spawn", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
}
