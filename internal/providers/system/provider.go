package system

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellbridge/internal/providers/params"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
)

// SessionCounter reports session totals. *terminal.Manager satisfies it.
type SessionCounter interface {
	Count() (total, running int)
}

// StatsSource reports request and tool statistics. *monitoring.Metrics
// satisfies it.
type StatsSource interface {
	Stats() monitoring.Stats
}

// Provider implements host information and audit annotations.
type Provider struct {
	startTime time.Time
	now       func() time.Time
	sessions  SessionCounter
	stats     StatsSource
	audit     audit.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithStats includes request and tool statistics in system.stats.
func WithStats(s StatsSource) Option {
	return func(p *Provider) { p.stats = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a system provider
func NewProvider(sessions SessionCounter, auditLog audit.Logger, opts ...Option) *Provider {
	if auditLog == nil {
		auditLog = audit.Nop
	}
	p := &Provider{now: time.Now, sessions: sessions, audit: auditLog}
	for _, opt := range opts {
		opt(p)
	}
	p.startTime = p.now()
	return p
}

// Definition returns service metadata
func (s *Provider) Definition() types.Service {
	return types.Service{
		ID:          "system",
		Name:        "System Service",
		Description: "Host information, server statistics and audit notes",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"info",
			"stats",
			"audit",
		},
		Tools: []types.Tool{
			{
				ID:          "system.info",
				Name:        "System Info",
				Description: "Get host and runtime information",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.time",
				Name:        "Current Time",
				Description: "Get current server time",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.stats",
				Name:        "Server Stats",
				Description: "Session counts, request totals and tool call totals",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "system.log",
				Name:        "Audit Note",
				Description: "Record a note in the audit log, for example the reason for a series of commands",
				Parameters: []types.Parameter{
					{Name: "message", Type: "string", Description: "Note text", Required: true},
					{Name: "level", Type: "string", Description: "info, warn or error. Defaults to info"},
				},
				Returns: "boolean",
			},
			{
				ID:          "system.ping",
				Name:        "Ping",
				Description: "Test service availability",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a system operation
func (s *Provider) Execute(ctx context.Context, toolID string, args map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "system.info":
		return s.info()
	case "system.time":
		return s.currentTime()
	case "system.stats":
		return s.serverStats()
	case "system.log":
		return s.log(args, appCtx)
	case "system.ping":
		return types.NewSuccess(map[string]interface{}{"pong": true, "timestamp": s.now().Unix()}, "pong")
	default:
		return types.NewFailure(fmt.Errorf("unknown tool: %s", toolID))
	}
}

func (s *Provider) info() (*types.Result, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	hostname, _ := os.Hostname()
	uptime := s.now().Sub(s.startTime)

	return types.NewSuccess(map[string]interface{}{
		"hostname":       hostname,
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"cpus":           runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_alloc":   m.Alloc / 1024 / 1024, // MB
		"memory_sys":     m.Sys / 1024 / 1024,   // MB
		"uptime_seconds": uptime.Seconds(),
	}, fmt.Sprintf("%s %s/%s, %d CPUs, up %s.", hostname, runtime.GOOS, runtime.GOARCH, runtime.NumCPU(), uptime.Round(time.Second)))
}

func (s *Provider) currentTime() (*types.Result, error) {
	now := s.now()
	return types.NewSuccess(map[string]interface{}{
		"timestamp": now.Unix(),
		"iso":       now.Format(time.RFC3339),
		"unix_ms":   now.UnixMilli(),
	}, now.Format(time.RFC3339))
}

func (s *Provider) serverStats() (*types.Result, error) {
	total, running := s.sessions.Count()
	data := map[string]interface{}{
		"sessions_total":   total,
		"sessions_running": running,
	}
	summary := fmt.Sprintf("%d sessions (%d running).", total, running)

	if s.stats != nil {
		st := s.stats.Stats()
		data["requests"] = st.TotalRequests
		data["errors"] = st.TotalErrors
		data["viewers"] = st.ActiveViewers
		data["tool_calls"] = st.ToolCalls
		data["avg_latency_ms"] = st.AvgLatencyMS
		data["uptime_seconds"] = st.UptimeSeconds
		summary += fmt.Sprintf(" %d requests, %d tool calls.", st.TotalRequests, st.ToolCalls)
	}
	return types.NewSuccess(data, summary)
}

func (s *Provider) log(args map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	message, err := params.RequiredString(args, "message")
	if err != nil {
		return types.NewFailure(err)
	}
	level, err := params.String(args, "level")
	if err != nil {
		return types.NewFailure(err)
	}

	lvl := audit.LevelInfo
	switch level {
	case "", "info":
	case "warn":
		lvl = audit.LevelWarn
	case "error":
		lvl = audit.LevelError
	default:
		return types.NewFailure(fmt.Errorf("%w: level must be info, warn or error", params.ErrInvalid))
	}

	fields := map[string]any{"source": "system.log"}
	if appCtx != nil {
		if appCtx.Client != "" {
			fields["client"] = appCtx.Client
		}
		if appCtx.AIContext != "" {
			fields["ai_context"] = appCtx.AIContext
		}
	}
	s.audit.Log(lvl, message, fields)

	return types.NewSuccess(map[string]interface{}{"logged": true}, "Noted.")
}
