package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
	"github.com/GriffinCanCode/shellbridge/internal/providers/params"
	"github.com/GriffinCanCode/shellbridge/internal/security"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
	sessions "github.com/GriffinCanCode/shellbridge/internal/terminal"
)

// Manager is the session manager surface the provider drives.
type Manager interface {
	StartSession(ctx context.Context, opts sessions.StartOptions) (*sessions.Info, error)
	SendInput(sessionID, input string, addNewline bool) error
	ReadOutput(sessionID string) (*sessions.Output, error)
	GetBuffer(sessionID string) (sessions.Snapshot, sessions.Status, error)
	Get(sessionID string) (*sessions.Info, error)
	ListSessions() []sessions.Info
	ResizeTerminal(sessionID string, cols, rows int) error
	KillSession(sessionID string) error
}

// Validator decides whether a command may start.
type Validator interface {
	Validate(command string) security.Decision
}

// DenialRecorder counts refused commands. *monitoring.Metrics satisfies it.
type DenialRecorder interface {
	RecordDenied(risk string)
}

// Provider exposes the session manager as terminal.* tools.
type Provider struct {
	manager   Manager
	validator Validator
	audit     audit.Logger
	denials   DenialRecorder
}

// Option configures a Provider.
type Option func(*Provider)

// WithDenialRecorder counts commands refused by the validator.
func WithDenialRecorder(r DenialRecorder) Option {
	return func(p *Provider) { p.denials = r }
}

// NewProvider creates a terminal provider.
func NewProvider(manager Manager, validator Validator, auditLog audit.Logger, opts ...Option) *Provider {
	if auditLog == nil {
		auditLog = audit.Nop
	}
	p := &Provider{manager: manager, validator: validator, audit: auditLog}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "terminal",
		Name:        "Terminal Sessions",
		Description: "Interactive shell sessions with scrollback, live viewers and idle cleanup",
		Category:    types.CategoryTerminal,
		Capabilities: []string{
			"pty",
			"interactive_shell",
			"scrollback",
			"live_view",
			"resize",
		},
		Tools: tools(),
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, args map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "terminal.start_session":
		return p.startSession(ctx, args, appCtx)
	case "terminal.send_input":
		return p.sendInput(args)
	case "terminal.read_output":
		return p.readOutput(args)
	case "terminal.get_buffer":
		return p.getBuffer(args)
	case "terminal.get_session":
		return p.getSession(args)
	case "terminal.list_sessions":
		return p.listSessions()
	case "terminal.resize":
		return p.resize(args)
	case "terminal.kill_session":
		return p.killSession(args)
	default:
		return types.NewFailure(fmt.Errorf("unknown tool: %s", toolID))
	}
}

func (p *Provider) startSession(ctx context.Context, args map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	var opts sessions.StartOptions
	var err error

	if opts.Command, err = params.String(args, "command"); err != nil {
		return types.NewFailure(err)
	}
	if opts.Args, err = params.StringSlice(args, "args"); err != nil {
		return types.NewFailure(err)
	}
	if opts.Cwd, err = params.String(args, "cwd"); err != nil {
		return types.NewFailure(err)
	}
	if opts.Env, err = params.StringMap(args, "env"); err != nil {
		return types.NewFailure(err)
	}
	if opts.Shell, err = params.String(args, "shell"); err != nil {
		return types.NewFailure(err)
	}
	if opts.PTY, err = params.Bool(args, "pty", true); err != nil {
		return types.NewFailure(err)
	}
	if opts.Cols, err = params.Int(args, "cols", 0); err != nil {
		return types.NewFailure(err)
	}
	if opts.Rows, err = params.Int(args, "rows", 0); err != nil {
		return types.NewFailure(err)
	}
	if opts.AIContext, err = params.String(args, "ai_context"); err != nil {
		return types.NewFailure(err)
	}
	if opts.AIContext == "" && appCtx != nil {
		opts.AIContext = appCtx.AIContext
	}

	if opts.Command != "" {
		line := strings.TrimSpace(opts.Command + " " + strings.Join(opts.Args, " "))
		decision := p.validator.Validate(line)
		if !decision.Allowed {
			p.denied(line, decision, appCtx)
			return types.NewFailure(decision.Err())
		}
	}

	info, err := p.manager.StartSession(ctx, opts)
	if err != nil {
		return types.NewFailure(err)
	}

	return types.NewSuccess(map[string]interface{}{
		"session_id": info.SessionID,
		"session":    info,
	}, fmt.Sprintf("Started %s session `%s` (pid %d) in `%s`.", info.Kind, info.SessionID, info.Pid, info.Cwd))
}

func (p *Provider) denied(command string, decision security.Decision, appCtx *types.Context) {
	fields := map[string]any{
		"command":    command,
		"risk_level": string(decision.RiskLevel),
		"reason":     decision.Reason,
		"tool":       "terminal.start_session",
	}
	if appCtx != nil && appCtx.Client != "" {
		fields["client"] = appCtx.Client
	}
	p.audit.Log(audit.LevelWarn, "command denied", fields)
	if p.denials != nil {
		p.denials.RecordDenied(string(decision.RiskLevel))
	}
}

func (p *Provider) sendInput(args map[string]interface{}) (*types.Result, error) {
	sessionID, err := params.RequiredString(args, "session_id")
	if err != nil {
		return types.NewFailure(err)
	}
	input, err := params.String(args, "input")
	if err != nil {
		return types.NewFailure(err)
	}
	newline, err := params.Bool(args, "newline", true)
	if err != nil {
		return types.NewFailure(err)
	}

	if err := p.manager.SendInput(sessionID, input, newline); err != nil {
		return types.NewFailure(err)
	}
	return types.NewSuccess(map[string]interface{}{"session_id": sessionID}, "Input sent.")
}

func (p *Provider) readOutput(args map[string]interface{}) (*types.Result, error) {
	sessionID, err := params.RequiredString(args, "session_id")
	if err != nil {
		return types.NewFailure(err)
	}

	out, err := p.manager.ReadOutput(sessionID)
	if err != nil {
		return types.NewFailure(err)
	}

	return types.NewSuccess(map[string]interface{}{
		"session_id": sessionID,
		"stdout":     out.Stdout,
		"stderr":     out.Stderr,
		"has_more":   out.HasMore,
		"status":     out.Status,
	}, outputSummary(out))
}

func (p *Provider) getBuffer(args map[string]interface{}) (*types.Result, error) {
	sessionID, err := params.RequiredString(args, "session_id")
	if err != nil {
		return types.NewFailure(err)
	}
	last, err := params.Int(args, "lines", 0)
	if err != nil {
		return types.NewFailure(err)
	}

	snap, status, err := p.manager.GetBuffer(sessionID)
	if err != nil {
		return types.NewFailure(err)
	}
	lines := snap.Lines
	if last > 0 && last < len(lines) {
		lines = lines[len(lines)-last:]
	}

	text := make([]string, len(lines))
	for i, l := range lines {
		text[i] = l.Text
	}

	return types.NewSuccess(map[string]interface{}{
		"session_id": sessionID,
		"lines":      lines,
		"scrollback": snap.Scrollback,
		"max_lines":  snap.MaxLines,
		"total":      snap.Total,
		"partial":    snap.Partial,
		"status":     status,
	}, fenced(strings.Join(text, "\n")))
}

func (p *Provider) getSession(args map[string]interface{}) (*types.Result, error) {
	sessionID, err := params.RequiredString(args, "session_id")
	if err != nil {
		return types.NewFailure(err)
	}

	info, err := p.manager.Get(sessionID)
	if err != nil {
		return types.NewFailure(err)
	}
	return types.NewSuccess(map[string]interface{}{"session": info}, sessionTable([]sessions.Info{*info}))
}

func (p *Provider) listSessions() (*types.Result, error) {
	list := p.manager.ListSessions()
	if list == nil {
		list = []sessions.Info{}
	}
	return types.NewSuccess(map[string]interface{}{
		"sessions": list,
		"count":    len(list),
	}, sessionTable(list))
}

func (p *Provider) resize(args map[string]interface{}) (*types.Result, error) {
	sessionID, err := params.RequiredString(args, "session_id")
	if err != nil {
		return types.NewFailure(err)
	}
	cols, err := params.Int(args, "cols", 0)
	if err != nil {
		return types.NewFailure(err)
	}
	rows, err := params.Int(args, "rows", 0)
	if err != nil {
		return types.NewFailure(err)
	}

	if err := p.manager.ResizeTerminal(sessionID, cols, rows); err != nil {
		return types.NewFailure(err)
	}
	return types.NewSuccess(map[string]interface{}{
		"session_id": sessionID,
		"cols":       cols,
		"rows":       rows,
	}, fmt.Sprintf("Resized to %dx%d.", cols, rows))
}

func (p *Provider) killSession(args map[string]interface{}) (*types.Result, error) {
	sessionID, err := params.RequiredString(args, "session_id")
	if err != nil {
		return types.NewFailure(err)
	}

	if err := p.manager.KillSession(sessionID); err != nil {
		return types.NewFailure(err)
	}
	return types.NewSuccess(map[string]interface{}{"session_id": sessionID}, fmt.Sprintf("Session `%s` killed.", sessionID))
}
