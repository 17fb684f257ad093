package shell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
	"github.com/GriffinCanCode/shellbridge/internal/providers/params"
	"github.com/GriffinCanCode/shellbridge/internal/security"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
)

// Runner executes one-shot commands. *Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, req Request) (*Execution, error)
}

// Validator decides whether a command may run.
type Validator interface {
	Validate(command string) security.Decision
}

// DenialRecorder counts refused commands.
type DenialRecorder interface {
	RecordDenied(risk string)
}

// Provider exposes one-shot command execution as shell.* tools.
type Provider struct {
	runner    Runner
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

// NewProvider creates a shell provider.
func NewProvider(runner Runner, validator Validator, auditLog audit.Logger, opts ...Option) *Provider {
	if auditLog == nil {
		auditLog = audit.Nop
	}
	p := &Provider{runner: runner, validator: validator, audit: auditLog}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "shell",
		Name:        "Shell",
		Description: "Run a single command to completion and capture its output",
		Category:    types.CategoryShell,
		Capabilities: []string{
			"execute",
			"timeout",
			"validate",
		},
		Tools: []types.Tool{
			{
				ID:          "shell.execute",
				Name:        "Execute Command",
				Description: "Run a command with sh -c and wait for it. Use terminal.start_session for interactive or long-running programs",
				Parameters: []types.Parameter{
					{Name: "command", Type: "string", Description: "Command line to run", Required: true},
					{Name: "cwd", Type: "string", Description: "Working directory"},
					{Name: "env", Type: "object", Description: "Extra environment variables"},
					{Name: "timeout_seconds", Type: "integer", Description: "Kill the command after this many seconds"},
				},
				Returns: "execution",
			},
			{
				ID:          "shell.validate",
				Name:        "Validate Command",
				Description: "Check a command against the security policy without running it",
				Parameters: []types.Parameter{
					{Name: "command", Type: "string", Description: "Command line to check", Required: true},
				},
				Returns: "decision",
			},
		},
	}
}

// Execute routes to appropriate operation
func (p *Provider) Execute(ctx context.Context, toolID string, args map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "shell.execute":
		return p.execute(ctx, args, appCtx)
	case "shell.validate":
		return p.validate(args)
	default:
		return types.NewFailure(fmt.Errorf("unknown tool: %s", toolID))
	}
}

func (p *Provider) execute(ctx context.Context, args map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	var req Request
	var err error

	if req.Command, err = params.RequiredString(args, "command"); err != nil {
		return types.NewFailure(err)
	}
	if req.Cwd, err = params.String(args, "cwd"); err != nil {
		return types.NewFailure(err)
	}
	if req.Env, err = params.StringMap(args, "env"); err != nil {
		return types.NewFailure(err)
	}
	seconds, err := params.Int(args, "timeout_seconds", 0)
	if err != nil {
		return types.NewFailure(err)
	}
	if seconds < 0 {
		return types.NewFailure(fmt.Errorf("%w: timeout_seconds must not be negative", params.ErrInvalid))
	}
	req.Timeout = time.Duration(seconds) * time.Second

	decision := p.validator.Validate(req.Command)
	if !decision.Allowed {
		p.denied(req.Command, decision, appCtx)
		return types.NewFailure(decision.Err())
	}

	run, err := p.runner.Run(ctx, req)
	if err != nil {
		return types.NewFailure(err)
	}

	fields := map[string]any{
		"exec_id":     run.ID.String(),
		"command":     run.Command,
		"exit_code":   run.ExitCode,
		"timed_out":   run.TimedOut,
		"duration_ms": run.Duration.Milliseconds(),
		"risk_level":  string(decision.RiskLevel),
	}
	if appCtx != nil && appCtx.Client != "" {
		fields["client"] = appCtx.Client
	}
	p.audit.Log(audit.LevelInfo, "command executed", fields)

	return types.NewSuccess(map[string]interface{}{
		"exec_id":     run.ID.String(),
		"exit_code":   run.ExitCode,
		"signal":      run.Signal,
		"timed_out":   run.TimedOut,
		"truncated":   run.Truncated,
		"duration_ms": run.Duration.Milliseconds(),
		"stdout":      run.Stdout,
		"stderr":      run.Stderr,
	}, summary(run))
}

func (p *Provider) validate(args map[string]interface{}) (*types.Result, error) {
	command, err := params.RequiredString(args, "command")
	if err != nil {
		return types.NewFailure(err)
	}

	decision := p.validator.Validate(command)
	verdict := "allowed"
	if !decision.Allowed {
		verdict = "denied"
	}
	text := fmt.Sprintf("Command %s (risk: %s).", verdict, decision.RiskLevel)
	if decision.Reason != "" {
		text += " " + decision.Reason
	}

	return types.NewSuccess(map[string]interface{}{
		"allowed":    decision.Allowed,
		"risk_level": decision.RiskLevel,
		"reason":     decision.Reason,
	}, text)
}

func (p *Provider) denied(command string, decision security.Decision, appCtx *types.Context) {
	fields := map[string]any{
		"command":    command,
		"risk_level": string(decision.RiskLevel),
		"reason":     decision.Reason,
		"tool":       "shell.execute",
	}
	if appCtx != nil && appCtx.Client != "" {
		fields["client"] = appCtx.Client
	}
	p.audit.Log(audit.LevelWarn, "command denied", fields)
	if p.denials != nil {
		p.denials.RecordDenied(string(decision.RiskLevel))
	}
}

func summary(run *Execution) string {
	var sb strings.Builder
	switch {
	case run.TimedOut:
		fmt.Fprintf(&sb, "`%s` timed out after %s", run.Command, run.Duration.Round(time.Millisecond))
	case run.Signal != "":
		fmt.Fprintf(&sb, "`%s` killed by %s", run.Command, run.Signal)
	default:
		fmt.Fprintf(&sb, "`%s` exited with code %d", run.Command, run.ExitCode)
	}
	fmt.Fprintf(&sb, " (%s, exec `%s`)", run.Duration.Round(time.Millisecond), run.ID)

	sb.WriteString("\n\n")
	sb.WriteString(fenced(run.Stdout))
	if run.Stderr != "" {
		sb.WriteString("\n\n**stderr**\n")
		sb.WriteString(fenced(run.Stderr))
	}
	if run.Truncated {
		sb.WriteString("\n\n_Output truncated._")
	}
	return sb.String()
}

func fenced(text string) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return "_(no output)_"
	}
	fence := "```"
	for strings.Contains(text, fence) {
		fence += "`"
	}
	return fence + "\n" + text + "\n" + fence
}
