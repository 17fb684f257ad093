package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/shellbridge/internal/shared/id"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
)

// Registry is the tool surface published over MCP. *service.Registry
// satisfies it.
type Registry interface {
	Tools() []types.Tool
	Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error)
}

// Server publishes registry tools to MCP clients.
type Server struct {
	registry Registry
	server   *gomcp.Server
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records tool call counts and durations.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithTracer wraps each tool call in a span.
func WithTracer(t *tracing.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// NewServer registers every tool in the registry with a new MCP server.
// Tools registered with the registry afterwards are not published.
func NewServer(registry Registry, name, version string, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		logger:   logger.Named("mcp"),
		server: gomcp.NewServer(&gomcp.Implementation{Name: name, Version: version}, &gomcp.ServerOptions{
			Instructions: "Start interactive sessions with terminal.start_session, then drive them with " +
				"terminal.send_input and terminal.read_output. Use shell.execute for one-off commands.",
		}),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, tool := range registry.Tools() {
		s.server.AddTool(&gomcp.Tool{
			Name:        tool.ID,
			Title:       tool.Name,
			Description: tool.Description,
			InputSchema: InputSchema(tool),
		}, s.handler(tool.ID))
	}
	return s
}

// Run serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// Connect serves a single session over transport.
func (s *Server) Connect(ctx context.Context, transport gomcp.Transport) (*gomcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

func (s *Server) handler(toolID string) gomcp.ToolHandler {
	return func(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		if s.tracer != nil {
			var span *tracing.Span
			span, ctx = s.tracer.StartSpan(ctx, "mcp "+toolID)
			span.SetTag("tool", toolID)
			defer s.tracer.Finish(span)
		}
		var timer *monitoring.Timer
		if s.metrics != nil {
			timer = monitoring.NewTimer(s.metrics, toolID)
		}

		result, err := s.call(ctx, toolID, req)

		status := "success"
		if err != nil {
			status = "error"
			s.logger.Debug("tool call failed", zap.String("tool", toolID), zap.Error(err))
		}
		if timer != nil {
			timer.Stop(status)
		}
		return result, nil
	}
}

func (s *Server) call(ctx context.Context, toolID string, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	args, err := decodeArguments(req)
	if err != nil {
		return errorResult(err), err
	}

	appCtx := &types.Context{
		Client:    "mcp",
		RequestID: id.NewRequestID().String(),
	}
	result, err := s.registry.Execute(ctx, toolID, args, appCtx)
	if err != nil {
		return errorResult(err), err
	}
	if result == nil || !result.Success {
		err := errors.New("tool failed")
		if result != nil && result.Error != nil {
			err = errors.New(*result.Error)
		}
		return errorResult(err), err
	}
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: render(result)}},
	}, nil
}

func decodeArguments(req *gomcp.CallToolRequest) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}
	if err := sonic.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

func errorResult(err error) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: "Error: " + err.Error()}},
		IsError: true,
	}
}

// render joins the markdown summary and the JSON data.
func render(result *types.Result) string {
	var sb strings.Builder
	sb.WriteString(result.Summary)

	if len(result.Data) > 0 {
		data, err := sonic.ConfigStd.MarshalIndent(result.Data, "", "  ")
		if err == nil {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString("```json\n")
			sb.Write(data)
			sb.WriteString("\n```")
		}
	}
	return sb.String()
}
