package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellbridge/internal/service"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
)

// echoProvider returns its arguments, or fails when asked to.
type echoProvider struct {
	lastCtx *types.Context
}

func (p *echoProvider) Definition() types.Service {
	return types.Service{
		ID:       "echo",
		Name:     "Echo",
		Category: types.CategorySystem,
		Tools: []types.Tool{
			{
				ID:          "echo.say",
				Name:        "Say",
				Description: "Repeat a message",
				Parameters: []types.Parameter{
					{Name: "message", Type: "string", Required: true},
					{Name: "times", Type: "integer"},
				},
			},
			{ID: "echo.fail", Name: "Fail"},
		},
	}
}

func (p *echoProvider) Execute(_ context.Context, toolID string, args map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	p.lastCtx = appCtx
	switch toolID {
	case "echo.say":
		return types.NewSuccess(map[string]interface{}{"message": args["message"], "times": args["times"]},
			fmt.Sprintf("Said **%v**.", args["message"]))
	default:
		return types.NewFailure(errors.New("boom"))
	}
}

func connect(t *testing.T, s *Server) *gomcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := gomcp.NewInMemoryTransports()

	_, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := gomcp.NewClient(&gomcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func newTestServer(t *testing.T) (*Server, *echoProvider, *monitoring.Metrics) {
	t.Helper()
	provider := &echoProvider{}
	registry := service.NewRegistry()
	require.NoError(t, registry.Register(provider))

	metrics := monitoring.NewMetrics()
	return NewServer(registry, "shellbridge", "test", zap.NewNop(), WithMetrics(metrics)), provider, metrics
}

func TestListToolsPublishesRegistry(t *testing.T) {
	s, _, _ := newTestServer(t)
	session := connect(t, s)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"echo.say", "echo.fail"}, names)
}

func TestCallToolRendersSummaryAndData(t *testing.T) {
	s, provider, metrics := newTestServer(t)
	session := connect(t, s)

	res, err := session.CallTool(context.Background(), &gomcp.CallToolParams{
		Name:      "echo.say",
		Arguments: map[string]any{"message": "hi", "times": 2},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*gomcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Said **hi**.")
	assert.Contains(t, text.Text, "```json")
	assert.Contains(t, text.Text, `"message": "hi"`)

	require.NotNil(t, provider.lastCtx)
	assert.Equal(t, "mcp", provider.lastCtx.Client)
	assert.NotEmpty(t, provider.lastCtx.RequestID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("echo.say", "success")))
}

func TestCallToolFailureIsErrorResult(t *testing.T) {
	s, _, metrics := newTestServer(t)
	session := connect(t, s)

	res, err := session.CallTool(context.Background(), &gomcp.CallToolParams{Name: "echo.fail"})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	text, ok := res.Content[0].(*gomcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Error: boom", text.Text)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCalls.WithLabelValues("echo.fail", "error")))
}

func TestHandlerRejectsMalformedArguments(t *testing.T) {
	s, _, _ := newTestServer(t)

	res, err := s.handler("echo.say")(context.Background(), &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{Name: "echo.say", Arguments: []byte(`{"message":`)},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(*gomcp.TextContent).Text, "invalid arguments")
}

func TestHandlerTreatsMissingArgumentsAsEmpty(t *testing.T) {
	s, provider, _ := newTestServer(t)

	res, err := s.handler("echo.say")(context.Background(), &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{Name: "echo.say", Arguments: []byte("null")},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.NotNil(t, provider.lastCtx)
}

func TestInputSchema(t *testing.T) {
	schema := InputSchema(types.Tool{
		ID: "x.y",
		Parameters: []types.Parameter{
			{Name: "command", Type: "string", Description: "cmd", Required: true},
			{Name: "args", Type: "array", Items: "string"},
			{Name: "env", Type: "object"},
			{Name: "cols", Type: "integer"},
			{Name: "pty", Type: "boolean"},
			{Name: "odd", Type: "blob"},
		},
	})

	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, []string{"command"}, schema.Required)
	require.Len(t, schema.Properties, 6)

	assert.Equal(t, "string", schema.Properties["command"].Type)
	assert.Equal(t, "cmd", schema.Properties["command"].Description)
	require.NotNil(t, schema.Properties["args"].Items)
	assert.Equal(t, "string", schema.Properties["args"].Items.Type)
	require.NotNil(t, schema.Properties["env"].AdditionalProperties)
	assert.Equal(t, "string", schema.Properties["env"].AdditionalProperties.Type)
	assert.Equal(t, "integer", schema.Properties["cols"].Type)
	assert.Equal(t, "boolean", schema.Properties["pty"].Type)
	assert.Equal(t, "string", schema.Properties["odd"].Type)
}

func TestInputSchemaNoParameters(t *testing.T) {
	schema := InputSchema(types.Tool{ID: "x.y"})
	assert.Equal(t, "object", schema.Type)
	assert.Empty(t, schema.Required)
	assert.NotNil(t, schema.Properties)
}
