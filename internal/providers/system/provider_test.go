package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
	"github.com/GriffinCanCode/shellbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shellbridge/internal/providers/params"
	"github.com/GriffinCanCode/shellbridge/internal/shared/types"
)

type fixedCounter struct{ total, running int }

func (c fixedCounter) Count() (int, int) { return c.total, c.running }

type fixedStats monitoring.Stats

func (s fixedStats) Stats() monitoring.Stats { return monitoring.Stats(s) }

func TestSystemInfo(t *testing.T) {
	sys := NewProvider(fixedCounter{}, nil)

	result, err := sys.Execute(context.Background(), "system.info", nil, nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.NotNil(t, result.Data["go_version"])
	assert.NotEmpty(t, result.Summary)
}

func TestSystemTime(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	sys := NewProvider(fixedCounter{}, nil, WithClock(func() time.Time { return at }))

	result, err := sys.Execute(context.Background(), "system.time", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, at.Unix(), result.Data["timestamp"])
	assert.Equal(t, "2025-03-01T09:30:00Z", result.Data["iso"])
}

func TestSystemStats(t *testing.T) {
	stats := fixedStats{UptimeSeconds: 12}
	stats.TotalRequests = 40
	stats.ToolCalls = 7

	sys := NewProvider(fixedCounter{total: 3, running: 2}, nil, WithStats(stats))

	result, err := sys.Execute(context.Background(), "system.stats", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Data["sessions_total"])
	assert.Equal(t, 2, result.Data["sessions_running"])
	assert.Equal(t, int64(40), result.Data["requests"])
	assert.Equal(t, int64(7), result.Data["tool_calls"])
	assert.Equal(t, "3 sessions (2 running). 40 requests, 7 tool calls.", result.Summary)
}

func TestSystemStatsWithoutMetrics(t *testing.T) {
	sys := NewProvider(fixedCounter{total: 1, running: 0}, nil)

	result, err := sys.Execute(context.Background(), "system.stats", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "1 sessions (0 running).", result.Summary)
	assert.NotContains(t, result.Data, "requests")
}

func TestSystemLog(t *testing.T) {
	rec := audit.NewRecorder()
	sys := NewProvider(fixedCounter{}, rec)

	result, err := sys.Execute(context.Background(), "system.log", map[string]interface{}{
		"message": "rotating logs",
		"level":   "warn",
	}, &types.Context{Client: "mcp", AIContext: "cleanup"})
	require.NoError(t, err)
	assert.True(t, result.Success)

	entries := rec.Find("rotating logs")
	require.Len(t, entries, 1)
	assert.Equal(t, audit.LevelWarn, entries[0].Level)
	assert.Equal(t, "mcp", entries[0].Fields["client"])
	assert.Equal(t, "cleanup", entries[0].Fields["ai_context"])
}

func TestSystemLogRejectsBadInput(t *testing.T) {
	sys := NewProvider(fixedCounter{}, audit.NewRecorder())

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing message", map[string]interface{}{}},
		{"bad level", map[string]interface{}{"message": "x", "level": "fatal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sys.Execute(context.Background(), "system.log", tt.args, nil)
			assert.True(t, errors.Is(err, params.ErrInvalid))
		})
	}
}

func TestSystemPingAndUnknown(t *testing.T) {
	sys := NewProvider(fixedCounter{}, nil)

	result, err := sys.Execute(context.Background(), "system.ping", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result.Data["pong"])

	_, err = sys.Execute(context.Background(), "system.nope", nil, nil)
	assert.Error(t, err)
}
