package shell

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

func TestExecutorRun(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name     string
		req      Request
		exitCode int
		stdout   string
		stderr   string
	}{
		{"stdout", Request{Command: "echo hello"}, 0, "hello\n", ""},
		{"stderr", Request{Command: "echo oops 1>&2"}, 0, "", "oops\n"},
		{"exit code", Request{Command: "exit 7"}, 7, "", ""},
		{"env override", Request{Command: "printf %s \"$SB_VALUE\"", Env: map[string]string{"SB_VALUE": "42"}}, 0, "42", ""},
		{"cwd", Request{Command: "pwd", Cwd: "/"}, 0, "/\n", ""},
	}

	e := &Executor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := e.Run(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.exitCode, run.ExitCode)
			assert.Equal(t, tt.stdout, run.Stdout)
			assert.Equal(t, tt.stderr, run.Stderr)
			assert.False(t, run.TimedOut)
			assert.False(t, run.Truncated)
			assert.NotEmpty(t, run.ID)
		})
	}
}

func TestExecutorTimeoutKillsProcessGroup(t *testing.T) {
	requireShell(t)

	e := &Executor{WaitDelay: time.Second}
	start := time.Now()
	run, err := e.Run(context.Background(), Request{
		Command: "sleep 30 & sleep 30; echo unreachable",
		Timeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.True(t, run.TimedOut)
	assert.Equal(t, "SIGKILL", run.Signal)
	assert.Equal(t, 137, run.ExitCode)
	assert.NotContains(t, run.Stdout, "unreachable")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecutorCapsOutput(t *testing.T) {
	requireShell(t)

	e := &Executor{MaxOutputBytes: 10}
	run, err := e.Run(context.Background(), Request{Command: "printf '%050d' 0"})
	require.NoError(t, err)

	assert.True(t, run.Truncated)
	assert.Equal(t, strings.Repeat("0", 10), run.Stdout)
	assert.Equal(t, 0, run.ExitCode)
}

func TestExecutorRejectsEmptyCommand(t *testing.T) {
	_, err := (&Executor{}).Run(context.Background(), Request{})
	assert.Error(t, err)
}

func TestExecutorMissingShell(t *testing.T) {
	e := &Executor{Shell: "/definitely/not/a/shell"}
	_, err := e.Run(context.Background(), Request{Command: "true"})
	assert.Error(t, err)
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 5}

	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, b.truncated)

	n, err = b.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n, "writes report full length so the copier keeps draining")
	assert.True(t, b.truncated)

	_, _ = b.Write([]byte("hij"))
	assert.Equal(t, "abcde", b.String())
}
