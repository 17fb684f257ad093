package terminal

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/shellbridge/internal/audit"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func newFallbackManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, audit.NewRecorder(), WithoutReaper())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func TestFallbackEchoesInputAndDrains(t *testing.T) {
	requireBinary(t, "cat")
	m := newFallbackManager(t, Config{})

	info, err := m.StartSession(context.Background(), StartOptions{Command: "cat"})
	require.NoError(t, err)
	assert.Equal(t, KindFallback, info.Kind)
	assert.Equal(t, "cat", info.Command)

	require.NoError(t, m.SendInput(info.SessionID, "hello", true))

	var collected []string
	require.Eventually(t, func() bool {
		out, err := m.ReadOutput(info.SessionID)
		if err != nil {
			return false
		}
		if out.Stdout != "" {
			collected = append(collected, out.Stdout)
		}
		return strings.Count(strings.Join(collected, "\n"), "hello") == 2
	}, waitFor, 10*time.Millisecond, "input echo and cat output")

	snap, _, err := m.GetBuffer(info.SessionID)
	require.NoError(t, err)
	assert.Empty(t, snap.Lines, "fallback reads drain the buffer")

	out, err := m.ReadOutput(info.SessionID)
	require.NoError(t, err)
	assert.Empty(t, out.Stdout)
	assert.True(t, out.HasMore)
}

func TestFallbackSeparatesStreamsAndClassifiesExit(t *testing.T) {
	requireBinary(t, "sh")
	m := newFallbackManager(t, Config{})

	info, err := m.StartSession(context.Background(), StartOptions{
		Command: "sh",
		Args:    []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	require.NoError(t, err)
	waitStatus(t, m, info.SessionID, StatusError)

	snap, _, err := m.GetBuffer(info.SessionID)
	require.NoError(t, err)

	byType := map[LineType][]string{}
	for _, l := range snap.Lines {
		byType[l.Type] = append(byType[l.Type], l.Text)
	}
	assert.Equal(t, []string{"out"}, byType[LineOutput])
	assert.Equal(t, []string{"err", "[Process exited with code 3]"}, byType[LineError])

	err = m.SendInput(info.SessionID, "more", true)
	assert.True(t, errors.Is(err, ErrInvalidState))
}

func TestFallbackEnvironmentOverrides(t *testing.T) {
	requireBinary(t, "sh")
	m := newFallbackManager(t, Config{})

	info, err := m.StartSession(context.Background(), StartOptions{
		Command: "sh",
		Args:    []string{"-c", "echo $SHELLBRIDGE_TEST"},
		Env:     map[string]string{"SHELLBRIDGE_TEST": "override"},
	})
	require.NoError(t, err)
	waitStatus(t, m, info.SessionID, StatusFinished)

	out, err := m.ReadOutput(info.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "override\n[Process exited with code 0]", out.Stdout)
	assert.False(t, out.HasMore)
}

func TestFallbackKillEscalates(t *testing.T) {
	requireBinary(t, "sh")
	m := newFallbackManager(t, Config{KillGrace: 100 * time.Millisecond})

	info, err := m.StartSession(context.Background(), StartOptions{
		Command: "sh",
		Args:    []string{"-c", "trap '' TERM; echo ready; while :; do :; done"},
	})
	require.NoError(t, err)

	s, err := m.Session(info.SessionID)
	require.NoError(t, err)
	waitLines(t, m, info.SessionID, 1)

	require.NoError(t, m.KillSession(info.SessionID))
	require.NoError(t, m.KillSession(info.SessionID))

	_, err = m.Get(info.SessionID)
	assert.True(t, errors.Is(err, ErrNotFound), "removal is immediate")

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process survived SIGKILL escalation")
	}
	require.NotNil(t, s.ExitStatus())
	assert.Equal(t, "SIGKILL", s.ExitStatus().Signal)
	assert.Equal(t, StatusError, s.Status())
}

func TestFallbackSpawnFailure(t *testing.T) {
	m := newFallbackManager(t, Config{})

	_, err := m.StartSession(context.Background(), StartOptions{Command: "/definitely/not/a/binary"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpawnFailure))
	assert.Empty(t, m.ListSessions())
}

func TestFallbackCannotBeViewedOrResized(t *testing.T) {
	requireBinary(t, "cat")
	m := newFallbackManager(t, Config{})

	info, err := m.StartSession(context.Background(), StartOptions{Command: "cat"})
	require.NoError(t, err)

	_, err = m.Attach(info.SessionID)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.NoError(t, m.ResizeTerminal(info.SessionID, 100, 40))
}

func TestFallbackExitsWhileBackgroundChildHoldsOutput(t *testing.T) {
	requireBinary(t, "sh")
	requireBinary(t, "sleep")
	m := newFallbackManager(t, Config{})

	info, err := m.StartSession(context.Background(), StartOptions{
		Command: "sh",
		Args:    []string{"-c", "sleep 4 & echo started; exit 3"},
	})
	require.NoError(t, err)

	s, err := m.Session(info.SessionID)
	require.NoError(t, err)
	waitStatus(t, m, info.SessionID, StatusError)

	require.NotNil(t, s.ExitStatus())
	assert.Equal(t, 3, s.ExitStatus().Code)

	snap, _, err := m.GetBuffer(info.SessionID)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Lines)
	assert.Equal(t, "started", snap.Lines[0].Text)

	err = m.SendInput(info.SessionID, "echo hi", true)
	assert.True(t, errors.Is(err, ErrInvalidState), "got %v", err)
}

func TestFallbackKillReachesProcessGroup(t *testing.T) {
	requireBinary(t, "sh")
	requireBinary(t, "sleep")
	m := newFallbackManager(t, Config{KillGrace: time.Second})

	info, err := m.StartSession(context.Background(), StartOptions{
		Command: "sh",
		Args:    []string{"-c", "sleep 30 & echo ready; wait"},
	})
	require.NoError(t, err)

	s, err := m.Session(info.SessionID)
	require.NoError(t, err)
	waitLines(t, m, info.SessionID, 1)

	started := time.Now()
	require.NoError(t, m.KillSession(info.SessionID))

	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("background child kept the session alive")
	}
	assert.Less(t, time.Since(started), waitFor)
	require.NotNil(t, s.ExitStatus())
	assert.Equal(t, "SIGTERM", s.ExitStatus().Signal)
}

func TestLineWriterTruncatesLongLines(t *testing.T) {
	events := make(chan ProcessEvent, 8)
	w := newLineWriter(StreamStderr, events)

	long := strings.Repeat("x", maxLineBytes+10)
	n, err := w.Write([]byte("first\n" + long[:100]))
	require.NoError(t, err)
	assert.Equal(t, 106, n)
	_, err = w.Write([]byte(long[100:] + "\nnext\ntail"))
	require.NoError(t, err)
	w.flush()
	close(events)

	var chunks []string
	for ev := range events {
		assert.Equal(t, StreamStderr, ev.Stream)
		chunks = append(chunks, string(ev.Data))
	}
	require.Len(t, chunks, 5)
	assert.Equal(t, "first\n", chunks[0])
	assert.Len(t, chunks[1], maxLineBytes+1)
	assert.Equal(t, truncatedMarker+"\n", chunks[2])
	assert.Equal(t, "next\n", chunks[3])
	assert.Equal(t, "tail\n", chunks[4])
}
