package config

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reloads struct {
	mu   sync.Mutex
	seen []*Config
}

func (r *reloads) record(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, cfg)
}

func (r *reloads) last() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return nil
	}
	return r.seen[len(r.seen)-1]
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "shellbridge.yaml", "terminal:\n  max_sessions: 4\n")

	var got reloads
	w, err := Watch(path, nil, got.record)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("terminal:\n  max_sessions: 9\n"), 0o600))

	require.Eventually(t, func() bool {
		cfg := got.last()
		return cfg != nil && cfg.Terminal.MaxSessions == 9
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchKeepsPreviousOnInvalidFile(t *testing.T) {
	path := writeFile(t, "shellbridge.yaml", "terminal:\n  max_sessions: 4\n")

	var got reloads
	w, err := Watch(path, nil, got.record)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, os.WriteFile(path, []byte("terminal:\n  max_sessions: 0\n"), 0o600))
	time.Sleep(3 * reloadDebounce)
	assert.Nil(t, got.last(), "invalid config must not be delivered")

	require.NoError(t, os.WriteFile(path, []byte("terminal:\n  max_sessions: 6\n"), 0o600))
	require.Eventually(t, func() bool {
		cfg := got.last()
		return cfg != nil && cfg.Terminal.MaxSessions == 6
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatchMissingDirectory(t *testing.T) {
	_, err := Watch("/definitely/not/a/dir/shellbridge.yaml", nil, func(*Config) {})
	assert.Error(t, err)
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	path := writeFile(t, "shellbridge.toml", "")

	w, err := Watch(path, nil, func(*Config) {})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
