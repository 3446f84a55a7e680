//go:build !windows

package botmgr

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func embeddedConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	token := fmt.Sprintf("botmgr-embed-%d", time.Now().UnixNano())
	c := DefaultConfig(dir)
	for i := range c.Bots {
		c.Bots[i].Venv = ""
		c.Bots[i].Match = fmt.Sprintf("%s-%d", token, i)
		c.Bots[i].WorkDir = dir
		c.Bots[i].Command = fmt.Sprintf("sh -c 'sleep 10; true # %s-%d'", token, i)
	}
	c.Supervisor.Settle = 150 * time.Millisecond
	c.Supervisor.StopTimeout = 3 * time.Second
	c.Supervisor.RestartPause = 100 * time.Millisecond
	c.Log.Dir = filepath.Join(dir, "logs")
	return c
}

func TestEmbeddedLifecycle(t *testing.T) {
	c := embeddedConfig(t)
	s := New(c, nil)
	t.Cleanup(func() { _, _ = s.Stop(false) })

	results, err := s.Start(false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.Greater(t, r.PID, 0)
	}

	statuses, err := s.Status()
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	_, err = s.Start(false)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	_, err = s.Stop(false)
	require.NoError(t, err)

	statuses, err = s.Status()
	require.NoError(t, err)
	require.Nil(t, statuses)
}

func TestEmbeddedLockScope(t *testing.T) {
	c := embeddedConfig(t)
	c.Supervisor.LockWait = 200 * time.Millisecond
	c.Supervisor.LockInterval = 50 * time.Millisecond
	s := New(c, nil)

	lk := s.Lock()
	require.NoError(t, lk.Acquire())

	other := New(c, nil)
	err := other.Lock().Acquire()
	require.True(t, errors.Is(err, ErrLockBusy), "got %v", err)

	lk.Release()
	require.NoError(t, other.Lock().Acquire())
	other.Lock().Release()
}
