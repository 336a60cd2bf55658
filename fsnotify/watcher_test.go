package fsnotify_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/differ/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSignal(t *testing.T, ch <-chan struct{}, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

func TestWatcher_SignalsOnWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := fsnotify.NewWatcher(root, nil, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("hello\n"), 0o644))
	assert.True(t, waitSignal(t, w.Events(), 2*time.Second))
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := fsnotify.NewWatcher(root, nil, 50*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte{byte(i)}, 0o644))
	}
	require.True(t, waitSignal(t, w.Events(), 2*time.Second))

	// The burst happened within one window; at most one further signal can
	// be pending from stragglers, and then the channel goes quiet.
	waitSignal(t, w.Events(), 100*time.Millisecond)
	assert.False(t, waitSignal(t, w.Events(), 200*time.Millisecond))
}

func TestWatcher_IgnoredPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))

	w, err := fsnotify.NewWatcher(root, []string{"node_modules"}, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "pkg", "f.js"), []byte("x"), 0o644))
	assert.False(t, waitSignal(t, w.Events(), 300*time.Millisecond))

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	assert.True(t, waitSignal(t, w.Events(), 2*time.Second))
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := fsnotify.NewWatcher(root, nil, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(root, "newdir")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.True(t, waitSignal(t, w.Events(), 2*time.Second), "directory creation signals")

	// Give the watcher a moment to register the new directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "f.txt"), []byte("x"), 0o644))
	assert.True(t, waitSignal(t, w.Events(), 2*time.Second), "writes inside it signal")
}

func TestWatcher_CloseEndsEvents(t *testing.T) {
	t.Parallel()

	w, err := fsnotify.NewWatcher(t.TempDir(), nil, 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel closes")
	case <-time.After(2 * time.Second):
		t.Fatal("events channel did not close")
	}
}
