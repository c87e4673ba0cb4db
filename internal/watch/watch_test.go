package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	w, err := New(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w, path
}

func waitChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c := <-w.Changes():
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
		return Change{}
	}
}

func assertQuiet(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case c := <-w.Changes():
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReportsRewrite(t *testing.T) {
	w, path := startWatcher(t)

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("v2"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	c := waitChange(t, w)
	assert.Equal(t, filepath.Clean(path), c.Path)
	assert.False(t, c.Removed)
}

func TestIgnoresSameContentAndOtherFiles(t *testing.T) {
	w, path := startWatcher(t)

	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("x"), 0o600))
	assertQuiet(t, w)
}

func TestObserveSuppressesOwnWrites(t *testing.T) {
	w, path := startWatcher(t)

	w.Observe([]byte("mine"))
	require.NoError(t, os.WriteFile(path, []byte("mine"), 0o600))
	assertQuiet(t, w)
}

func TestReportsRemoval(t *testing.T) {
	w, path := startWatcher(t)
	require.NoError(t, os.Remove(path))

	c := waitChange(t, w)
	assert.True(t, c.Removed)
}

func TestRunStopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	w, err := New(path, 20*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	got := make(chan Change, 4)
	go func() {
		done <- Run(ctx, w, func(_ context.Context, c Change) { got <- c })
	}()

	require.Eventually(t, func() bool {
		return os.WriteFile(path, []byte("x"), 0o600) == nil
	}, time.Second, 10*time.Millisecond)

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not deliver the change")
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}
