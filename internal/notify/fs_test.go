package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a filesystem event")
	}
}

func TestFSWatcherFiresOnWrite(t *testing.T) {
	w := NewFSWatcher()
	path := filepath.Join(t.TempDir(), "watched.txt")

	n := w.NotifierFor(path)
	fired := make(chan struct{}, 16)
	h, err := n.Changes(context.Background(), func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer h.Cancel()

	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))
	waitFired(t, fired)
}

func TestFSWatcherFiresOnCreateAndRemove(t *testing.T) {
	w := NewFSWatcher()
	dir := t.TempDir()
	path := filepath.Join(dir, "appears.txt")

	n := w.NotifierFor(path)
	fired := make(chan struct{}, 16)
	h, err := n.Changes(context.Background(), func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer h.Cancel()

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	waitFired(t, fired)

	require.NoError(t, os.Remove(path))
	waitFired(t, fired)
}

func TestFSWatcherIgnoresSiblings(t *testing.T) {
	w := NewFSWatcher()
	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.txt")
	sibling := filepath.Join(dir, "sibling.txt")

	n := w.NotifierFor(watched)
	fired := make(chan struct{}, 16)
	h, err := n.Changes(context.Background(), func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer h.Cancel()

	require.NoError(t, os.WriteFile(sibling, []byte("x"), 0o644))
	select {
	case <-fired:
		t.Fatal("sibling write must not fire the watched path's notifier")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFSWatcherSharedNotifier(t *testing.T) {
	w := NewFSWatcher()
	path := filepath.Join(t.TempDir(), "f.txt")
	assert.Same(t, w.NotifierFor(path), w.NotifierFor(path))
}

func TestFSWatcherChurn(t *testing.T) {
	w := NewFSWatcher()
	path := filepath.Join(t.TempDir(), "churn.txt")
	n := w.NotifierFor(path)

	// Subscribe/unsubscribe cycles rebuild the underlying watcher each time;
	// the last cycle must still observe events.
	for i := 0; i < 5; i++ {
		h, err := n.Changes(context.Background(), func() {})
		require.NoError(t, err)
		h.Cancel()
	}

	fired := make(chan struct{}, 16)
	h, err := n.Changes(context.Background(), func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer h.Cancel()

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	waitFired(t, fired)

	// No subscribers, no watcher.
	h.Cancel()
	w.mu.Lock()
	assert.Nil(t, w.watcher)
	assert.Empty(t, w.dirs)
	w.mu.Unlock()
}
