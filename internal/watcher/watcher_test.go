package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := New(path, 50)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { w.Stop() })
	return w
}

func writeDoc(t *testing.T, path string) {
	t.Helper()
	// Atomic save: temp file renamed into place.
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"version":1}`), 0600))
	require.NoError(t, os.Rename(tmp, path))
}

func TestExternalChangeReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.scb")
	writeDoc(t, path)
	w := startTestWatcher(t, path)

	writeDoc(t, path)

	select {
	case ev := <-w.Events():
		assert.Equal(t, w.path, ev.Path)
		assert.False(t, ev.ModTime.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no change event")
	}
}

func TestOwnSaveSuppressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.scb")
	writeDoc(t, path)
	w := startTestWatcher(t, path)

	w.Suppress()
	writeDoc(t, path)

	select {
	case ev := <-w.Events():
		t.Fatalf("own save reported as external change: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestUnrelatedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.scb")
	writeDoc(t, path)
	w := startTestWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600))

	select {
	case ev := <-w.Events():
		t.Fatalf("unrelated file reported: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDebounceCoalescesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.scb")
	writeDoc(t, path)
	w := startTestWatcher(t, path)

	for i := 0; i < 5; i++ {
		writeDoc(t, path)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-w.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no change event")
	}

	// The burst collapses into a single report.
	select {
	case ev := <-w.Events():
		t.Fatalf("burst reported more than once: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}
