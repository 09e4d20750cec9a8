package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type constantEmbedder struct{}

func (constantEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (constantEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (constantEmbedder) Dimension() int { return 2 }

type recordingLoader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (l *recordingLoader) Load(_ context.Context, path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
	return l.err
}

func (l *recordingLoader) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

func startWatcher(t *testing.T, path string, loader Loader, opts ...Option) (*SnapshotWatcher, <-chan error) {
	t.Helper()

	reloads := make(chan error, 16)
	opts = append([]Option{
		WithDebounce(50 * time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
		WithOnReload(func(err error) { reloads <- err }),
	}, opts...)

	w, err := New(path, loader, opts...)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)

	return w, reloads
}

func waitReload(t *testing.T, reloads <-chan error) error {
	t.Helper()
	select {
	case err := <-reloads:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
		return nil
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", &recordingLoader{})
	assert.Error(t, err)

	_, err = New(filepath.Join(t.TempDir(), "store.json"), nil)
	assert.Error(t, err)
}

func TestStart_MissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "store.json"), &recordingLoader{})
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestSnapshotWatcher_ReloadsOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	loader := &recordingLoader{}

	w, reloads := startWatcher(t, path, loader)

	require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))

	assert.NoError(t, waitReload(t, reloads))
	loader.mu.Lock()
	assert.Equal(t, []string{w.Path()}, loader.paths)
	loader.mu.Unlock()
}

func TestSnapshotWatcher_ReloadsOnRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	loader := &recordingLoader{}

	_, reloads := startWatcher(t, path, loader)

	tmp := filepath.Join(dir, ".store.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("[]"), 0600))
	require.NoError(t, os.Rename(tmp, path))

	assert.NoError(t, waitReload(t, reloads))
}

func TestSnapshotWatcher_Debounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	loader := &recordingLoader{}

	_, reloads := startWatcher(t, path, loader, WithDebounce(300*time.Millisecond))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0600))
		time.Sleep(20 * time.Millisecond)
	}

	assert.NoError(t, waitReload(t, reloads))

	select {
	case <-reloads:
		t.Fatal("burst of writes should produce a single reload")
	case <-time.After(500 * time.Millisecond):
	}
	assert.Equal(t, 1, loader.calls())
}

func TestSnapshotWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	loader := &recordingLoader{}

	_, reloads := startWatcher(t, path, loader)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0600))

	select {
	case <-reloads:
		t.Fatal("unrelated file should not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Zero(t, loader.calls())
}

func TestSnapshotWatcher_ReportsLoadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	loadErr := errors.New("corrupt snapshot")
	loader := &recordingLoader{err: loadErr}

	_, reloads := startWatcher(t, path, loader)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))

	assert.ErrorIs(t, waitReload(t, reloads), loadErr)
}

func TestSnapshotWatcher_SkipsOwnSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	store, err := vectorstore.NewMemoryStore(constantEmbedder{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, reloads := startWatcher(t, path, store)

	_, err = store.Add(ctx, []vectorstore.Document{{ID: "a", Content: "first"}})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, path))
	_, err = store.Add(ctx, []vectorstore.Document{{ID: "b", Content: "second"}})
	require.NoError(t, err)

	select {
	case err := <-reloads:
		t.Fatalf("own save triggered a reload: %v", err)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, 2, store.Count())
	_, ok := store.Get("b")
	assert.True(t, ok)

	// A write by another process is still picked up.
	other, err := vectorstore.NewMemoryStore(constantEmbedder{}, nil)
	require.NoError(t, err)
	_, err = other.Add(ctx, []vectorstore.Document{{ID: "x", Content: "external"}})
	require.NoError(t, err)
	require.NoError(t, other.Save(ctx, path))

	assert.NoError(t, waitReload(t, reloads))
	assert.Equal(t, 1, store.Count())
	_, ok = store.Get("x")
	assert.True(t, ok)
}

func TestSnapshotWatcher_StopWithoutStart(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "store.json"), &recordingLoader{})
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a watcher that never started")
	}
}

func TestSnapshotWatcher_Stop(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "store.json"), &recordingLoader{})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()

	select {
	case <-w.Done():
	default:
		t.Fatal("Stop returned before the event loop exited")
	}
}

func TestSnapshotWatcher_ContextCancel(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "store.json"), &recordingLoader{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("event loop did not exit after context cancel")
	}
}
