package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	eventbus "github.com/hanpama/typegraph/internal/eventbus"
	events "github.com/hanpama/typegraph/internal/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func isGraphQL(path string) bool { return strings.HasSuffix(path, ".graphql") }

func startWatcher(t *testing.T, dir string, reload ReloadFunc) {
	t.Helper()
	w, err := New(Config{Dirs: []string{dir}, Match: isGraphQL, Debounce: 50 * time.Millisecond}, reload)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	triggers := make(chan string, 10)
	startWatcher(t, dir, func(ctx context.Context, trigger string) error {
		triggers <- trigger
		return nil
	})

	file := filepath.Join(dir, "a.graphql")
	require.NoError(t, os.WriteFile(file, []byte("type A { a: String }"), 0o644))
	require.NoError(t, os.WriteFile(file, []byte("type A { a: Int }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case trigger := <-triggers:
		require.Equal(t, file, trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not triggered")
	}

	// both writes were debounced into one reload
	select {
	case trigger := <-triggers:
		t.Fatalf("unexpected second reload for %s", trigger)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	triggers := make(chan string, 10)
	startWatcher(t, dir, func(ctx context.Context, trigger string) error {
		triggers <- trigger
		return nil
	})

	sub := filepath.Join(dir, "blog")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// give the watcher time to register the new directory
	time.Sleep(100 * time.Millisecond)
	file := filepath.Join(sub, "post.graphql")
	require.NoError(t, os.WriteFile(file, []byte("type Post { id: ID }"), 0o644))

	select {
	case trigger := <-triggers:
		require.Equal(t, file, trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not triggered")
	}
}

func TestFailedReloadIsPublished(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	reloaded := make(chan events.SchemaReloaded, 1)
	unsubscribe := eventbus.Subscribe[events.SchemaReloaded](func(ctx context.Context, e events.SchemaReloaded) {
		reloaded <- e
	})
	defer unsubscribe()

	dir := t.TempDir()
	startWatcher(t, dir, func(ctx context.Context, trigger string) error {
		return errors.New("broken schema")
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.graphql"), []byte("type {"), 0o644))

	select {
	case e := <-reloaded:
		require.EqualError(t, e.Err, "broken schema")
		require.Equal(t, filepath.Join(dir, "a.graphql"), e.Trigger)
	case <-time.After(5 * time.Second):
		t.Fatal("reload was not published")
	}
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Match: isGraphQL}, nil)
	require.Error(t, err)
	_, err = New(Config{Dirs: []string{t.TempDir()}}, nil)
	require.Error(t, err)
	_, err = New(Config{Dirs: []string{filepath.Join(t.TempDir(), "missing")}, Match: isGraphQL}, nil)
	require.Error(t, err)
}
