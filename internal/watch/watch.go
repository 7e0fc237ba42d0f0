// Package watch rebuilds the served schema when SDL files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	eventbus "github.com/hanpama/typegraph/internal/eventbus"
	events "github.com/hanpama/typegraph/internal/events"
)

// ReloadFunc rebuilds the schema. trigger is the first changed path of the
// debounced batch.
type ReloadFunc func(ctx context.Context, trigger string) error

// Config configures a Watcher.
type Config struct {
	// Dirs are watched recursively. Hidden directories are skipped.
	Dirs []string

	// Match selects the files whose changes trigger a reload.
	Match func(path string) bool

	// Debounce is how long to wait for more changes before reloading.
	Debounce time.Duration

	Logger *zap.Logger
}

// Watcher watches schema directories and calls a ReloadFunc on changes.
type Watcher struct {
	cfg     Config
	reload  ReloadFunc
	fsw     *fsnotify.Watcher
	logger  *zap.Logger
	trigger string
}

// New creates a Watcher and registers watches on every configured directory.
func New(cfg Config, reload ReloadFunc) (*Watcher, error) {
	if len(cfg.Dirs) == 0 {
		return nil, errors.New("watch: no directories to watch")
	}
	if cfg.Match == nil {
		return nil, errors.New("watch: Match is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{cfg: cfg, reload: reload, fsw: fsw, logger: logger}
	for _, dir := range cfg.Dirs {
		if err := w.addRecursive(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run processes file events until ctx is canceled, then releases the
// underlying watcher. Reload errors are logged and never stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.cfg.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-timer.C:
			w.fire(ctx)
		}
	}
}

// handle reports whether event should schedule a reload.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod || !w.cfg.Match(event.Name) {
		return false
	}
	w.logger.Debug("schema file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
	if w.trigger == "" {
		w.trigger = event.Name
	}
	return true
}

func (w *Watcher) fire(ctx context.Context) {
	trigger := w.trigger
	w.trigger = ""

	start := time.Now()
	err := w.reload(ctx, trigger)
	took := time.Since(start)
	if err != nil {
		w.logger.Error("schema reload failed, keeping previous schema", zap.String("trigger", trigger), zap.Error(err))
	} else {
		w.logger.Info("schema reloaded", zap.String("trigger", trigger), zap.Duration("duration", took))
	}
	eventbus.Publish(ctx, events.SchemaReloaded{Trigger: trigger, Err: err, Duration: took, At: start.Add(took)})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		w.logger.Debug("watching directory", zap.String("path", path))
		return nil
	})
}
