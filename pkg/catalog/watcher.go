package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"mercator-hq/predicate/pkg/catalog/storage"
	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/telemetry/metrics"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the catalog in sync with predicate files on disk.
// Bursts of changes are debounced; once things are quiet every changed file
// is reloaded, and removed files take their predicate out of the catalog.
type Watcher struct {
	catalog  *Catalog
	config   config.WatchConfig
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	debounce *debouncer
	onReload func(path string, err error)

	mu      sync.Mutex
	running bool
	pending map[string]struct{}
	names   map[string]string // file path -> predicate name
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger.With("component", "catalog.watcher")
		}
	}
}

// WithWatcherMetrics sets the metrics sink for reloads.
func WithWatcherMetrics(m *metrics.Metrics) WatcherOption {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// WithReloadHook registers fn to be called after each file reload.
func WithReloadHook(fn func(path string, err error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher creates a watcher over cfg.Paths. Every path must exist;
// directories are watched recursively.
func NewWatcher(c *Catalog, cfg *config.WatchConfig, opts ...WatcherOption) (*Watcher, error) {
	if c == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if cfg == nil || len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}

	w := &Watcher{
		catalog: c,
		config:  *cfg,
		logger:  slog.Default().With("component", "catalog.watcher"),
		pending: make(map[string]struct{}),
		names:   make(map[string]string),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	if w.config.Debounce <= 0 {
		w.config.Debounce = config.DefaultWatchDebounce
	}
	if len(w.config.Extensions) == 0 {
		w.config.Extensions = config.DefaultWatchExtensions
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debounce = newDebouncer(w.config.Debounce)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	for _, path := range w.config.Paths {
		if err := w.addPath(filepath.Clean(path)); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", path, err)
		}
	}
	return w, nil
}

// Load stores every predicate file under the watched paths and returns how
// many were loaded. Files that fail to load are reported together.
func (w *Watcher) Load(ctx context.Context) (int, error) {
	var (
		loaded int
		errs   []error
	)
	for _, root := range w.config.Paths {
		files, err := w.files(filepath.Clean(root))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, path := range files {
			if err := w.reload(ctx, path); err != nil {
				errs = append(errs, err)
				continue
			}
			loaded++
		}
	}
	w.logger.Info("predicates loaded", "count", loaded, "failed", len(errs))
	return loaded, errors.Join(errs...)
}

// Watch processes file events until ctx is cancelled or Stop is called.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	w.logger.Info("watching predicate files",
		"paths", w.config.Paths,
		"debounce", w.config.Debounce,
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.stopCh:
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) && isDirectory(event.Name) {
				if err := w.addDirectory(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
				continue
			}
			if !w.shouldProcess(event) {
				continue
			}

			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			w.mu.Lock()
			w.pending[filepath.Clean(event.Name)] = struct{}{}
			w.mu.Unlock()
			w.debounce.trigger(func() { w.flush(ctx) })

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Stop ends Watch, cancels pending reloads and releases the fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	w.debounce.stop()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()
	slices.Sort(paths)

	for _, path := range paths {
		err := w.reload(ctx, path)
		w.metrics.RecordReload(err)
		if err != nil {
			w.logger.Error("predicate reload failed", "path", path, "error", err)
		} else {
			w.logger.Info("predicate reloaded", "path", path)
		}
		if w.onReload != nil {
			w.onReload(path, err)
		}
	}
}

// reload brings the catalog in line with the file at path.
func (w *Watcher) reload(ctx context.Context, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		w.mu.Lock()
		name, ok := w.names[path]
		delete(w.names, path)
		w.mu.Unlock()
		if !ok {
			return nil
		}
		return w.remove(ctx, name)
	}

	r, err := w.catalog.PutFile(ctx, path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	old, renamed := w.names[path]
	w.names[path] = r.Name
	w.mu.Unlock()

	if renamed && old != r.Name {
		return w.remove(ctx, old)
	}
	return nil
}

func (w *Watcher) remove(ctx context.Context, name string) error {
	err := w.catalog.Delete(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// files lists the predicate files under root.
func (w *Watcher) files(root string) ([]string, error) {
	if !isDirectory(root) {
		return []string{root}, nil
	}
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && w.hasExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addDirectory(path)
	}
	// Editors replace files on save, so the parent directory is watched
	// and events are filtered down to the file itself.
	return w.fsw.Add(filepath.Dir(path))
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if hidden(event.Name) || !w.hasExtension(event.Name) {
		return false
	}
	return w.covers(filepath.Clean(event.Name))
}

// covers reports whether path is one of the watched files or lies under a
// watched directory.
func (w *Watcher) covers(path string) bool {
	for _, p := range w.config.Paths {
		p = filepath.Clean(p)
		if path == p {
			return true
		}
		if rel, err := filepath.Rel(p, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") && isDirectory(p) {
			return true
		}
	}
	return false
}

func (w *Watcher) hasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// debouncer runs the latest triggered function once triggers have been
// quiet for the interval.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
