// Package watch reports changes to feature documents and source files so
// that done tasks referencing them can be re-checked.
//
// Events are debounced per path: an editor saving a file several times in
// a row produces one notification once the file has been quiet for the
// debounce interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must be quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// DefaultExtensions are the file types whose changes are reported.
var DefaultExtensions = []string{".md", ".go", ".ts", ".tsx", ".js", ".mjs", ".cjs"}

var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// ErrAlreadyRunning is returned by Run on a watcher that is running.
var ErrAlreadyRunning = errors.New("watcher already running")

// Options configures a Watcher.
type Options struct {
	// Dirs are watched recursively. Directories created later are added
	// as they appear.
	Dirs []string

	// Exclude lists files whose changes are ignored, such as the roadmap
	// itself and the claims file.
	Exclude []string

	// Extensions limits reported files. Defaults to DefaultExtensions.
	Extensions []string

	Debounce time.Duration
	Logger   *log.Logger
}

// Handler receives the paths that settled during one debounce tick, sorted.
type Handler func(ctx context.Context, paths []string)

// Watcher debounces fsnotify events below a set of directories.
type Watcher struct {
	opts    Options
	exclude map[string]bool
	exts    map[string]bool
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	pending map[string]time.Time
}

// New returns a watcher for opts. Nothing is watched until Run.
func New(opts Options) (*Watcher, error) {
	if len(opts.Dirs) == 0 {
		return nil, errors.New("no directories to watch")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	w := &Watcher{
		opts:    opts,
		exclude: make(map[string]bool, len(opts.Exclude)),
		exts:    make(map[string]bool, len(opts.Extensions)),
		logger:  opts.Logger,
		pending: make(map[string]time.Time),
	}
	if w.logger == nil {
		w.logger = log.Default()
	}
	for _, p := range opts.Exclude {
		if abs, err := filepath.Abs(p); err == nil {
			w.exclude[abs] = true
		}
	}
	for _, e := range opts.Extensions {
		w.exts[strings.ToLower(e)] = true
	}
	return w, nil
}

// Relevant reports whether a change to path should be reported.
func (w *Watcher) Relevant(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if w.exclude[abs] {
		return false
	}
	base := filepath.Base(abs)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(abs))]
}

// Run watches until ctx is cancelled, calling handle from a single
// goroutine with each batch of settled paths.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.opts.Dirs {
		if err := w.addTree(fw, dir); err != nil {
			return err
		}
	}
	w.logger.Info("watching", "dirs", w.opts.Dirs, "debounce", w.opts.Debounce)

	ticker := time.NewTicker(w.opts.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.event(fw, ev)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)

		case now := <-ticker.C:
			if paths := w.settled(now); len(paths) > 0 {
				handle(ctx, paths)
			}
		}
	}
}

func (w *Watcher) event(fw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(fw, ev.Name); err != nil {
				w.logger.Warn("watching new directory", "dir", ev.Name, "err", err)
			}
			return
		}
	}
	if !w.Relevant(ev.Name) {
		return
	}
	w.logger.Debug("file event", "op", ev.Op.String(), "path", ev.Name)
	w.queue(ev.Name, time.Now())
}

func (w *Watcher) queue(path string, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = at
}

// settled removes and returns the queued paths quiet since the debounce
// interval before now.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, at := range w.pending {
		if now.Sub(at) < w.opts.Debounce {
			continue
		}
		out = append(out, path)
		delete(w.pending, path)
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
