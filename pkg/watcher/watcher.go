// Package watcher reruns loaders when the data files they read change on
// disk. It uses fsnotify on the containing directories and falls back to
// polling on network filesystems or when HG_FORCE_POLL is set.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyRunning = errors.New("watcher already running")
	ErrNoFiles        = errors.New("no files to watch")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnError sets the callback invoked when a watched file cannot be read.
func WithOnError(fn func(path string, err error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

type watchedFile struct {
	path      string
	onChange  func()
	debouncer *Debouncer
	fsType    FilesystemType
	mtime     time.Time
	size      int64
}

// Watcher watches a set of files, each with its own change callback.
type Watcher struct {
	debounceDuration time.Duration
	pollInterval     time.Duration
	onError          func(string, error)
	forcePoll        bool

	mu      sync.Mutex
	files   map[string]*watchedFile
	running bool
	polling bool
}

// New creates a Watcher with no files.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onError:          func(string, error) {},
		files:            make(map[string]*watchedFile),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add registers path. onChange runs on its own goroutine after writes to the
// file settle. Files may be added only before Run.
func (w *Watcher) Add(path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyRunning
	}
	w.files[abs] = &watchedFile{
		path:      abs,
		onChange:  onChange,
		debouncer: NewDebouncer(w.debounceDuration),
	}
	return nil
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(w.files) == 0 {
		w.mu.Unlock()
		return ErrNoFiles
	}
	w.running = true

	poll := w.forcePoll || envBool("HG_FORCE_POLL")
	for _, f := range w.files {
		f.fsType = detectFilesystemTypeFunc(f.path)
		if isRemoteFilesystem(f.fsType) {
			poll = true
		}
		if info, err := os.Stat(f.path); err == nil {
			f.mtime, f.size = info.ModTime(), info.Size()
		} else if os.IsPermission(err) {
			w.running = false
			w.mu.Unlock()
			return fmt.Errorf("%s: %w", f.path, ErrPermission)
		}
	}

	var fsw *fsnotify.Watcher
	if !poll {
		var err error
		fsw, err = w.openFsnotify()
		if err != nil {
			poll = true
		}
	}
	w.polling = poll
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		for _, f := range w.files {
			f.debouncer.Cancel()
		}
		w.running = false
		w.mu.Unlock()
	}()

	if poll {
		w.watchPolling(ctx)
		return nil
	}
	defer fsw.Close()
	w.watchFsnotify(ctx, fsw)
	return nil
}

// openFsnotify watches every directory that holds a registered file. Watching
// the directory keeps working across atomic rename-over writes.
func (w *Watcher) openFsnotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]bool)
	for _, f := range w.files {
		dir := filepath.Dir(f.path)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fsw, nil
}

// IsPolling reports whether the running watcher fell back to polling.
func (w *Watcher) IsPolling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// IsRunning reports whether Run is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Paths returns the absolute paths being watched.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	return out
}

// FilesystemType returns the classification of a watched path, detected when
// Run starts.
func (w *Watcher) FilesystemType(path string) FilesystemType {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FSTypeUnknown
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.files[abs]; ok {
		return f.fsType
	}
	return FSTypeUnknown
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) lookup(path string) (*watchedFile, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.files[filepath.Clean(path)]
	return f, ok
}

func (w *Watcher) watchFsnotify(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			f, ok := w.lookup(event.Name)
			if !ok {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(f.path, ErrFileRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				f.debouncer.Trigger(f.onChange)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError("", err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			files := make([]*watchedFile, 0, len(w.files))
			for _, f := range w.files {
				files = append(files, f)
			}
			w.mu.Unlock()
			for _, f := range files {
				w.pollOne(f)
			}
		}
	}
}

func (w *Watcher) pollOne(f *watchedFile) {
	info, err := os.Stat(f.path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			w.mu.Lock()
			hadFile := !f.mtime.IsZero()
			f.mtime, f.size = time.Time{}, 0
			w.mu.Unlock()
			if hadFile {
				w.onError(f.path, ErrFileRemoved)
			}
		case os.IsPermission(err):
			w.onError(f.path, ErrPermission)
		default:
			w.onError(f.path, err)
		}
		return
	}

	w.mu.Lock()
	changed := info.ModTime().After(f.mtime) || info.Size() != f.size
	if changed {
		f.mtime, f.size = info.ModTime(), info.Size()
	}
	w.mu.Unlock()

	if changed {
		f.debouncer.Trigger(f.onChange)
	}
}
