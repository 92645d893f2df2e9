package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"careerkit/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// fileState identifies one version of a file on disk.
type fileState struct {
	modTime time.Time
	size    int64
}

// CertWatcher calls onChange, debounced, when any of its files is written,
// created, replaced or removed. It watches the parent directories so that
// atomic rename-into-place updates are seen.
type CertWatcher struct {
	files    []string
	debounce time.Duration
	onChange func()
	logger   *errors.Logger

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	states  map[string]fileState
	done    chan struct{}
	running bool
}

// NewCertWatcher watches the non-empty paths in files. debounce defaults
// to one second.
func NewCertWatcher(files []string, debounce time.Duration, onChange func(), logger *errors.Logger) *CertWatcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &CertWatcher{
		files:    slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == "" }),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		states:   make(map[string]fileState),
	}
}

// Start records the current file states and begins watching.
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make(map[string]bool)
	for _, file := range cw.files {
		cw.states[file], _ = statFile(file)
		dirs[filepath.Dir(file)] = true
	}
	for dir := range dirs {
		if err := fs.Add(dir); err != nil {
			_ = fs.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	cw.fs = fs
	cw.done = make(chan struct{})
	cw.running = true
	go cw.loop(fs, cw.done)

	cw.logger.Info("Certificate file watcher started",
		"files", cw.files,
		"debounce", cw.debounce)
	return nil
}

// Stop ends watching. Stopping a stopped watcher is a no-op.
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}
	cw.running = false
	close(cw.done)

	if err := cw.fs.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

func (cw *CertWatcher) loop(fs *fsnotify.Watcher, done <-chan struct{}) {
	timer := time.NewTimer(cw.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if cw.relevant(event) {
				timer.Reset(cw.debounce)
			}

		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "Certificate watcher error")

		case <-timer.C:
			if cw.refresh() {
				cw.logger.Info("Certificate files changed, reloading")
				cw.onChange()
			}

		case <-done:
			return
		}
	}
}

func (cw *CertWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(cw.files, func(file string) bool {
		return filepath.Clean(file) == name
	})
}

// refresh re-stats every file and reports whether any of them differs from
// what was last seen.
func (cw *CertWatcher) refresh() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	changed := false
	for _, file := range cw.files {
		state, _ := statFile(file)
		if state != cw.states[file] {
			cw.states[file] = state
			changed = true
		}
	}
	return changed
}

// statFile returns the zero state for a missing file.
func statFile(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{modTime: info.ModTime(), size: info.Size()}, nil
}

// IsRunning reports whether the watcher is active.
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// WatchedFiles returns the watched paths.
func (cw *CertWatcher) WatchedFiles() []string {
	return slices.Clone(cw.files)
}
