package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ierr "git.home.luguber.info/inful/inventoryd/internal/errors"
)

// FileWatcher monitors one file and invokes a callback after changes settle.
// Used for the config file (reload) and the history blob (pick up external
// restores). Watching the parent directory instead of the file survives the
// atomic rename writes the stores use.
type FileWatcher struct {
	path     string
	onChange func()
	debounce time.Duration

	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	stopChan   chan struct{}
	changeChan chan struct{}
	stopped    bool
}

// NewFileWatcher creates a watcher for path. onChange runs on the watcher
// goroutine after debounce of quiet time.
func NewFileWatcher(path string, debounce time.Duration, onChange func()) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ierr.WrapError(err, ierr.CategoryDaemon, "failed to create file watcher").Build()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, ierr.WrapError(err, ierr.CategoryDaemon, "failed to resolve watch path").
			WithContext("path", path).Build()
	}

	return &FileWatcher{
		path:       absPath,
		onChange:   onChange,
		debounce:   debounce,
		watcher:    watcher,
		stopChan:   make(chan struct{}),
		changeChan: make(chan struct{}, 1),
	}, nil
}

// Start begins monitoring the file's directory.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		return ierr.WrapError(err, ierr.CategoryDaemon, "failed to watch directory").
			WithContext("dir", dir).Build()
	}

	slog.Debug("File watcher started", "path", fw.path)
	go fw.watchLoop(ctx)
	go fw.debounceLoop(ctx)
	return nil
}

// Stop stops watching. Safe to call more than once.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.stopped {
		return
	}
	fw.stopped = true
	close(fw.stopChan)
	if err := fw.watcher.Close(); err != nil {
		slog.Warn("Error closing file watcher", "error", err)
	}
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	name := filepath.Base(fw.path)

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopChan:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fw.trigger()
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-fw.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-fw.changeChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(fw.debounce, fw.onChange)
		}
	}
}

func (fw *FileWatcher) trigger() {
	select {
	case fw.changeChan <- struct{}{}:
	default:
	}
}
