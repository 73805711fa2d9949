package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// NotifyWatcher watches a corpus root with fsnotify. A file root is watched
// through its parent directory so that editors replacing the file by rename
// are still observed.
type NotifyWatcher struct {
	fsw   *fsnotify.Watcher
	root  string
	match func(string) bool

	events chan FileEvent
	errors chan error

	stopOnce sync.Once
	stopCh   chan struct{}

	// single is set when root is a file.
	single bool
}

// NewNotifyWatcher creates an fsnotify watcher for root.
func NewNotifyWatcher(root string, match func(string) bool) (*NotifyWatcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &NotifyWatcher{
		fsw:    fsw,
		root:   abs,
		match:  match,
		events: make(chan FileEvent, 256),
		errors: make(chan error, 8),
		stopCh: make(chan struct{}),
	}, nil
}

// Start registers the watches and forwards events until ctx is done.
func (w *NotifyWatcher) Start(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("stat corpus path: %w", err)
	}

	// A missing root is watched as a file so its creation is seen.
	if err == nil && info.IsDir() {
		if err := w.addTree(w.root); err != nil {
			return fmt.Errorf("add directories to watcher: %w", err)
		}
	} else {
		w.single = true
		if err := w.fsw.Add(filepath.Dir(w.root)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(w.root), err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return nil
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *NotifyWatcher) handle(ev fsnotify.Event) {
	if w.single && filepath.Clean(ev.Name) != w.root {
		return
	}

	var op Operation
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpModify
	case ev.Has(fsnotify.Remove):
		op = OpDelete
	case ev.Has(fsnotify.Rename):
		op = OpRename
	default:
		// Chmod only.
		return
	}

	isDir := false
	if op == OpCreate {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			isDir = true
			if err := w.addTree(ev.Name); err != nil {
				w.emitError(err)
			}
		}
	}

	if !isDir && w.match != nil && !w.single && !w.match(ev.Name) {
		return
	}

	w.emit(FileEvent{Path: ev.Name, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

func (w *NotifyWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && len(d.Name()) > 1 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *NotifyWatcher) emit(ev FileEvent) {
	select {
	case w.events <- ev:
	case <-w.stopCh:
	default:
		// Full buffer; the pending rebuild covers this change.
	}
}

func (w *NotifyWatcher) emitError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Stop closes the fsnotify watcher. Safe to call multiple times.
// The event channels are never closed, so late sends from Start stay safe.
func (w *NotifyWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
	})
	return err
}

// Events returns the channel of file events.
func (w *NotifyWatcher) Events() <-chan FileEvent { return w.events }

// Errors returns the channel of watch errors.
func (w *NotifyWatcher) Errors() <-chan error { return w.errors }
