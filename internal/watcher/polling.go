package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// PollingWatcher detects changes by rescanning the corpus root at a fixed
// interval. Used when fsnotify is unavailable.
type PollingWatcher struct {
	root     string
	match    func(string) bool
	interval time.Duration

	state map[string]fileSnapshot

	events chan FileEvent
	errors chan error

	stopOnce sync.Once
	stopCh   chan struct{}
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a polling watcher for root.
func NewPollingWatcher(root string, match func(string) bool, interval time.Duration) *PollingWatcher {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &PollingWatcher{
		root:     root,
		match:    match,
		interval: interval,
		events:   make(chan FileEvent, 256),
		errors:   make(chan error, 8),
		stopCh:   make(chan struct{}),
	}
}

// Start takes a baseline snapshot and then polls until ctx is done.
func (p *PollingWatcher) Start(ctx context.Context) error {
	p.state = p.snapshot()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return nil
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.detect()
		}
	}
}

// snapshot records every matching file under root. A missing root yields
// an empty snapshot, so its reappearance reads as a create.
func (p *PollingWatcher) snapshot() map[string]fileSnapshot {
	state := make(map[string]fileSnapshot)
	_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if path != p.root && p.match != nil && !p.match(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
		return nil
	})
	return state
}

func (p *PollingWatcher) detect() {
	current := p.snapshot()
	now := time.Now()

	for path, snap := range current {
		prev, ok := p.state[path]
		switch {
		case !ok:
			p.emit(FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case prev.size != snap.size || !prev.modTime.Equal(snap.modTime):
			p.emit(FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}
	for path := range p.state {
		if _, ok := current[path]; !ok {
			p.emit(FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		}
	}
	p.state = current
}

func (p *PollingWatcher) emit(ev FileEvent) {
	select {
	case p.events <- ev:
	case <-p.stopCh:
	default:
	}
}

// Stop stops polling. Safe to call multiple times.
func (p *PollingWatcher) Stop() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	return nil
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan FileEvent { return p.events }

// Errors returns the channel of watch errors. Polling reports none.
func (p *PollingWatcher) Errors() <-chan error { return p.errors }
