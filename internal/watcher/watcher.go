package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file or directory was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file or directory was deleted.
	OpDelete
	// OpRename indicates a file or directory was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a file system event.
type FileEvent struct {
	// Path is the absolute path of the file or directory.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher observes one corpus root.
type Watcher interface {
	// Start watches until ctx is done or Stop is called. It blocks.
	Start(ctx context.Context) error
	// Stop releases resources and closes the channels. Safe to call twice.
	Stop() error
	// Events delivers relevant changes under the root.
	Events() <-chan FileEvent
	// Errors delivers non-fatal watch errors.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// Debounce is the quiet period before a batch is emitted.
	// Default: 500ms
	Debounce time.Duration

	// PollInterval is the scan interval in polling mode.
	// Default: 5s
	PollInterval time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:     500 * time.Millisecond,
		PollInterval: 5 * time.Second,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	return o
}

// New returns an fsnotify watcher for root, or a polling watcher when
// fsnotify cannot be initialized or opts.ForcePolling is set. Only files
// accepted by match produce events; a nil match accepts every file.
func New(root string, match func(path string) bool, opts Options) Watcher {
	opts = opts.WithDefaults()
	if !opts.ForcePolling {
		if w, err := NewNotifyWatcher(root, match); err == nil {
			return w
		}
	}
	return NewPollingWatcher(root, match, opts.PollInterval)
}

// ExtensionMatcher accepts files whose extension is in exts, compared
// case-insensitively. An empty list accepts every file.
func ExtensionMatcher(exts []string) func(string) bool {
	if len(exts) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		allowed[e] = true
	}
	return func(path string) bool {
		return allowed[strings.ToLower(filepath.Ext(path))]
	}
}
