package watcher

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docsmcp/internal/search"
)

// Builder rebuilds the index of one domain. A returned error keeps the
// current index in place.
type Builder func(ctx context.Context, domain string) (*search.Index, error)

// Target is one watched corpus.
type Target struct {
	Domain     string
	Path       string
	Extensions []string
}

// CorpusWatcher rebuilds and swaps a domain's index when its corpus changes.
type CorpusWatcher struct {
	router  *search.Router
	build   Builder
	targets []Target
	opts    Options
	logger  *slog.Logger

	rebuilds atomic.Int64
}

// NewCorpusWatcher creates a watcher for targets. Targets without a path
// are ignored.
func NewCorpusWatcher(router *search.Router, build Builder, opts Options, targets ...Target) *CorpusWatcher {
	return &CorpusWatcher{
		router:  router,
		build:   build,
		targets: targets,
		opts:    opts.WithDefaults(),
		logger:  slog.Default(),
	}
}

// SetLogger replaces the logger.
func (cw *CorpusWatcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		cw.logger = logger
	}
}

// Rebuilds returns the number of successful swaps so far.
func (cw *CorpusWatcher) Rebuilds() int64 { return cw.rebuilds.Load() }

// Run watches every target until ctx is done. A target that cannot be
// watched is logged and skipped; the others keep running.
func (cw *CorpusWatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, t := range cw.targets {
		if t.Path == "" {
			continue
		}
		g.Go(func() error {
			cw.watch(ctx, t)
			return nil
		})
	}
	return g.Wait()
}

func (cw *CorpusWatcher) watch(ctx context.Context, t Target) {
	w := New(t.Path, ExtensionMatcher(t.Extensions), cw.opts)
	deb := NewDebouncer(cw.opts.Debounce)
	defer deb.Stop()

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	defer func() { _ = w.Stop() }()

	cw.logger.Info("watching corpus",
		slog.String("domain", t.Domain),
		slog.String("path", t.Path))

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-done:
			if err != nil {
				cw.logger.Warn("corpus watch failed",
					slog.String("domain", t.Domain),
					slog.String("error", err.Error()))
			}
			return
		case ev := <-w.Events():
			cw.logger.Debug("corpus change",
				slog.String("domain", t.Domain),
				slog.String("path", ev.Path),
				slog.String("op", ev.Operation.String()))
			deb.Add(ev)
		case err := <-errs:
			cw.logger.Warn("corpus watch error",
				slog.String("domain", t.Domain),
				slog.String("error", err.Error()))
		case batch, ok := <-deb.Output():
			if !ok {
				return
			}
			cw.rebuild(ctx, t.Domain, batch)
		}
	}
}

func (cw *CorpusWatcher) rebuild(ctx context.Context, domain string, batch []FileEvent) {
	idx, err := cw.build(ctx, domain)
	if err != nil {
		cw.logger.Warn("corpus rebuild failed, keeping current index",
			slog.String("domain", domain),
			slog.Int("changes", len(batch)),
			slog.String("error", err.Error()))
		return
	}

	old, err := cw.router.Swap(domain, idx)
	if err != nil {
		cw.logger.Warn("index swap failed",
			slog.String("domain", domain),
			slog.String("error", err.Error()))
		return
	}
	cw.rebuilds.Add(1)

	before := 0
	if old != nil {
		before = old.Len()
	}
	cw.logger.Info("corpus reloaded",
		slog.String("domain", domain),
		slog.Int("changes", len(batch)),
		slog.Int("chunks_before", before),
		slog.Int("chunks_after", idx.Len()))
}
