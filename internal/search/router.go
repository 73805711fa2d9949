package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	docserrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// DomainAuto asks the router to pick the domain from the query.
const DomainAuto = "auto"

// Route registers a domain with the keywords that steer queries to it.
type Route struct {
	Domain   string
	Keywords []string
}

// Router dispatches queries to per-domain indexes. Indexes can be replaced
// at any time with Swap; searches in flight keep the index they started
// with.
type Router struct {
	defaultDomain string
	order         []string
	keywords      map[string][]string
	indexes       map[string]*atomic.Pointer[Index]
	logger        *slog.Logger
}

// NewRouter creates a router for the given routes. Queries with no clear
// domain go to defaultDomain. Every domain starts with an empty index until
// Swap installs a loaded one.
func NewRouter(defaultDomain string, routes ...Route) *Router {
	r := &Router{
		defaultDomain: defaultDomain,
		keywords:      make(map[string][]string, len(routes)),
		indexes:       make(map[string]*atomic.Pointer[Index], len(routes)),
		logger:        slog.Default(),
	}
	for _, route := range routes {
		if _, dup := r.indexes[route.Domain]; dup {
			continue
		}
		kws := make([]string, 0, len(route.Keywords))
		for _, kw := range route.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		r.order = append(r.order, route.Domain)
		r.keywords[route.Domain] = kws

		p := &atomic.Pointer[Index]{}
		p.Store(New(Corpus{Name: route.Domain}, nil))
		r.indexes[route.Domain] = p
	}
	return r
}

// Domains returns the registered domains in registration order.
func (r *Router) Domains() []string {
	return append([]string{}, r.order...)
}

// DefaultDomain returns the fallback domain.
func (r *Router) DefaultDomain() string { return r.defaultDomain }

// Swap installs idx for domain and returns the index it replaced.
func (r *Router) Swap(domain string, idx *Index) (*Index, error) {
	p, ok := r.indexes[domain]
	if !ok {
		return nil, unknownDomain(domain)
	}
	old := p.Swap(idx)
	r.logger.Debug("index swapped",
		slog.String("domain", domain),
		slog.Int("chunks", idx.Len()))
	return old, nil
}

// Index returns the current index of domain.
func (r *Router) Index(domain string) (*Index, error) {
	p, ok := r.indexes[domain]
	if !ok {
		return nil, unknownDomain(domain)
	}
	return p.Load(), nil
}

// Select picks the domain whose keywords occur in the most query tokens.
// A domain must score strictly higher than every other to win; otherwise
// the default domain is used.
func (r *Router) Select(query string) string {
	tokens := strings.Fields(Normalize(query))
	best, bestScore, tie := r.defaultDomain, 0, false
	for _, domain := range r.order {
		score := 0
		for _, tok := range tokens {
			for _, kw := range r.keywords[domain] {
				if strings.Contains(tok, kw) {
					score++
					break
				}
			}
		}
		switch {
		case score > bestScore:
			best, bestScore, tie = domain, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}
	if bestScore == 0 || tie {
		return r.defaultDomain
	}
	return best
}

// Search resolves domain ("" or DomainAuto selects one from the query) and
// searches its index. It returns the domain actually searched.
func (r *Router) Search(ctx context.Context, domain, query string, opts SearchOptions) ([]SearchResult, string, error) {
	if domain == "" || domain == DomainAuto {
		domain = r.Select(query)
	}
	idx, err := r.Index(domain)
	if err != nil {
		return nil, domain, err
	}
	return idx.Search(ctx, query, opts), domain, nil
}

// SearchAll searches every domain concurrently and returns the results per
// domain.
func (r *Router) SearchAll(ctx context.Context, query string, opts SearchOptions) (map[string][]SearchResult, error) {
	var mu sync.Mutex
	out := make(map[string][]SearchResult, len(r.order))

	g, gctx := errgroup.WithContext(ctx)
	for _, domain := range r.order {
		idx := r.indexes[domain].Load()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results := idx.Search(gctx, query, opts)
			mu.Lock()
			out[domain] = results
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Describe summarizes the current index of domain.
func (r *Router) Describe(domain string) (Description, error) {
	idx, err := r.Index(domain)
	if err != nil {
		return Description{}, err
	}
	return idx.Describe(), nil
}

func unknownDomain(domain string) error {
	return docserrors.New(docserrors.ErrCodeUnknownDomain, "unknown documentation domain: "+domain, nil).
		WithDetail("domain", domain)
}
