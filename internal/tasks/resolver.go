package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/registry"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"golang.org/x/time/rate"
)

const defaultSearchLimit = 10

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithSearchLimit bounds the number of candidates requested per strategy.
func WithSearchLimit(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.searchLimit = n
		}
	}
}

// WithMarket restricts searches to a catalog market.
func WithMarket(market string) ResolverOption {
	return func(r *Resolver) {
		r.market = market
	}
}

// WithRateLimit throttles catalog searches to rps with the given burst. A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) ResolverOption {
	return func(r *Resolver) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithResolverLogger sets the resolver logger.
func WithResolverLogger(logger *log.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver maps raw "Title - Artist" strings to catalog URIs.
//
// A URI accepted for one raw string is claimed in the registry and never returned for a
// different raw string while the claim lives.
type Resolver struct {
	catalog     services.Catalog
	registry    registry.TrackRegistry
	limiter     *rate.Limiter
	searchLimit int
	market      string
	logger      *log.Logger
}

// NewResolver creates a Resolver searching catalog and recording results in reg.
func NewResolver(catalog services.Catalog, reg registry.TrackRegistry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:     catalog,
		registry:    reg,
		searchLimit: defaultSearchLimit,
		logger:      shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the catalog URI for raw.
//
// A miss is reported with ok false; catalog and registry errors are logged and never returned.
func (r *Resolver) Resolve(ctx context.Context, raw string) (uri string, ok bool) {
	if cached, hit, err := r.registry.Lookup(ctx, raw); err != nil {
		r.logger.Warn("registry lookup failed", "raw", raw, "error", err)
	} else if hit {
		r.logger.Debug("resolved from cache", "raw", raw, "uri", cached)
		return cached, true
	}

	q, usable := models.ParseTrackQuery(raw)
	if !usable {
		r.logger.Info("unresolved", "raw", raw, "reason", "no usable title")
		return "", false
	}

	for _, query := range Strategies(q) {
		if ctx.Err() != nil {
			break
		}

		candidates, err := r.search(ctx, query)
		if err != nil {
			r.logger.Warn("search strategy failed", "raw", raw, "query", query, "error", err)
			continue
		}

		if uri, ok := r.accept(ctx, q, candidates); ok {
			if err := r.registry.Store(ctx, raw, uri); err != nil {
				r.logger.Warn("registry store failed", "raw", raw, "error", err)
			}
			r.logger.Debug("resolved", "raw", raw, "query", query, "uri", uri)
			return uri, true
		}
	}

	r.logger.Info("unresolved", "raw", raw)
	return "", false
}

func (r *Resolver) search(ctx context.Context, query string) ([]models.Candidate, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	return r.catalog.Search(ctx, query, services.SearchOptions{Limit: r.searchLimit, Market: r.market})
}

// accept claims the most popular unclaimed candidate that loosely matches q.
func (r *Resolver) accept(ctx context.Context, q models.TrackQuery, candidates []models.Candidate) (string, bool) {
	open := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URI == "" {
			continue
		}
		claimed, err := r.registry.IsClaimed(ctx, c.URI)
		if err != nil {
			r.logger.Warn("registry claim check failed", "uri", c.URI, "error", err)
			continue
		}
		if !claimed {
			open = append(open, c)
		}
	}

	sort.SliceStable(open, func(i, j int) bool {
		return open[i].Popularity > open[j].Popularity
	})

	for _, c := range open {
		if !c.Matches(q) {
			continue
		}
		won, err := r.registry.Claim(ctx, c.URI, q.Raw)
		if err != nil {
			r.logger.Warn("registry claim failed", "uri", c.URI, "error", err)
			continue
		}
		if won {
			return c.URI, true
		}
	}
	return "", false
}

// Strategies lists the search queries for q from most to least specific, without duplicates.
//
// Artist-scoped queries are omitted when q has no artist.
func Strategies(q models.TrackQuery) []string {
	title := strings.ReplaceAll(q.Title, `"`, "")
	artist := strings.ReplaceAll(q.Artist, `"`, "")

	var queries []string
	if q.HasArtist() {
		queries = append(queries, fmt.Sprintf(`track:"%s" artist:"%s"`, title, artist))
	}
	queries = append(queries, fmt.Sprintf(`track:"%s"`, title))
	if q.HasArtist() {
		queries = append(queries, fmt.Sprintf(`artist:"%s"`, artist))
	}
	queries = append(queries, strings.TrimSpace(q.Title+" "+q.Artist))
	queries = append(queries, strings.Join(strings.Fields(shared.Normalize(q.Title+" "+q.Artist)), " "))

	seen := make(map[string]bool, len(queries))
	unique := queries[:0]
	for _, query := range queries {
		if query == "" || seen[query] {
			continue
		}
		seen[query] = true
		unique = append(unique, query)
	}
	return unique
}
