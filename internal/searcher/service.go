// Package searcher answers lookups against the active index generation.
package searcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/processor"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/metrics"
)

type Service struct {
	builder *request.Builder
	store   store.Store
	procs   *processor.Set
	cache   *cache.QueryCache
	metrics *metrics.Metrics
	images  node.ImageResolver
	logger  *slog.Logger
}

type Option func(*Service)

func WithCache(c *cache.QueryCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithImageResolver restores image URLs of rows stored without one.
func WithImageResolver(r node.ImageResolver) Option {
	return func(s *Service) { s.images = r }
}

func NewService(st store.Store, domains *domain.Registry, cfg config.SearchConfig, opts ...Option) *Service {
	s := &Service{
		builder: request.NewBuilder(domains, request.DefaultsFromConfig(cfg)),
		store:   st,
		logger:  slog.Default().With("component", "searcher"),
	}
	for _, o := range opts {
		o(s)
	}
	rk := ranker.New(st)
	s.procs = processor.NewSet(
		processor.NewSearch(rk,
			processor.WithImageResolver(s.images),
			processor.WithSimilarityThreshold(cfg.SimilarityThreshold)),
		processor.NewCounts(rk),
		processor.NewAutocomplete(rk, st, cfg.AutocompletePadding),
		processor.NewTags(st),
	)
	return s
}

func (s *Service) Search(ctx context.Context, raw string, opts request.Options) ([]processor.Result, error) {
	return lookup(ctx, s, request.Search, raw, opts, func(v []processor.Result) int { return len(v) })
}

// SearchCounts returns the number of matches per tag plus the total.
func (s *Service) SearchCounts(ctx context.Context, raw string, opts request.Options) (map[string]int, error) {
	return lookup(ctx, s, request.SearchCount, raw, opts, func(v map[string]int) int { return v[processor.TotalKey] })
}

func (s *Service) Autocomplete(ctx context.Context, raw string, opts request.Options) ([]processor.Suggestion, error) {
	return lookup(ctx, s, request.Autocomplete, raw, opts, func(v []processor.Suggestion) int { return len(v) })
}

func (s *Service) Tags(ctx context.Context, opts request.Options) (map[string]domain.TagLabel, error) {
	return lookup(ctx, s, request.Tags, "", opts, func(v map[string]domain.TagLabel) int { return len(v) })
}

// Sitemap lists the sitemap entries of one site and language.
func (s *Service) Sitemap(ctx context.Context, opts request.Options) ([]store.SitemapEntry, error) {
	req, err := s.builder.Build(request.Tags, "", opts)
	if err != nil {
		return nil, err
	}
	return s.store.SitemapEntries(ctx, req.Scope())
}

// Invalidate drops cached responses of domain.
func (s *Service) Invalidate(ctx context.Context, domain string) error {
	return s.cache.Invalidate(ctx, domain)
}

// CacheStats reports cache hits and misses; enabled is false without a
// cache.
func (s *Service) CacheStats() (hits, misses int64, enabled bool) {
	hits, misses = s.cache.Stats()
	return hits, misses, s.cache != nil
}

func lookup[T any](ctx context.Context, s *Service, typ request.Type, raw string, opts request.Options, size func(T) int) (T, error) {
	var zero T
	log := logger.FromContext(ctx)
	start := time.Now()

	req, err := s.builder.Build(typ, raw, opts)
	if err != nil {
		s.observe(typ, "invalid", "", 0, 0)
		return zero, err
	}

	out, hit, err := cache.GetOrCompute(ctx, s.cache, req, func() (T, error) {
		var v any
		err := s.store.View(ctx, func(ctx context.Context) error {
			var err error
			v, err = s.procs.Process(ctx, req)
			return err
		})
		if err != nil {
			return zero, err
		}
		return v.(T), nil
	})
	cacheStatus := "disabled"
	if s.cache != nil {
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	}
	elapsed := time.Since(start)
	if err != nil {
		outcome := "error"
		if errors.Is(err, apperrors.ErrInvalidInput) {
			outcome = "invalid"
		}
		s.observe(typ, outcome, cacheStatus, elapsed, 0)
		log.Error("lookup failed", "type", typ.String(), "domain", req.Domain().Name, "error", err)
		return zero, err
	}

	n := size(out)
	outcome := "ok"
	if n == 0 {
		outcome = "empty"
	}
	s.observe(typ, outcome, cacheStatus, elapsed, n)
	log.Debug("lookup completed",
		"type", typ.String(),
		"domain", req.Domain().Name,
		"input", raw,
		"results", n,
		"cache", cacheStatus,
		"latency_ms", elapsed.Milliseconds(),
	)
	return out, nil
}

func (s *Service) observe(typ request.Type, outcome, cacheStatus string, elapsed time.Duration, results int) {
	if s.metrics == nil {
		return
	}
	s.metrics.LookupsTotal.WithLabelValues(typ.String(), outcome).Inc()
	if cacheStatus == "" {
		return
	}
	s.metrics.LookupLatency.WithLabelValues(typ.String(), cacheStatus).Observe(elapsed.Seconds())
	s.metrics.LookupResults.WithLabelValues(typ.String()).Observe(float64(results))
	switch cacheStatus {
	case "hit":
		s.metrics.CacheHitsTotal.Inc()
	case "miss":
		s.metrics.CacheMisses.Inc()
	}
}
