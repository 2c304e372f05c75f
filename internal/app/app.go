// Package app wires configuration into the storage, registries and
// services shared by the executables.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/events"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/converter"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/records"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text/phonetic"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/resilience"
)

type App struct {
	Config  *config.Config
	DB      *database.Client
	Store   *sqlstore.Store
	Domains *domain.Registry
	Records *records.Registry
	Metrics *metrics.Metrics
	Redis   *pkgredis.Client
}

type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	redis      bool
}

// WithRegisterer registers the collectors somewhere other than the
// default registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithRedis connects the lookup cache when redis is enabled in the config.
func WithRedis() Option {
	return func(o *options) { o.redis = true }
}

// Open connects the storage, migrates it and validates the domain and
// record indexer configuration.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, fn := range opts {
		fn(&o)
	}

	db, err := database.New(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	st := sqlstore.New(db, sqlstore.WithChunkSize(cfg.Storage.ChunkSize))
	if err := st.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating storage: %w", err)
	}

	recs, err := records.FromConfig(cfg.Records, db.DB)
	if err != nil {
		db.Close()
		return nil, err
	}
	domains, err := domain.NewRegistry(cfg.Domains, recs, text.NewStopWordRegistry(), phonetic.NewRegistry())
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Store:   st,
		Domains: domains,
		Records: recs,
		Metrics: metrics.New(o.registerer),
	}
	if o.redis && cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, lookup caching disabled", "error", err)
		} else {
			a.Redis = client
			slog.Info("lookup cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	slog.Info("storage ready",
		"driver", cfg.Storage.Driver,
		"domains", domains.Names(),
		"record_indexers", recs.Names(),
	)
	return a, nil
}

func (a *App) images() node.URLImages {
	return node.URLImages{BaseURL: a.Config.Indexer.FilesURL}
}

// Indexer builds the index engine, publishing activations through pub.
func (a *App) Indexer(pub events.Publisher) *indexer.Engine {
	return indexer.NewEngine(a.Store, a.Domains, a.Records, a.Config.Indexer,
		indexer.WithPublisher(pub),
		indexer.WithMetrics(a.Metrics),
		indexer.WithConverterOptions(
			converter.WithLinkResolver(records.Links{}),
			converter.WithImageResolver(a.images()),
		),
	)
}

// Searcher builds the lookup service, cached when redis is connected.
func (a *App) Searcher() *searcher.Service {
	opts := []searcher.Option{
		searcher.WithMetrics(a.Metrics),
		searcher.WithImageResolver(a.images()),
	}
	if a.Redis != nil {
		breaker := resilience.NewBreaker("lookup-cache", 5, 30*time.Second)
		opts = append(opts, searcher.WithCache(cache.New(a.Redis, a.Config.Redis.CacheTTL, cache.WithBreaker(breaker))))
	}
	return searcher.NewService(a.Store, a.Domains, a.Config.Search, opts...)
}

// HealthChecker probes storage and, when connected, redis.
func (a *App) HealthChecker() *health.Checker {
	checker := health.NewChecker()
	checker.Register("storage", health.PingCheck(a.DB.Ping, health.StatusDown))
	var redisPing func(ctx context.Context) error
	if a.Redis != nil {
		redisPing = a.Redis.Ping
	}
	checker.Register("redis", health.PingCheck(redisPing, health.StatusDegraded))
	return checker
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("closing redis", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		slog.Warn("closing storage", "error", err)
	}
}
