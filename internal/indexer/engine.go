// Package indexer orchestrates full reindex runs of a search domain: it
// builds the stage chain, runs it into the inactive generation and swaps
// that generation in.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/events"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/converter"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/metrics"
)

// Engine runs reindex jobs. Runs are serialised per engine.
type Engine struct {
	store     store.Store
	domains   *domain.Registry
	indexers  queue.IndexerLookup
	cfg       config.IndexerConfig
	publisher events.Publisher
	metrics   *metrics.Metrics
	convOpts  []converter.Option
	logger    *slog.Logger
	mu        sync.Mutex
}

type Option func(*Engine)

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithConverterOptions passes resolvers and filters to every converter the
// engine builds.
func WithConverterOptions(opts ...converter.Option) Option {
	return func(e *Engine) { e.convOpts = append(e.convOpts, opts...) }
}

func NewEngine(st store.Store, domains *domain.Registry, indexers queue.IndexerLookup, cfg config.IndexerConfig, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		domains:   domains,
		indexers:  indexers,
		cfg:       cfg,
		publisher: events.Nop{},
		logger:    slog.Default().With("component", "indexer"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Reindex rebuilds the named domain. Configuration problems fail before
// anything is written. Per-item failures end up in the report and never
// prevent activation; only a cancelled context or a storage failure
// during the swap does.
func (e *Engine) Reindex(ctx context.Context, name string) (queue.Report, error) {
	d, err := e.domains.Get(name)
	if err != nil {
		return queue.Report{}, err
	}
	for _, idx := range d.RecordIndexers {
		if _, err := e.indexers.Get(idx); err != nil {
			return queue.Report{}, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	log := logger.FromContext(ctx).With("component", "indexer", "domain", name)
	log.Info("reindex started", "sites", len(d.Sites), "record_indexers", d.RecordIndexers)

	if err := e.store.RemoveInactive(ctx, name); err != nil {
		return queue.Report{}, fmt.Errorf("clearing leftover inactive rows of %s: %w", name, err)
	}

	leaf := queue.NewNodeStage(node.NewFactory(), converter.New(d, e.convOpts...), e.store, e.cfg.BatchSize)
	runner := queue.NewRunner(queue.Stages(e.indexers, leaf),
		queue.WithLoopGuard(e.cfg.LoopGuard),
		queue.WithLogger(log),
	)
	report := runner.Run(ctx, queue.NewRequest(d))
	stats := leaf.Stats()
	report.Nodes, report.Words = stats.Nodes, stats.Words
	e.observeRun(report)

	if err := ctx.Err(); err != nil {
		e.observeActivation(name, "aborted")
		if rmErr := e.store.RemoveInactive(context.WithoutCancel(ctx), name); rmErr != nil {
			log.Error("removing aborted generation failed", "error", rmErr)
		}
		return report, fmt.Errorf("reindex of %s aborted: %w", name, err)
	}

	if err := e.store.Activate(ctx, name); err != nil {
		e.observeActivation(name, "error")
		return report, fmt.Errorf("activating generation of %s: %w", name, err)
	}
	e.observeActivation(name, "ok")
	if err := e.store.RemoveInactive(ctx, name); err != nil {
		log.Warn("removing inactive rows after activation failed", "error", err)
	}

	ev := events.IndexActivated{
		Domain:      name,
		Nodes:       report.Nodes,
		Words:       report.Words,
		Failed:      report.Failed,
		ActivatedAt: time.Now().UTC(),
	}
	if err := e.publisher.IndexActivated(ctx, ev); err != nil {
		log.Error("publishing activation event failed", "error", err)
	}

	log.Info("reindex finished",
		"nodes", report.Nodes,
		"words", report.Words,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report, nil
}

// ReindexAll rebuilds every configured domain in name order and stops at
// the first error.
func (e *Engine) ReindexAll(ctx context.Context) ([]queue.Report, error) {
	var reports []queue.Report
	for _, name := range e.domains.Names() {
		report, err := e.Reindex(ctx, name)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (e *Engine) observeRun(r queue.Report) {
	if e.metrics == nil {
		return
	}
	e.metrics.NodesIndexedTotal.WithLabelValues(r.Domain).Add(float64(r.Nodes))
	e.metrics.WordsIndexedTotal.WithLabelValues(r.Domain).Add(float64(r.Words))
	e.metrics.IndexErrorsTotal.WithLabelValues(r.Domain).Add(float64(r.Failed))
	e.metrics.ReindexDuration.WithLabelValues(r.Domain).Observe(r.Duration.Seconds())
}

func (e *Engine) observeActivation(name, status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.ActivationsTotal.WithLabelValues(name, status).Inc()
}
