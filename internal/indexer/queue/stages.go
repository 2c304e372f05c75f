package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
)

const DefaultBatchSize = 10

// Stages returns the standard chain: sites, languages, environment, record
// indexers and finally the nodes themselves.
func Stages(indexers IndexerLookup, leaf *NodeStage) []Stage {
	return []Stage{SiteStage{}, LanguageStage{}, EnvironmentStage{}, RecordIndexerStage{Indexers: indexers}, leaf}
}

// SiteStage iterates the sites of the request's domain.
type SiteStage struct{}

func (SiteStage) Name() string { return "site" }

func (SiteStage) Items(_ context.Context, req Request) ([]any, error) {
	d, err := req.Domain()
	if err != nil {
		return nil, err
	}
	items := make([]any, len(d.Sites))
	for i, s := range d.Sites {
		items[i] = s
	}
	return items, nil
}

func (SiteStage) Handle(ctx context.Context, item any, req Request, next Continuation) error {
	s, ok := item.(domain.Site)
	if !ok {
		return fmt.Errorf("unexpected site item %T", item)
	}
	next(ctx, req.WithSite(s))
	return nil
}

// LanguageStage iterates the languages allowed on the current site.
type LanguageStage struct{}

func (LanguageStage) Name() string { return "language" }

func (LanguageStage) Items(_ context.Context, req Request) ([]any, error) {
	s, err := req.Site()
	if err != nil {
		return nil, err
	}
	items := make([]any, len(s.Languages))
	for i, l := range s.Languages {
		items[i] = l
	}
	return items, nil
}

func (LanguageStage) Handle(ctx context.Context, item any, req Request, next Continuation) error {
	lang, ok := item.(string)
	if !ok {
		return fmt.Errorf("unexpected language item %T", item)
	}
	next(ctx, req.WithLanguage(lang))
	return nil
}

// EnvironmentStage sets up the frontend environment of the current site
// and language so record indexers can build absolute links.
type EnvironmentStage struct{}

func (EnvironmentStage) Name() string { return "environment" }

func (EnvironmentStage) Items(_ context.Context, req Request) ([]any, error) {
	s, err := req.Site()
	if err != nil {
		return nil, err
	}
	lang, err := req.Language()
	if err != nil {
		return nil, err
	}
	return []any{Environment{Site: s.ID, Language: lang, BaseURL: s.BaseURL}}, nil
}

func (EnvironmentStage) Handle(ctx context.Context, item any, req Request, next Continuation) error {
	env, ok := item.(Environment)
	if !ok {
		return fmt.Errorf("unexpected environment item %T", item)
	}
	next(ctx, req.WithEnvironment(env))
	return nil
}

// IndexerLookup resolves record indexers by name.
type IndexerLookup interface {
	Get(name string) (RecordIndexer, error)
}

// RecordIndexerStage iterates the record indexers configured for the
// domain. An unknown name aborts this subtree.
type RecordIndexerStage struct {
	Indexers IndexerLookup
}

func (RecordIndexerStage) Name() string { return "record-indexer" }

func (s RecordIndexerStage) Items(_ context.Context, req Request) ([]any, error) {
	d, err := req.Domain()
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(d.RecordIndexers))
	for _, name := range d.RecordIndexers {
		idx, err := s.Indexers.Get(name)
		if err != nil {
			return nil, err
		}
		items = append(items, idx)
	}
	return items, nil
}

func (RecordIndexerStage) Handle(ctx context.Context, item any, req Request, next Continuation) error {
	idx, ok := item.(RecordIndexer)
	if !ok {
		return fmt.Errorf("unexpected record indexer item %T", item)
	}
	next(ctx, req.WithRecordIndexer(idx))
	return nil
}

// Converter turns a filled node into rows.
type Converter interface {
	Convert(ctx context.Context, n *node.Node) (store.NodeRow, []store.WordRow, error)
}

// Sink persists converted rows into the inactive generation.
type Sink interface {
	InsertBatch(ctx context.Context, nodes []store.NodeRow, words []store.WordRow) error
}

// Stats counts what a NodeStage persisted.
type Stats struct {
	Nodes   int
	Words   int
	Skipped int
}

// NodeStage is the leaf: one node per resolved element, buffered and
// flushed to the sink in batches.
type NodeStage struct {
	factory   *node.Factory
	converter Converter
	sink      Sink
	batchSize int
	logger    *slog.Logger

	nodes []store.NodeRow
	words []store.WordRow
	stats Stats
}

func NewNodeStage(factory *node.Factory, conv Converter, sink Sink, batchSize int) *NodeStage {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &NodeStage{
		factory:   factory,
		converter: conv,
		sink:      sink,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "node-stage"),
	}
}

func (*NodeStage) Name() string { return "node" }

func (s *NodeStage) Items(ctx context.Context, req Request) ([]any, error) {
	idx, err := req.RecordIndexer()
	if err != nil {
		return nil, err
	}
	return idx.Resolve(ctx, req)
}

func (s *NodeStage) Handle(ctx context.Context, item any, req Request, _ Continuation) error {
	d, err := req.Domain()
	if err != nil {
		return err
	}
	site, err := req.Site()
	if err != nil {
		return err
	}
	lang, err := req.Language()
	if err != nil {
		return err
	}
	idx, err := req.RecordIndexer()
	if err != nil {
		return err
	}

	n := s.factory.New(d.Name, site.ID, lang)
	if err := idx.Index(ctx, item, n, req); err != nil {
		s.stats.Skipped++
		return fmt.Errorf("filling node: %w", err)
	}
	row, words, err := s.converter.Convert(ctx, n)
	if err != nil {
		s.stats.Skipped++
		return err
	}
	s.nodes = append(s.nodes, row)
	s.words = append(s.words, words...)
	if len(s.nodes) >= s.batchSize {
		return s.flush(ctx)
	}
	return nil
}

// Finish flushes whatever is still buffered.
func (s *NodeStage) Finish(ctx context.Context, _ Request) error {
	return s.flush(ctx)
}

// Stats returns the totals persisted so far.
func (s *NodeStage) Stats() Stats {
	return s.stats
}

func (s *NodeStage) flush(ctx context.Context) error {
	if len(s.nodes) == 0 {
		return nil
	}
	nodes, words := s.nodes, s.words
	s.nodes, s.words = nil, nil
	if err := s.sink.InsertBatch(ctx, nodes, words); err != nil {
		s.stats.Skipped += len(nodes)
		return fmt.Errorf("flushing %d nodes: %w", len(nodes), err)
	}
	s.stats.Nodes += len(nodes)
	s.stats.Words += len(words)
	s.logger.Debug("flushed node batch", "nodes", len(nodes), "words", len(words))
	return nil
}
