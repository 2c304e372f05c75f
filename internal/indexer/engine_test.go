package indexer

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/events"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/converter"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/records"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store/memory"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text/phonetic"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/metrics"
)

type capturePublisher struct {
	events []events.IndexActivated
}

func (c *capturePublisher) IndexActivated(_ context.Context, ev events.IndexActivated) error {
	c.events = append(c.events, ev)
	return nil
}

type fixture struct {
	store     *memory.Store
	engine    *Engine
	published *capturePublisher
	metrics   *metrics.Metrics
	docs      *[]config.DocumentConfig
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	docs := &[]config.DocumentConfig{
		{Title: "Berlin Travel Guide", Content: []string{"Visit Berlin for amazing sights"}, Keywords: []string{"capital"}, Path: "/berlin", Image: "file:7"},
		{Title: "Paris", Tag: "news", Content: []string{"Travelling to Paris"}},
		{Title: ""},
	}
	recs := records.NewRegistry()
	require.NoError(t, recs.Register(records.Func{
		IndexerName: "pages",
		ResolveFunc: func(ctx context.Context, req queue.Request) ([]any, error) {
			return records.NewStatic("pages", "page", *docs).Resolve(ctx, req)
		},
		IndexFunc: records.NewStatic("pages", "page", nil).Index,
	}))
	domains, err := domain.NewRegistry([]config.DomainConfig{{
		Name:           "travel",
		Languages:      []string{"en"},
		RecordIndexers: []string{"pages"},
		Sites:          []config.SiteConfig{{ID: "main", BaseURL: "https://example.org"}},
	}}, recs, text.NewStopWordRegistry(), phonetic.NewRegistry())
	require.NoError(t, err)

	st := memory.New()
	pub := &capturePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	e := NewEngine(st, domains, recs, config.IndexerConfig{BatchSize: 10, LoopGuard: 100},
		WithPublisher(pub),
		WithMetrics(m),
		WithConverterOptions(
			converter.WithLinkResolver(records.Links{}),
			converter.WithImageResolver(node.URLImages{BaseURL: "https://cdn.example.org"}),
		),
	)
	return fixture{store: st, engine: e, published: pub, metrics: m, docs: docs}
}

func activeNodes(t *testing.T, st store.Store) map[string]store.NodeRow {
	t.Helper()
	cands, err := st.Candidates(context.Background(), store.CandidateQuery{
		Scope: store.Scope{Domain: "travel", Site: "main", Lang: "en"},
	})
	require.NoError(t, err)
	out := make(map[string]store.NodeRow)
	for _, c := range cands {
		out[c.Node.Title] = c.Node
	}
	return out
}

func TestReindexActivatesGeneration(t *testing.T) {
	f := newFixture(t)
	report, err := f.engine.Reindex(context.Background(), "travel")
	require.NoError(t, err)

	assert.Equal(t, "travel", report.Domain)
	assert.Equal(t, 2, report.Nodes)
	assert.Positive(t, report.Words)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0].Err, apperrors.ErrMissingTitle)

	nodes := activeNodes(t, f.store)
	require.Len(t, nodes, 2)
	berlin := nodes["Berlin Travel Guide"]
	assert.Equal(t, "https://example.org/berlin", berlin.URL)
	assert.Equal(t, "https://cdn.example.org/7", berlin.Image)
	assert.Equal(t, "file:7", berlin.ImageSource)
	assert.Equal(t, "page", berlin.Tag)
	assert.Equal(t, "news", nodes["Paris"].Tag)

	require.Len(t, f.published.events, 1)
	assert.Equal(t, "travel", f.published.events[0].Domain)
	assert.Equal(t, 2, f.published.events[0].Nodes)

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.NodesIndexedTotal.WithLabelValues("travel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.IndexErrorsTotal.WithLabelValues("travel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActivationsTotal.WithLabelValues("travel", "ok")))
}

func TestReindexSkipsMalformedSQLRecord(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE articles (id TEXT, title TEXT, content TEXT, ts TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO articles VALUES
		('1', 'Good one', 'Berlin museums', '1700000000'),
		('2', 'Bad date', 'Berlin clubs', 'yesterday'),
		('3', 'Good two', 'Berlin parks', '2023-11-14')`)
	require.NoError(t, err)

	recs := records.NewRegistry()
	require.NoError(t, recs.Register(records.NewSQLTable("articles", "page", db,
		`SELECT id, title, content, ts AS timestamp FROM articles ORDER BY id`)))
	domains, err := domain.NewRegistry([]config.DomainConfig{{
		Name:           "travel",
		Languages:      []string{"en"},
		RecordIndexers: []string{"articles"},
		Sites:          []config.SiteConfig{{ID: "main", BaseURL: "https://example.org"}},
	}}, recs, text.NewStopWordRegistry(), phonetic.NewRegistry())
	require.NoError(t, err)

	st := memory.New()
	e := NewEngine(st, domains, recs, config.IndexerConfig{BatchSize: 10, LoopGuard: 100})
	report, err := e.Reindex(context.Background(), "travel")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Nodes)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.ErrorContains(t, report.Errors[0].Err, "yesterday")

	nodes := activeNodes(t, st)
	assert.Len(t, nodes, 2)
	assert.Contains(t, nodes, "Good one")
	assert.Contains(t, nodes, "Good two")
}

func TestReindexReplacesPreviousGeneration(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Reindex(context.Background(), "travel")
	require.NoError(t, err)

	*f.docs = []config.DocumentConfig{{Title: "Rome", Content: []string{"Eternal city"}}}
	_, err = f.engine.Reindex(context.Background(), "travel")
	require.NoError(t, err)

	nodes := activeNodes(t, f.store)
	require.Len(t, nodes, 1)
	assert.Contains(t, nodes, "Rome")
	assert.Len(t, f.published.events, 2)
}

func TestReindexConfigurationErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Reindex(context.Background(), "shop")
	assert.ErrorIs(t, err, apperrors.ErrDomainNotFound)
	assert.Empty(t, f.published.events)

	reports, err := f.engine.ReindexAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "travel", reports[0].Domain)
}

func TestReindexCancelledDoesNotActivate(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Reindex(context.Background(), "travel")
	require.NoError(t, err)

	*f.docs = []config.DocumentConfig{{Title: "Rome"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.engine.Reindex(ctx, "travel")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	nodes := activeNodes(t, f.store)
	assert.Len(t, nodes, 2, "previous generation stays active")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActivationsTotal.WithLabelValues("travel", "aborted")))
}
