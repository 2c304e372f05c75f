package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store/storetest"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

func setupTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	cfg := config.Default().Storage
	cfg.Driver = "sqlite"
	cfg.Path = filepath.Join(t.TempDir(), "index.db")
	db, err := database.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db, opts...)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return setupTestStore(t) })
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestInsertBatchChunks(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, WithChunkSize(2))

	nodes := storetest.Generation("chunk", 5)
	words := make([]store.WordRow, 0, len(nodes))
	for _, n := range nodes {
		words = append(words, store.WordRow{
			NodeID: n.ID, Word: "chunk", Domain: n.Domain, Site: n.Site, Lang: n.Lang, Tag: n.Tag, Priority: 10,
		})
	}
	require.NoError(t, s.InsertBatch(ctx, nodes, words))
	require.NoError(t, s.Activate(ctx, storetest.Scope.Domain))

	got, err := s.Candidates(ctx, store.CandidateQuery{
		Scope: storetest.Scope,
		Words: []store.WordTerm{{Word: "chunk"}},
	})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	for _, c := range got {
		assert.Len(t, c.Words, 1)
	}
}

func TestWordMatchesStayWithTheirGeneration(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	generation := func(prefix string) ([]store.NodeRow, []store.WordRow) {
		nodes := storetest.Generation(prefix, 3)
		words := make([]store.WordRow, len(nodes))
		for i, n := range nodes {
			words[i] = store.WordRow{
				NodeID: n.ID, Word: "berlin", Domain: n.Domain, Site: n.Site, Lang: n.Lang, Tag: n.Tag, Priority: 10,
			}
		}
		return nodes, words
	}
	nodes, words := generation("g0")
	require.NoError(t, s.InsertBatch(ctx, nodes, words))
	require.NoError(t, s.Activate(ctx, storetest.Scope.Domain))

	done := make(chan struct{})
	var writeErr error
	go func() {
		defer close(done)
		for i := 1; i <= 20; i++ {
			nodes, words := generation(fmt.Sprintf("g%d", i))
			if writeErr = s.InsertBatch(ctx, nodes, words); writeErr != nil {
				return
			}
			if writeErr = s.Activate(ctx, storetest.Scope.Domain); writeErr != nil {
				return
			}
		}
	}()

	q := store.CandidateQuery{Scope: storetest.Scope, Words: []store.WordTerm{{Word: "berlin"}}}
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		got, err := s.Candidates(ctx, q)
		require.NoError(t, err)
		require.Len(t, got, 3)
		for _, c := range got {
			require.NotEmpty(t, c.Words, "node %s returned without its words", c.Node.ID)
		}
	}
	require.NoError(t, writeErr)
}

func TestAdditionalWhere(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	storetest.Seed(t, s)

	got, err := s.Candidates(ctx, store.CandidateQuery{Scope: storetest.Scope, AdditionalWhere: "n.tag = 'news'"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "paris", got[0].Node.ID)
}

func TestLikeWildcardsAreLiteral(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	storetest.Seed(t, s)

	got, err := s.WordsWithPrefix(ctx, store.WordQuery{Scope: storetest.Scope, Prefix: "%"})
	require.NoError(t, err)
	assert.Empty(t, got)

	cands, err := s.Candidates(ctx, store.CandidateQuery{Scope: storetest.Scope, Phrases: []string{"_"}})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestUnknownDialect(t *testing.T) {
	s := New(database.Wrap(&sql.DB{}, "oracle"))
	_, err := s.Candidates(context.Background(), store.CandidateQuery{})
	assert.ErrorIs(t, err, apperrors.ErrMissingAdapter)
	assert.ErrorIs(t, s.Activate(context.Background(), "docs"), apperrors.ErrMissingAdapter)
	assert.ErrorIs(t, s.Migrate(context.Background()), apperrors.ErrMissingAdapter)
}

func TestPostgresPlaceholders(t *testing.T) {
	d, err := LookupDialect("postgres")
	require.NoError(t, err)
	q := newQuery(d).write("SELECT 1 WHERE a = ")
	q.write(q.arg(1), " AND b = ", q.arg(2))
	q.in("c", []string{"x", "y"}, true)
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2 AND c NOT IN ($3, $4)", q.String())
	assert.Equal(t, []any{1, 2, "x", "y"}, q.args)
}
