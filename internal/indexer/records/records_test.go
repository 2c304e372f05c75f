package records

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

func request(site, lang string) queue.Request {
	return queue.NewRequest(nil).
		WithSite(domain.Site{ID: site, BaseURL: "https://example.org", Languages: []string{lang}}).
		WithLanguage(lang).
		WithEnvironment(queue.Environment{Site: site, Language: lang, BaseURL: "https://example.org"})
}

func titles(items []any) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.(config.DocumentConfig).Title
	}
	return out
}

func TestStaticResolveFiltersScope(t *testing.T) {
	s := NewStatic("pages", "page", []config.DocumentConfig{
		{Title: "Everywhere"},
		{Title: "Main English", Site: "main", Language: "en"},
		{Title: "Shop only", Site: "shop"},
		{Title: "German", Language: "de_DE"},
	})

	items, err := s.Resolve(context.Background(), request("main", "en"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Everywhere", "Main English"}, titles(items))

	items, err = s.Resolve(context.Background(), request("main", "de"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Everywhere", "German"}, titles(items))

	_, err = s.Resolve(context.Background(), queue.NewRequest(nil))
	assert.ErrorIs(t, err, apperrors.ErrInLimbo)
}

func TestStaticIndexFillsNode(t *testing.T) {
	prio := 150.0
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := config.DocumentConfig{
		ID:          "p1",
		Title:       "Berlin Travel Guide",
		Description: "Everything about Berlin",
		Content:     []string{"Visit Berlin for amazing sights"},
		Keywords:    []string{"capital"},
		Priority:    &prio,
		Timestamp:   ts,
		Path:        "/berlin",
		Image:       "file:7",
		Meta:        map[string]any{"author": "kim"},
		Hidden:      true,
	}
	s := NewStatic("pages", "page", nil)
	n := node.NewFactory().New("travel", "main", "en")

	require.NoError(t, s.Index(context.Background(), doc, n, request("main", "en")))
	assert.Equal(t, "Berlin Travel Guide", n.Title)
	assert.Equal(t, "page", n.Tag)
	assert.Equal(t, 150.0, n.Priority)
	assert.True(t, n.IgnoreGuardRails)
	assert.Equal(t, ts, n.Timestamp)
	require.Len(t, n.Contents, 1)
	require.Len(t, n.Keywords, 1)
	assert.Equal(t, "file:7", n.Image.Source())
	assert.Equal(t, "kim", n.Meta["author"])
	assert.Equal(t, "p1", n.Meta["recordId"])
	assert.False(t, n.AddToSearchResults)
	assert.True(t, n.AddToSiteMap)

	url, err := n.ResolveLink(context.Background(), Links{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/berlin", url)

	err = s.Index(context.Background(), "not a document", n, request("main", "en"))
	assert.Error(t, err)
}

func TestFillHardLinkAndImageURL(t *testing.T) {
	n := node.NewFactory().New("travel", "main", "en")
	doc := config.DocumentConfig{Title: "x", Tag: "news", Link: "news/1", Image: "https://img.example.org/1.png"}
	require.NoError(t, fill(doc, "page", n, request("main", "en")))
	assert.Equal(t, "https://example.org/news/1", n.Link)
	assert.Equal(t, "news", n.Tag)
	assert.Equal(t, node.ImageRef, n.Image.Kind)

	doc.Image = "blob:1"
	assert.Error(t, fill(doc, "page", n, request("main", "en")))
}

func TestLoadDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
documents:
  - id: a
    title: Berlin
    site: main
    timestamp: 2024-01-02T00:00:00Z
    content:
      - Visit Berlin
  - id: b
    title: Paris
`), 0o644))

	docs, err := LoadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Berlin", docs[0].Title)
	assert.Equal(t, 2024, docs[0].Timestamp.Year())
	assert.Equal(t, []string{"Visit Berlin"}, docs[0].Content)

	_, err = LoadDocuments(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSQLTable(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE articles (id TEXT, site TEXT, lang TEXT, title TEXT, content TEXT,
		keywords TEXT, priority REAL, ts INTEGER, path TEXT, hidden INTEGER, author TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO articles VALUES
		('1', 'main', 'en', 'Berlin', 'Visit Berlin', 'capital, city', 80, 1700000000, '/a/1', 0, 'kim'),
		('2', 'shop', 'en', 'Shop', 'Buy things', NULL, NULL, NULL, NULL, 0, NULL),
		('3', NULL, NULL, 'Everywhere', NULL, NULL, NULL, NULL, NULL, 1, NULL)`)
	require.NoError(t, err)

	s := NewSQLTable("articles", "news", db,
		`SELECT id, site, lang, title, content, keywords, priority, ts AS timestamp, path, hidden, author FROM articles ORDER BY id`)
	items, err := s.Resolve(context.Background(), request("main", "en"))
	require.NoError(t, err)
	require.Len(t, items, 2)

	first, err := documentFromColumns(items[0].(sqlRecord).cols, items[0].(sqlRecord).vals)
	require.NoError(t, err)
	assert.Equal(t, "Berlin", first.Title)
	assert.Equal(t, []string{"capital", "city"}, first.Keywords)
	require.NotNil(t, first.Priority)
	assert.Equal(t, 80.0, *first.Priority)
	assert.Equal(t, int64(1700000000), first.Timestamp.Unix())
	assert.Equal(t, "kim", first.Meta["author"])

	n := node.NewFactory().New("travel", "main", "en")
	require.NoError(t, s.Index(context.Background(), items[0], n, request("main", "en")))
	assert.Equal(t, "news", n.Tag)
	assert.Equal(t, 80.0, n.Priority)

	hidden := node.NewFactory().New("travel", "main", "en")
	require.NoError(t, s.Index(context.Background(), items[1], hidden, request("main", "en")))
	assert.Equal(t, "Everywhere", hidden.Title)
}

func TestSQLTableMalformedColumnFailsOnlyThatRecord(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE articles (id TEXT, title TEXT, ts TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO articles VALUES
		('1', 'Good one', '1700000000'), ('2', 'Bad date', 'yesterday'), ('3', 'Good two', '2023-11-14')`)
	require.NoError(t, err)

	s := NewSQLTable("articles", "page", db, `SELECT id, title, ts AS timestamp FROM articles ORDER BY id`)
	items, err := s.Resolve(context.Background(), request("main", "en"))
	require.NoError(t, err)
	require.Len(t, items, 3)

	var indexed []string
	for _, it := range items {
		n := node.NewFactory().New("travel", "main", "en")
		if err := s.Index(context.Background(), it, n, request("main", "en")); err != nil {
			assert.ErrorContains(t, err, `id "2"`)
			assert.ErrorContains(t, err, "yesterday")
			continue
		}
		indexed = append(indexed, n.Title)
	}
	assert.Equal(t, []string{"Good one", "Good two"}, indexed)
}

func TestParseTimestamp(t *testing.T) {
	for _, v := range []string{"1700000000", "2023-11-14T22:13:20Z", "2023-11-14 22:13:20"} {
		ts, err := parseTimestamp(v)
		require.NoError(t, err, v)
		assert.Equal(t, int64(1700000000), ts.Unix(), v)
	}
	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Func{IndexerName: "b"}))
	require.NoError(t, r.Register(NewStatic("a", "", nil)))
	assert.ErrorIs(t, r.Register(Func{IndexerName: "a"}), apperrors.ErrConfiguration)
	assert.ErrorIs(t, r.Register(Func{}), apperrors.ErrConfiguration)

	assert.True(t, r.Has("a"))
	assert.Equal(t, []string{"a", "b"}, r.Names())
	_, err := r.Get("c")
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)

	idx, err := r.Get("b")
	require.NoError(t, err)
	items, err := idx.Resolve(context.Background(), request("main", "en"))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Error(t, idx.Index(context.Background(), nil, nil, request("main", "en")))
}

func TestFromConfig(t *testing.T) {
	r, err := FromConfig([]config.RecordsConfig{
		{Name: "pages", Documents: []config.DocumentConfig{{Title: "Home"}}},
	}, nil)
	require.NoError(t, err)
	assert.True(t, r.Has("pages"))

	tests := []config.RecordsConfig{
		{Name: "cms", Type: "sql", Query: "SELECT 1"},
		{Name: "cms", Type: "ldap"},
		{Name: "files", DocumentsFile: "/nonexistent/docs.yaml"},
	}
	for _, c := range tests {
		_, err := FromConfig([]config.RecordsConfig{c}, nil)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration, c.Name)
	}
}
