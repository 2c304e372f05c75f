package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text/phonetic"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

type anyIndexer struct{}

func (anyIndexer) Has(string) bool { return true }

func newBuilder(t *testing.T, defaults Defaults) *Builder {
	t.Helper()
	reg, err := domain.NewRegistry([]config.DomainConfig{{
		Name:           "travel",
		Languages:      []string{"en", "de"},
		RecordIndexers: []string{"pages"},
		Sites:          []config.SiteConfig{{ID: "main"}, {ID: "shop", Languages: []string{"de"}}},
		Tags:           []config.TagConfig{{ID: "news", Label: "News"}, {ID: "page", Label: "Pages", InputLabel: "seite"}},
	}}, anyIndexer{}, text.NewStopWordRegistry(), phonetic.NewRegistry())
	require.NoError(t, err)
	return NewBuilder(reg, defaults)
}

func TestBuildResolvesDefaults(t *testing.T) {
	b := newBuilder(t, Defaults{Domain: "travel"})
	r, err := b.Build(Search, "Berlin @news", Options{})
	require.NoError(t, err)

	assert.Equal(t, Search, r.Type())
	assert.Equal(t, "travel", r.Domain().Name)
	assert.Equal(t, "main", r.Site().ID)
	assert.Equal(t, "en", r.Language())
	assert.Equal(t, 10, r.MaxItems())
	assert.Equal(t, 400, r.ContentMatchLength())
	assert.Equal(t, []string{"news"}, r.Input().RequiredTags)
	assert.Equal(t, [][]string{{"berlin"}}, r.Input().Required)
	assert.Equal(t, "travel", r.Scope().Domain)
	assert.True(t, r.StopWords().IsStopWord("the"))
	assert.Equal(t, "B645", r.Phonetic().Key("berlin"))
	assert.False(t, r.TagPaginated())
}

func TestBuildExplicitOptions(t *testing.T) {
	b := newBuilder(t, Defaults{Domain: "travel", MaxResults: 50})
	r, err := b.Build(Autocomplete, "ber", Options{
		Site: "shop", Language: "de", Tags: []string{"SEITE"}, MaxItems: 50, Offset: 5,
		MaxTagItems: 3, AdditionalWhere: "n.priority > 10", ContentMatchLength: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, "shop", r.Site().ID)
	assert.Equal(t, "de", r.Language())
	assert.Equal(t, []string{"page"}, r.TagFilter())
	assert.Equal(t, 50, r.MaxItems())
	assert.Equal(t, 5, r.Offset())
	assert.True(t, r.TagPaginated())
	assert.Equal(t, "n.priority > 10", r.AdditionalWhere())
	assert.Equal(t, 120, r.ContentMatchLength())
	assert.Equal(t, "67", r.Phonetic().Key("meier"))
}

func TestBuildValidation(t *testing.T) {
	b := newBuilder(t, Defaults{MaxResults: 100})
	tests := []struct {
		name string
		opts Options
	}{
		{"no domain", Options{}},
		{"unknown site", Options{Domain: "travel", Site: "blog"}},
		{"language not on site", Options{Domain: "travel", Site: "shop", Language: "en"}},
		{"negative max items", Options{Domain: "travel", MaxItems: -1}},
		{"too many items", Options{Domain: "travel", MaxItems: 101}},
		{"negative offset", Options{Domain: "travel", Offset: -3}},
		{"max tag items", Options{Domain: "travel", MaxTagItems: MaxTagItems + 1}},
		{"match length", Options{Domain: "travel", ContentMatchLength: 5}},
		{"unknown tag", Options{Domain: "travel", Tags: []string{"blog"}}},
		{"empty tag", Options{Domain: "travel", Tags: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(Search, "berlin", tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.Equal(t, 400, apperrors.HTTPStatusCode(err))
		})
	}

	_, err := b.Build(Search, "berlin", Options{Domain: "shop"})
	assert.ErrorIs(t, err, apperrors.ErrDomainNotFound)
}

func TestWithReturnsCopies(t *testing.T) {
	b := newBuilder(t, Defaults{Domain: "travel"})
	r, err := b.Build(Search, "berlin", Options{})
	require.NoError(t, err)

	paged := r.WithMaxItems(3).WithOffset(6).WithMaxTagItems(2)
	assert.Equal(t, 10, r.MaxItems())
	assert.Equal(t, 0, r.Offset())
	assert.Equal(t, 3, paged.MaxItems())
	assert.Equal(t, 6, paged.Offset())
	assert.True(t, paged.TagPaginated())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "search", Search.String())
	assert.Equal(t, "search-count", SearchCount.String())
	assert.Equal(t, "autocomplete", Autocomplete.String())
	assert.Equal(t, "tags", Tags.String())
}
