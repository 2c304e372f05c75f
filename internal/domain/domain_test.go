package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text/phonetic"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

type names map[string]bool

func (n names) Has(name string) bool { return n[name] }

func validConfig() config.DomainConfig {
	return config.DomainConfig{
		Name:           "travel",
		Languages:      []string{"en", "de"},
		RecordIndexers: []string{"pages"},
		Sites: []config.SiteConfig{
			{ID: "main", BaseURL: "https://example.org/"},
			{ID: "de", BaseURL: "https://example.de", Languages: []string{"de"}},
		},
		StopWords: map[string][]string{"en": {"guide"}},
		Phonetic:  map[string]string{"en": "cologne"},
		Tags: []config.TagConfig{
			{ID: "page", Label: "Pages", InputLabel: "seite"},
			{ID: "news", Label: "News"},
		},
	}
}

func newRegistry(t *testing.T, cfgs ...config.DomainConfig) (*Registry, error) {
	t.Helper()
	return NewRegistry(cfgs, names{"pages": true}, text.NewStopWordRegistry(), phonetic.NewRegistry())
}

func TestRegistryBuildsDomain(t *testing.T) {
	r, err := newRegistry(t, validConfig())
	require.NoError(t, err)
	d, err := r.Get("travel")
	require.NoError(t, err)

	main, ok := d.Site("main")
	require.True(t, ok)
	assert.Equal(t, "https://example.org", main.BaseURL)
	assert.Equal(t, []string{"en", "de"}, main.Languages)
	de, _ := d.Site("de")
	assert.False(t, d.HasLanguage(de, "en"))
	assert.Equal(t, DefaultContentMatchLength, d.ContentMatchLength)

	assert.True(t, d.StopWords("en_GB").IsStopWord("guide"))
	assert.True(t, d.StopWords("en").IsStopWord("the"))
	assert.False(t, d.StopWords("de").IsStopWord("guide"))

	assert.Equal(t, "67", d.Phonetic("en").Key("meier"))
	assert.Equal(t, "B645", d.Phonetic("fr").Key("berlin"))

	tag, ok := d.TagForInput("SEITE")
	assert.True(t, ok)
	assert.Equal(t, "page", tag)
	tag, ok = d.TagForInput("news")
	assert.True(t, ok)
	assert.Equal(t, "news", tag)
	_, ok = d.TagForInput("blog")
	assert.False(t, ok)

	assert.Equal(t, "News", d.TagLabel("news").Label)
	assert.Equal(t, "news", d.TagLabel("news").InputLabel)
	assert.Equal(t, "other", d.TagLabel("other").Label)
	assert.Equal(t, []string{"travel"}, r.Names())
}

func TestRegistryConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.DomainConfig)
	}{
		{"no indexers", func(c *config.DomainConfig) { c.RecordIndexers = nil }},
		{"unknown indexer", func(c *config.DomainConfig) { c.RecordIndexers = []string{"cms"} }},
		{"unknown phonetic", func(c *config.DomainConfig) { c.Phonetic = map[string]string{"en": "metaphone"} }},
		{"no sites", func(c *config.DomainConfig) { c.Sites = nil }},
		{"no languages", func(c *config.DomainConfig) { c.Languages = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := newRegistry(t, cfg)
			assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		})
	}
}

func TestRegistryUnknownDomain(t *testing.T) {
	r, err := newRegistry(t, validConfig())
	require.NoError(t, err)
	_, err = r.Get("shop")
	assert.ErrorIs(t, err, apperrors.ErrDomainNotFound)
	assert.Equal(t, 400, apperrors.HTTPStatusCode(err))
}
