// Package storetest holds the behavioural contract every store.Store
// backend must satisfy, shared by the backend test suites.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
)

// Scope is the scope all fixture rows live in.
var Scope = store.Scope{Domain: "docs", Site: "main", Lang: "en"}

var fixtureTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// Generation returns n searchable nodes in Scope with ids "<prefix>-<i>".
func Generation(prefix string, n int) []store.NodeRow {
	rows := make([]store.NodeRow, n)
	for i := range rows {
		rows[i] = store.NodeRow{
			ID:         fmt.Sprintf("%s-%d", prefix, i),
			Domain:     Scope.Domain,
			Site:       Scope.Site,
			Lang:       Scope.Lang,
			Tag:        "page",
			Title:      fmt.Sprintf("%s %d", prefix, i),
			Content:    fmt.Sprintf("%s %d", prefix, i),
			Priority:   50,
			Timestamp:  fixtureTime,
			Searchable: true,
		}
	}
	return rows
}

func node(id, tag, lang, title, content, keywords string, searchable, sitemap bool) store.NodeRow {
	return store.NodeRow{
		ID: id, Domain: Scope.Domain, Site: Scope.Site, Lang: lang, Tag: tag,
		Title: title, Content: title + store.ContentBlockSeparator + content, SetKeywords: keywords,
		URL: "/" + id, Priority: 50, Timestamp: fixtureTime, MetaData: `{"id":"` + id + `"}`,
		Searchable: searchable, InSitemap: sitemap,
	}
}

func word(nodeID, tag, lang, w, phonetic string, prio float64) store.WordRow {
	return store.WordRow{
		NodeID: nodeID, Word: w, Tag: tag, Lang: lang,
		Domain: Scope.Domain, Site: Scope.Site, Priority: prio, Phonetic: phonetic,
	}
}

// Seed writes and activates the fixture corpus.
func Seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	nodes := []store.NodeRow{
		node("berlin", "page", "en", "Berlin Travel Guide", "Visit Berlin for amazing sights", "capital", true, true),
		node("paris", "news", "en", "Paris news", "Travelling to Paris", "", true, false),
		node("hidden", "page", "en", "Berlin hidden", "Berlin", "", false, false),
		node("german", "page", "de", "Berlin Reiseführer", "Berlin besuchen", "", true, true),
	}
	words := []store.WordRow{
		word("berlin", "page", "en", "berlin", "B645", 100),
		word("berlin", "page", "en", "travel", "T614", 80),
		word("berlin", "page", "en", "guide", "G300", 70),
		word("berlin", "page", "en", "visit", "V230", 40),
		word("berlin", "page", "en", "capital", "C134", 90),
		word("paris", "news", "en", "paris", "P620", 100),
		word("paris", "news", "en", "news", "N200", 60),
		word("paris", "news", "en", "travelling", "T614", 50),
		word("hidden", "page", "en", "berlin", "B645", 100),
		word("german", "page", "de", "berlin", "14765", 100),
	}
	require.NoError(t, s.InsertBatch(ctx, nodes, words))
	require.NoError(t, s.Activate(ctx, Scope.Domain))
}

func ids(cs []store.Candidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Node.ID)
	}
	sort.Strings(out)
	return out
}

// Run executes the contract against stores created by newStore.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("inactive rows are invisible until activation", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertBatch(ctx, Generation("a", 2), nil))
		got, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
		require.NoError(t, err)
		assert.Empty(t, got)

		require.NoError(t, s.Activate(ctx, Scope.Domain))
		got, err = s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		require.NoError(t, s.InsertBatch(ctx, Generation("b", 3), nil))
		require.NoError(t, s.Activate(ctx, Scope.Domain))
		got, err = s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
		require.NoError(t, err)
		assert.Equal(t, []string{"b-0", "b-1", "b-2"}, ids(got))
	})

	t.Run("remove inactive drops leftovers only", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertBatch(ctx, Generation("live", 1), nil))
		require.NoError(t, s.Activate(ctx, Scope.Domain))
		require.NoError(t, s.InsertBatch(ctx, Generation("aborted", 2), nil))
		require.NoError(t, s.RemoveInactive(ctx, Scope.Domain))
		require.NoError(t, s.Activate(ctx, Scope.Domain))

		got, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
		require.NoError(t, err)
		assert.Empty(t, got, "activation after cleanup publishes an empty generation")
	})

	t.Run("activation is per domain", func(t *testing.T) {
		s := newStore(t)
		other := Generation("other", 1)
		other[0].Domain = "shop"
		require.NoError(t, s.InsertBatch(ctx, append(Generation("docs", 1), other...), nil))
		require.NoError(t, s.Activate(ctx, Scope.Domain))

		got, err := s.Candidates(ctx, store.CandidateQuery{Scope: store.Scope{Domain: "shop", Site: Scope.Site, Lang: Scope.Lang}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("candidates by word channel", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)
		tests := []struct {
			name string
			term store.WordTerm
			want []string
			kind store.MatchKind
		}{
			{"exact", store.WordTerm{Word: "berlin", Phonetic: "B645"}, []string{"berlin"}, store.MatchExact},
			{"phonetic", store.WordTerm{Word: "berlyn", Phonetic: "B645"}, []string{"berlin"}, store.MatchPhonetic},
			{"prefix", store.WordTerm{Word: "trav", Phonetic: "T610"}, []string{"berlin", "paris"}, store.MatchPrefix},
			{"substring", store.WordTerm{Word: "ravelling", Phonetic: "R145"}, []string{"paris"}, store.MatchSubstring},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope, Words: []store.WordTerm{tt.term}})
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(got))
				for _, c := range got {
					require.NotEmpty(t, c.Words)
					assert.Equal(t, tt.kind, c.Words[0].Kind)
					assert.Equal(t, tt.term.Word, c.Words[0].Term)
				}
			})
		}
	})

	t.Run("candidates by phrase and tags", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		got, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope, Phrases: []string{"visit berlin"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"berlin"}, ids(got))
		assert.Empty(t, got[0].Words)

		trav := []store.WordTerm{{Word: "trav"}}
		got, err = s.Candidates(ctx, store.CandidateQuery{Scope: Scope, Words: trav, RequiredTags: []string{"news"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"paris"}, ids(got))

		got, err = s.Candidates(ctx, store.CandidateQuery{Scope: Scope, Words: trav, DeniedTags: []string{"news"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"berlin"}, ids(got))

		got, err = s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
		require.NoError(t, err)
		assert.Equal(t, []string{"berlin", "paris"}, ids(got))
	})

	t.Run("candidate rows round trip", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)
		got, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope, Words: []store.WordTerm{{Word: "capital"}}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		n := got[0].Node
		assert.Equal(t, "Berlin Travel Guide", n.Title)
		assert.Equal(t, "capital", n.SetKeywords)
		assert.Equal(t, "/berlin", n.URL)
		assert.Equal(t, `{"id":"berlin"}`, n.MetaData)
		assert.True(t, n.Active)
		assert.True(t, n.InSitemap)
		assert.WithinDuration(t, fixtureTime, n.Timestamp, time.Second)
		assert.Equal(t, 90.0, got[0].Words[0].Row.Priority)
	})

	t.Run("words with prefix", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		got, err := s.WordsWithPrefix(ctx, store.WordQuery{Scope: Scope, Prefix: "tra"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "travel", got[0].Word)
		assert.Equal(t, 80.0, got[0].Priority)
		assert.Equal(t, "travelling", got[1].Word)

		got, err = s.WordsWithPrefix(ctx, store.WordQuery{Scope: Scope, Prefix: "tra", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = s.WordsWithPrefix(ctx, store.WordQuery{Scope: Scope, Prefix: "tra", NodeIDs: []string{"paris"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "travelling", got[0].Word)

		got, err = s.WordsWithPrefix(ctx, store.WordQuery{Scope: Scope, Prefix: "tra", NodeIDs: []string{}})
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.WordsWithPrefix(ctx, store.WordQuery{Scope: Scope, Prefix: "berl"})
		require.NoError(t, err)
		require.Len(t, got, 1, "hidden nodes do not leak words")
		assert.Equal(t, 1, got[0].Nodes)
	})

	t.Run("distinct tags and sitemap", func(t *testing.T) {
		s := newStore(t)
		Seed(t, s)

		tags, err := s.DistinctTags(ctx, Scope)
		require.NoError(t, err)
		assert.Equal(t, []string{"news", "page"}, tags)

		entries, err := s.SitemapEntries(ctx, Scope)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "/berlin", entries[0].URL)
		assert.WithinDuration(t, fixtureTime, entries[0].Timestamp, time.Second)
	})

	t.Run("phrases fold non-ascii case", func(t *testing.T) {
		s := newStore(t)
		n := Generation("about", 1)[0]
		n.Title = "Über Uns"
		n.Content = "Kontakt"
		require.NoError(t, s.InsertBatch(ctx, []store.NodeRow{n}, nil))
		require.NoError(t, s.Activate(ctx, Scope.Domain))

		got, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope, Phrases: []string{"über uns"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"about-0"}, ids(got))

		got, err = s.Candidates(ctx, store.CandidateQuery{Scope: Scope, Phrases: []string{"uns kontakt"}})
		require.NoError(t, err)
		assert.Empty(t, got, "phrases do not span fields")
	})

	t.Run("view pins one generation", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertBatch(ctx, Generation("old", 2), nil))
		require.NoError(t, s.Activate(ctx, Scope.Domain))
		require.NoError(t, s.InsertBatch(ctx, Generation("new", 3), nil))

		activated := make(chan error, 1)
		err := s.View(ctx, func(ctx context.Context) error {
			before, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
			if err != nil {
				return err
			}
			go func() { activated <- s.Activate(context.Background(), Scope.Domain) }()
			time.Sleep(50 * time.Millisecond)

			after, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
			if err != nil {
				return err
			}
			assert.Equal(t, []string{"old-0", "old-1"}, ids(before))
			assert.Equal(t, ids(before), ids(after))
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, <-activated)

		got, err := s.Candidates(ctx, store.CandidateQuery{Scope: Scope})
		require.NoError(t, err)
		assert.Equal(t, []string{"new-0", "new-1", "new-2"}, ids(got))
	})
}
