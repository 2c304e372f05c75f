// Package memory is an in-process Store used by tests, the CLI and embedded
// deployments that do not want a database.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

// Store keeps both generations in slices guarded by one RWMutex, so an
// activation is atomic with respect to every reader. gen is held for
// reading by a View and for writing by Activate.
type Store struct {
	gen   sync.RWMutex
	mu    sync.RWMutex
	nodes []store.NodeRow
	words []store.WordRow
}

type viewKey struct{ s *Store }

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) InsertBatch(_ context.Context, nodes []store.NodeRow, words []store.WordRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		n.Active = false
		s.nodes = append(s.nodes, n)
	}
	for _, w := range words {
		w.Active = false
		s.words = append(s.words, w)
	}
	return nil
}

func (s *Store) Activate(_ context.Context, domain string) error {
	s.gen.Lock()
	defer s.gen.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = slices.DeleteFunc(s.nodes, func(n store.NodeRow) bool { return n.Domain == domain && n.Active })
	s.words = slices.DeleteFunc(s.words, func(w store.WordRow) bool { return w.Domain == domain && w.Active })
	for i := range s.nodes {
		if s.nodes[i].Domain == domain {
			s.nodes[i].Active = true
		}
	}
	for i := range s.words {
		if s.words[i].Domain == domain {
			s.words[i].Active = true
		}
	}
	return nil
}

// View holds off activations until fn returns.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(viewKey{s}) != nil {
		return fn(ctx)
	}
	s.gen.RLock()
	defer s.gen.RUnlock()
	return fn(context.WithValue(ctx, viewKey{s}, true))
}

func (s *Store) RemoveInactive(_ context.Context, domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = slices.DeleteFunc(s.nodes, func(n store.NodeRow) bool { return n.Domain == domain && !n.Active })
	s.words = slices.DeleteFunc(s.words, func(w store.WordRow) bool { return w.Domain == domain && !w.Active })
	return nil
}

func inScope(sc store.Scope, domain, site, lang string) bool {
	return sc.Domain == domain && sc.Site == site && sc.Lang == lang
}

func (s *Store) Candidates(_ context.Context, q store.CandidateQuery) ([]store.Candidate, error) {
	if q.AdditionalWhere != "" {
		return nil, apperrors.Invalid("additional where clauses need a SQL store")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make(map[string][]store.MatchedWord)
	for _, w := range s.words {
		if !w.Active || !inScope(q.Scope, w.Domain, w.Site, w.Lang) {
			continue
		}
		if m := store.MatchTerms(q.Words, w); len(m) > 0 {
			matched[w.NodeID] = append(matched[w.NodeID], m...)
		}
	}

	noTerms := len(q.Words) == 0 && len(q.Phrases) == 0
	var out []store.Candidate
	for _, n := range s.nodes {
		if !n.Active || !n.Searchable || !inScope(q.Scope, n.Domain, n.Site, n.Lang) {
			continue
		}
		if !store.TagAllowed(n.Tag, q.RequiredTags, q.DeniedTags) {
			continue
		}
		words, hit := matched[n.ID]
		if !hit && !noTerms && !slices.ContainsFunc(q.Phrases, func(p string) bool { return store.MatchesPhrase(n, p) }) {
			continue
		}
		out = append(out, store.Candidate{Node: n, Words: words})
	}
	return out, nil
}

func (s *Store) WordsWithPrefix(_ context.Context, q store.WordQuery) ([]store.WordStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowed map[string]struct{}
	if q.NodeIDs != nil {
		allowed = make(map[string]struct{}, len(q.NodeIDs))
		for _, id := range q.NodeIDs {
			allowed[id] = struct{}{}
		}
	}
	searchable := make(map[string]bool)
	for _, n := range s.nodes {
		if n.Active {
			searchable[n.ID] = n.Searchable
		}
	}

	stats := make(map[string]*store.WordStat)
	for _, w := range s.words {
		if !w.Active || !inScope(q.Scope, w.Domain, w.Site, w.Lang) || !strings.HasPrefix(w.Word, q.Prefix) {
			continue
		}
		if !searchable[w.NodeID] {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[w.NodeID]; !ok {
				continue
			}
		}
		st, ok := stats[w.Word]
		if !ok {
			st = &store.WordStat{Word: w.Word, Phonetic: w.Phonetic}
			stats[w.Word] = st
		}
		st.Priority = max(st.Priority, w.Priority)
		st.Nodes++
	}

	out := make([]store.WordStat, 0, len(stats))
	for _, st := range stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Word < out[j].Word
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) DistinctTags(_ context.Context, sc store.Scope) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var tags []string
	for _, n := range s.nodes {
		if !n.Active || !n.Searchable || !inScope(sc, n.Domain, n.Site, n.Lang) {
			continue
		}
		if _, ok := seen[n.Tag]; !ok {
			seen[n.Tag] = struct{}{}
			tags = append(tags, n.Tag)
		}
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *Store) SitemapEntries(_ context.Context, sc store.Scope) ([]store.SitemapEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.SitemapEntry
	for _, n := range s.nodes {
		if !n.Active || !n.InSitemap || n.URL == "" || !inScope(sc, n.Domain, n.Site, n.Lang) {
			continue
		}
		out = append(out, store.SitemapEntry{URL: n.URL, Timestamp: n.Timestamp, Priority: n.Priority})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}
