// Package ranker scores the candidate nodes of a lookup. A node qualifies
// through any channel (title or content phrase, keyword, fuzzy word) and
// every channel it hits adds to its score.
package ranker

import (
	"context"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
)

const (
	TitlePhraseWeight   = 50.0
	KeywordWeight       = 25.0
	ContentPhraseWeight = 10.0
	ExactWordWeight     = 5.0
)

// Row is one scored node.
type Row struct {
	Node         store.NodeRow
	Words        []store.MatchedWord
	Score        float64
	TitleHits    int
	ContentHits  int
	KeywordHits  int
	ExactHits    int
	WordPriority float64
}

// Engine ranks candidates read from a store.
type Engine struct {
	store store.Store
}

func New(st store.Store) *Engine {
	return &Engine{store: st}
}

// Matches returns every qualifying row, best first, without pagination.
func (e *Engine) Matches(ctx context.Context, req request.LookupRequest) ([]Row, error) {
	in := req.Input()
	if in.Empty() {
		return nil, nil
	}
	requiredTags, ok := intersectTags(req.TagFilter(), in.RequiredTags)
	if !ok {
		return nil, nil
	}

	groups, terms := QueryTerms(req)
	cands, err := e.store.Candidates(ctx, store.CandidateQuery{
		Scope:           req.Scope(),
		RequiredTags:    requiredTags,
		DeniedTags:      in.DeniedTags,
		Words:           terms,
		Phrases:         in.Phrases(),
		AdditionalWhere: req.AdditionalWhere(),
	})
	if err != nil {
		return nil, fmt.Errorf("loading candidates: %w", err)
	}

	denied := in.DeniedTerms()
	rows := make([]Row, 0, len(cands))
	for _, c := range cands {
		if deniedHit(c.Node, denied) {
			continue
		}
		rows = append(rows, score(c, groups))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Node.ID < rows[j].Node.ID
	})
	return rows, nil
}

// Rank returns the page of matches the request asks for.
func (e *Engine) Rank(ctx context.Context, req request.LookupRequest) ([]Row, error) {
	rows, err := e.Matches(ctx, req)
	if err != nil {
		return nil, err
	}
	return Paginate(rows, req), nil
}

// Count returns the number of matches per tag.
func (e *Engine) Count(ctx context.Context, req request.LookupRequest) (map[string]int, error) {
	rows, err := e.Matches(ctx, req)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Node.Tag]++
	}
	return counts, nil
}

// Paginate applies per-tag top-N when requested, else offset and limit.
// Per-tag mode keeps the global order of rows.
func Paginate(rows []Row, req request.LookupRequest) []Row {
	if req.TagPaginated() {
		limit := req.MaxTagItems()
		perTag := make(map[string]int)
		out := make([]Row, 0, len(rows))
		for _, r := range rows {
			if perTag[r.Node.Tag] < limit {
				perTag[r.Node.Tag]++
				out = append(out, r)
			}
		}
		return out
	}
	if req.Offset() >= len(rows) {
		return nil
	}
	end := min(len(rows), req.Offset()+req.MaxItems())
	return rows[req.Offset():end]
}

// QueryTerms returns the groups scored against title, content and
// keywords plus the fuzzy word terms. Stop words are left out unless the
// input consists of nothing else.
func QueryTerms(req request.LookupRequest) ([]string, []store.WordTerm) {
	in := req.Input()
	stop := req.StopWords()
	keyer := req.Phonetic()

	all := in.Words()
	var words []string
	for _, w := range all {
		if !stop.IsStopWord(w) {
			words = append(words, w)
		}
	}
	phrases := in.Phrases()
	if len(words) == 0 && len(phrases) == 0 {
		words = all
	}

	terms := make([]store.WordTerm, len(words))
	for i, w := range words {
		terms[i] = store.WordTerm{Word: w, Phonetic: keyer.Key(w)}
	}
	return append(phrases, words...), terms
}

func score(c store.Candidate, groups []string) Row {
	r := Row{Node: c.Node, Words: c.Words}
	for _, g := range groups {
		r.TitleHits += len(text.WordMatches(c.Node.Title, g))
		r.ContentHits += len(text.WordMatches(c.Node.Content, g))
		if text.ContainsWord(c.Node.SetKeywords, g) {
			r.KeywordHits++
		}
	}
	exact := make(map[string]bool)
	var sum float64
	for _, w := range c.Words {
		sum += w.Row.Priority
		if w.Kind == store.MatchExact {
			exact[w.Term] = true
		}
	}
	r.ExactHits = len(exact)
	if len(c.Words) > 0 {
		r.WordPriority = sum / float64(len(c.Words))
	}
	r.Score = TitlePhraseWeight*float64(r.TitleHits) +
		KeywordWeight*float64(r.KeywordHits) +
		ContentPhraseWeight*float64(r.ContentHits) +
		ExactWordWeight*float64(r.ExactHits) +
		r.WordPriority +
		c.Node.Priority
	return r
}

func deniedHit(n store.NodeRow, denied []string) bool {
	for _, d := range denied {
		if text.ContainsWord(n.Title, d) || text.ContainsWord(n.Content, d) || text.ContainsWord(n.SetKeywords, d) {
			return true
		}
	}
	return false
}

// intersectTags combines the option tag filter with the tags required in
// the input. ok is false when both are set and share nothing.
func intersectTags(filter, required []string) ([]string, bool) {
	switch {
	case len(filter) == 0:
		return required, true
	case len(required) == 0:
		return filter, true
	}
	var out []string
	for _, f := range filter {
		for _, r := range required {
			if f == r {
				out = append(out, f)
			}
		}
	}
	return out, len(out) > 0
}
