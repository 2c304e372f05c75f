package processor

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/lexer"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
)

const (
	// minCompletionGain skips completions that only add an inflection.
	minCompletionGain = 2
	maxNextWordScan   = 10
	phoneticDuplicate = 0.95
	lexicalDuplicate  = 0.90
)

// Suggestion is one autocomplete proposal.
type Suggestion struct {
	Word         string  `json:"word"`
	ContentMatch string  `json:"contentMatch"`
	Score        float64 `json:"score"`
}

// WordSource lists indexed words by prefix.
type WordSource interface {
	WordsWithPrefix(ctx context.Context, q store.WordQuery) ([]store.WordStat, error)
}

type AutocompleteProcessor struct {
	ranker  Ranker
	words   WordSource
	padding int
}

// NewAutocomplete over-fetches padding times the requested suggestions to
// make up for candidates dropped as stop words or duplicates.
func NewAutocomplete(r Ranker, words WordSource, padding int) *AutocompleteProcessor {
	if padding < 1 {
		padding = DefaultAutocompletePadding
	}
	return &AutocompleteProcessor{ranker: r, words: words, padding: padding}
}

func (p *AutocompleteProcessor) Type() request.Type { return request.Autocomplete }

func (p *AutocompleteProcessor) Process(ctx context.Context, req request.LookupRequest) (any, error) {
	return p.Suggest(ctx, req)
}

// Suggest completes the trailing partial word, or proposes the word that
// follows the last one when the input ends in whitespace.
func (p *AutocompleteProcessor) Suggest(ctx context.Context, req request.LookupRequest) ([]Suggestion, error) {
	in := req.Input()
	var (
		out []Suggestion
		err error
	)
	if in.Trailing {
		out, err = p.nextWords(ctx, req)
	} else {
		out, err = p.completions(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > req.MaxItems() {
		out = out[:req.MaxItems()]
	}
	return out, nil
}

func (p *AutocompleteProcessor) completions(ctx context.Context, req request.LookupRequest) ([]Suggestion, error) {
	partial := req.Input().LastWord
	if partial == "" {
		return nil, nil
	}
	nodeIDs, ok, err := p.contextNodes(ctx, req)
	if err != nil || !ok {
		return nil, err
	}
	stats, err := p.words.WordsWithPrefix(ctx, store.WordQuery{
		Scope:   req.Scope(),
		Prefix:  partial,
		NodeIDs: nodeIDs,
		Limit:   req.MaxItems() * p.padding,
	})
	if err != nil {
		return nil, err
	}

	stop := req.StopWords()
	acc := newAccepted(req.Phonetic())
	minLen := utf8.RuneCountInString(partial) + minCompletionGain
	var out []Suggestion
	for _, st := range stats {
		if utf8.RuneCountInString(st.Word) < minLen || stop.IsStopWord(st.Word) || acc.duplicate(st.Word) {
			continue
		}
		acc.add(st.Word)
		out = append(out, Suggestion{
			Word:         st.Word,
			ContentMatch: partial + MatchOpen + strings.TrimPrefix(st.Word, partial) + MatchClose,
			Score:        lengthReward(st.Priority, partial, st.Word),
		})
	}
	return out, nil
}

// contextNodes restricts completions to nodes matching the words before
// the partial one and the tag filter. A nil slice means no restriction;
// ok is false when the context matches nothing.
func (p *AutocompleteProcessor) contextNodes(ctx context.Context, req request.LookupRequest) ([]string, bool, error) {
	raw := req.Input().Raw
	head := ""
	if i := strings.LastIndexFunc(raw, unicode.IsSpace); i >= 0 {
		head = raw[:i+1]
	}
	in := lexer.Parse(head, req.Domain())
	if in.Empty() {
		if len(req.TagFilter()) == 0 {
			return nil, true, nil
		}
		in.RequiredTags = req.TagFilter()
	}
	rows, err := p.ranker.Matches(ctx, req.WithInput(in))
	if err != nil {
		return nil, false, err
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.Node.ID
	}
	return ids, len(ids) > 0, nil
}

func (p *AutocompleteProcessor) nextWords(ctx context.Context, req request.LookupRequest) ([]Suggestion, error) {
	in := req.Input()
	if len(in.Required) == 0 {
		return nil, nil
	}
	group := in.Required[len(in.Required)-1]
	last := group[len(group)-1]
	rows, err := p.ranker.Matches(ctx, req)
	if err != nil {
		return nil, err
	}

	queried := make(map[string]bool)
	for _, g := range in.Required {
		for _, w := range g {
			queried[w] = true
		}
	}
	stop := req.StopWords()
	acc := newAccepted(req.Phonetic())
	limit := req.MaxItems() * p.padding
	var out []Suggestion
	for _, r := range rows {
		content := r.Node.Content
		tokens := text.Tokens(content)
		for i, t := range tokens {
			if len(out) >= limit {
				return out, nil
			}
			if strings.ToLower(t.Word) != last {
				continue
			}
			for j := i + 1; j < len(tokens) && j <= i+maxNextWordScan; j++ {
				if strings.Contains(content[tokens[j-1].End:tokens[j].Start], strings.TrimSpace(store.ContentBlockSeparator)) {
					break
				}
				w := strings.ToLower(tokens[j].Word)
				if queried[w] || stop.IsStopWord(w) || acc.duplicate(w) {
					continue
				}
				acc.add(w)
				out = append(out, Suggestion{
					Word:         w,
					ContentMatch: last + " " + MatchOpen + w + MatchClose,
					Score:        lengthReward(r.Score, "", w),
				})
				break
			}
		}
	}
	return out, nil
}

// lengthReward favours completions that add more to the partial word.
func lengthReward(priority float64, partial, word string) float64 {
	lw := utf8.RuneCountInString(word)
	if lw == 0 {
		return 0
	}
	lp := utf8.RuneCountInString(partial)
	return priority * (1 + float64(lw-lp)/float64(lw))
}

type accepted struct {
	keyer text.Keyer
	words []string
}

func newAccepted(k text.Keyer) *accepted {
	return &accepted{keyer: k}
}

func (a *accepted) duplicate(w string) bool {
	for _, x := range a.words {
		if text.KeySimilarity(a.keyer, w, x) > phoneticDuplicate || text.Similarity(w, x) > lexicalDuplicate {
			return true
		}
	}
	return false
}

func (a *accepted) add(w string) {
	a.words = append(a.words, w)
}
