package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/request"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
)

// Result is one search hit.
type Result struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	URL          string         `json:"url"`
	Image        string         `json:"image,omitempty"`
	Tag          string         `json:"tag"`
	Score        float64        `json:"score"`
	Timestamp    time.Time      `json:"timestamp"`
	ContentMatch string         `json:"contentMatch"`
	Meta         map[string]any `json:"meta,omitempty"`
}

type SearchOption func(*SearchProcessor)

// WithImageResolver restores image URLs of rows stored without one.
func WithImageResolver(r node.ImageResolver) SearchOption {
	return func(p *SearchProcessor) { p.images = r }
}

func WithSimilarityThreshold(t float64) SearchOption {
	return func(p *SearchProcessor) {
		if t > 0 && t <= 1 {
			p.threshold = t
		}
	}
}

type SearchProcessor struct {
	ranker    Ranker
	images    node.ImageResolver
	threshold float64
	logger    *slog.Logger
}

func NewSearch(r Ranker, opts ...SearchOption) *SearchProcessor {
	p := &SearchProcessor{
		ranker:    r,
		threshold: DefaultSimilarityThreshold,
		logger:    slog.Default().With("component", "search-processor"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *SearchProcessor) Type() request.Type { return request.Search }

func (p *SearchProcessor) Process(ctx context.Context, req request.LookupRequest) (any, error) {
	return p.Search(ctx, req)
}

func (p *SearchProcessor) Search(ctx context.Context, req request.LookupRequest) ([]Result, error) {
	rows, err := p.ranker.Rank(ctx, req)
	if err != nil {
		return nil, err
	}
	groups, _ := ranker.QueryTerms(req)
	keyer := req.Phonetic()

	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		n := r.Node
		res := Result{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
			URL:         n.URL,
			Image:       p.image(ctx, n),
			Tag:         n.Tag,
			Score:       r.Score,
			Timestamp:   n.Timestamp,
		}
		content := strings.ReplaceAll(n.Content, store.ContentBlockSeparator, " ")
		res.ContentMatch = ContentMatch(content, p.hits(content, groups, keyer), req.ContentMatchLength())
		if n.MetaData != "" {
			if err := json.Unmarshal([]byte(n.MetaData), &res.Meta); err != nil {
				p.logger.Warn("dropping undecodable meta data", "node_id", n.ID, "error", err)
			}
		}
		out = append(out, res)
	}
	return out, nil
}

func (p *SearchProcessor) image(ctx context.Context, n store.NodeRow) string {
	if n.Image != "" || n.ImageSource == "" || p.images == nil {
		return n.Image
	}
	img, err := node.ParseImageSource(n.ImageSource)
	if err != nil {
		p.logger.Warn("bad image source", "node_id", n.ID, "source", n.ImageSource, "error", err)
		return ""
	}
	url, err := p.images.ResolveImage(ctx, img)
	if err != nil {
		p.logger.Warn("restoring image failed", "node_id", n.ID, "error", err)
		return ""
	}
	return url
}

// hits locates the query in content. Exact matches win, then tokens
// sharing a phonetic key with a query word, then tokens similar enough
// to one.
func (p *SearchProcessor) hits(content string, groups []string, keyer text.Keyer) [][]int {
	var out [][]int
	for _, g := range groups {
		out = append(out, text.WordMatches(content, g)...)
	}
	if len(out) > 0 {
		return out
	}

	var words []string
	for _, g := range groups {
		if !strings.Contains(g, " ") {
			words = append(words, g)
		}
	}
	tokens := text.Tokens(content)
	if keyer != nil {
		keys := make(map[string]bool, len(words))
		for _, w := range words {
			if k := keyer.Key(w); k != "" {
				keys[k] = true
			}
		}
		for _, t := range tokens {
			if keys[keyer.Key(strings.ToLower(t.Word))] {
				out = append(out, []int{t.Start, t.End})
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	for _, t := range tokens {
		lw := strings.ToLower(t.Word)
		for _, w := range words {
			if text.Similarity(lw, w) >= p.threshold {
				out = append(out, []int{t.Start, t.End})
				break
			}
		}
	}
	return out
}

// ContentMatch cuts a window of length runes out of content around the
// first hit, a quarter of the window before it. The window is trimmed to
// whole words, cut edges get an ellipsis and hits inside it are wrapped
// in match markers. Hits are byte ranges into content.
func ContentMatch(content string, hits [][]int, length int) string {
	runes := []rune(content)
	n := len(runes)
	if n == 0 {
		return ""
	}
	spans := runeSpans(content, hits)

	start, firstEnd := 0, 0
	if len(spans) > 0 {
		start = max(0, spans[0][0]-length/4)
		firstEnd = spans[0][1]
	}
	end := min(n, start+length)
	if end == n {
		start = max(0, min(start, n-length))
	}
	end = max(end, firstEnd)

	if start > 0 {
		for start < end && isWord(runes[start-1]) && isWord(runes[start]) {
			start++
		}
	}
	if end < n {
		for end > max(start, firstEnd) && isWord(runes[end-1]) && isWord(runes[end]) {
			end--
		}
	}
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	pos := start
	for _, s := range spans {
		if s[0] < start || s[1] > end {
			continue
		}
		b.WriteString(string(runes[pos:s[0]]))
		b.WriteString(MatchOpen)
		b.WriteString(string(runes[s[0]:s[1]]))
		b.WriteString(MatchClose)
		pos = s[1]
	}
	b.WriteString(string(runes[pos:end]))
	if end < n {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// runeSpans converts byte ranges to sorted, non-overlapping rune ranges.
func runeSpans(s string, hits [][]int) [][2]int {
	sorted := make([][]int, len(hits))
	copy(sorted, hits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i][0] < sorted[j][0] })

	var out [][2]int
	last := -1
	for _, h := range sorted {
		if h[0] < last {
			continue
		}
		a := utf8.RuneCountInString(s[:h[0]])
		b := a + utf8.RuneCountInString(s[h[0]:h[1]])
		out = append(out, [2]int{a, b})
		last = h[1]
	}
	return out
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
