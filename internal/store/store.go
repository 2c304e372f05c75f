// Package store defines the two index tables (nodes and words), the queries
// the lookup path runs against them and the Store contract implemented by
// the memory and SQL backends.
//
// Both tables hold two generations per domain: rows being built
// (active=false) and the served generation (active=true). Activate swaps
// them atomically, so readers never observe a half-built index.
package store

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// ContentBlockSeparator joins title, description and content blocks in
// NodeRow.Content.
const ContentBlockSeparator = " ||| "

const (
	MaxScopeLength = 256
	MaxTitleLength = 1024
	MaxWordLength  = 256
)

// NodeRow is one persisted node.
type NodeRow struct {
	ID          string
	Site        string
	Domain      string
	Lang        string
	Tag         string
	Title       string
	Description string
	URL         string
	Image       string
	ImageSource string
	Content     string
	SetKeywords string
	Priority    float64
	Timestamp   time.Time
	MetaData    string
	Searchable  bool
	InSitemap   bool
	Active      bool
}

// WordRow is one persisted word of a node.
type WordRow struct {
	NodeID   string
	Word     string
	Tag      string
	Lang     string
	Domain   string
	Site     string
	Priority float64
	Phonetic string
	Active   bool
}

// Scope selects the rows one lookup may see.
type Scope struct {
	Domain string
	Site   string
	Lang   string
}

// WordTerm is a query word with its phonetic key.
type WordTerm struct {
	Word     string
	Phonetic string
}

// CandidateQuery asks for active, searchable nodes in scope that match
// any word term through the fuzzy word channel or contain any phrase in
// title, content or keywords. Without terms and phrases every node in
// scope qualifies.
type CandidateQuery struct {
	Scope
	RequiredTags []string
	DeniedTags   []string
	Words        []WordTerm
	Phrases      []string
	// AdditionalWhere is a raw SQL predicate on the nodes table (alias n).
	// It must be sanitized by the caller.
	AdditionalWhere string
}

// MatchKind labels how a stored word matched a query word.
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchPrefix
	MatchPhonetic
	MatchSubstring
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchPhonetic:
		return "phonetic"
	default:
		return "substring"
	}
}

// MatchedWord is one stored word that matched one query term.
type MatchedWord struct {
	Row  WordRow
	Term string
	Kind MatchKind
}

// Candidate is a node plus every word row that matched a query term.
type Candidate struct {
	Node  NodeRow
	Words []MatchedWord
}

// WordQuery asks for distinct active words starting with Prefix,
// optionally restricted to a set of nodes. A nil NodeIDs means no
// restriction; an empty non-nil slice matches nothing.
type WordQuery struct {
	Scope
	Prefix  string
	NodeIDs []string
	Limit   int
}

// WordStat aggregates one distinct word across the nodes using it.
type WordStat struct {
	Word     string
	Priority float64
	Phonetic string
	Nodes    int
}

// SitemapEntry is one node flagged for the sitemap.
type SitemapEntry struct {
	URL       string
	Timestamp time.Time
	Priority  float64
}

// Store persists and queries the index tables.
type Store interface {
	// InsertBatch writes rows into the inactive generation.
	InsertBatch(ctx context.Context, nodes []NodeRow, words []WordRow) error
	// Activate replaces the active generation of domain with the inactive one.
	Activate(ctx context.Context, domain string) error
	// RemoveInactive drops leftover inactive rows of domain.
	RemoveInactive(ctx context.Context, domain string) error

	Candidates(ctx context.Context, q CandidateQuery) ([]Candidate, error)
	WordsWithPrefix(ctx context.Context, q WordQuery) ([]WordStat, error)
	DistinctTags(ctx context.Context, s Scope) ([]string, error)
	SitemapEntries(ctx context.Context, s Scope) ([]SitemapEntry, error)

	// View runs fn against a single generation of the index. Reads made
	// with the context handed to fn do not observe activations committed
	// while fn runs.
	View(ctx context.Context, fn func(ctx context.Context) error) error
}

// MatchWord reports how row matches term, trying exact, prefix, phonetic
// and, for terms longer than five characters, substring containment.
func MatchWord(term WordTerm, row string, rowPhonetic string) (MatchKind, bool) {
	switch {
	case term.Word == "":
		return 0, false
	case row == term.Word:
		return MatchExact, true
	case strings.HasPrefix(row, term.Word):
		return MatchPrefix, true
	case term.Phonetic != "" && rowPhonetic == term.Phonetic:
		return MatchPhonetic, true
	case utf8.RuneCountInString(term.Word) > 5 && strings.Contains(row, term.Word):
		return MatchSubstring, true
	}
	return 0, false
}

// MatchTerms collects one MatchedWord per term that row matches.
func MatchTerms(terms []WordTerm, row WordRow) []MatchedWord {
	var out []MatchedWord
	for _, t := range terms {
		if kind, ok := MatchWord(t, row.Word, row.Phonetic); ok {
			out = append(out, MatchedWord{Row: row, Term: t.Word, Kind: kind})
		}
	}
	return out
}

// phraseFieldSeparator keeps a phrase from matching across the end of one
// field and the start of the next.
const phraseFieldSeparator = "\x1f"

// PhraseText is the lower-cased title, content and keywords of n that
// phrases are matched against. SQL stores persist it so case folding does
// not depend on the database collation.
func PhraseText(n NodeRow) string {
	return strings.ToLower(n.Title) + phraseFieldSeparator +
		strings.ToLower(n.Content) + phraseFieldSeparator +
		strings.ToLower(n.SetKeywords)
}

// MatchesPhrase reports whether n contains phrase (lower-cased) in title,
// content or keywords.
func MatchesPhrase(n NodeRow, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(PhraseText(n), phrase)
}

// TagAllowed applies the required and denied tag filters.
func TagAllowed(tag string, required, denied []string) bool {
	for _, d := range denied {
		if d == tag {
			return false
		}
	}
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if r == tag {
			return true
		}
	}
	return false
}
