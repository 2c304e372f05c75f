// Package request validates lookup options and resolves them against the
// domain registry into an immutable LookupRequest.
package request

import (
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/searcher/lexer"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

const (
	MaxTagItems    = 100
	MaxTagFilters  = 50
	MinMatchLength = 20
	MaxMatchLength = 10000
	MaxInputLength = 1024
)

// Type selects the result processor.
type Type int

const (
	Search Type = iota
	SearchCount
	Autocomplete
	Tags
)

func (t Type) String() string {
	switch t {
	case Search:
		return "search"
	case SearchCount:
		return "search-count"
	case Autocomplete:
		return "autocomplete"
	case Tags:
		return "tags"
	}
	return "unknown"
}

// Options are the caller supplied lookup options. Zero values fall back to
// the builder defaults.
type Options struct {
	Domain             string   `json:"domain,omitempty"`
	Site               string   `json:"site,omitempty"`
	Language           string   `json:"language,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	MaxItems           int      `json:"maxItems,omitempty"`
	Offset             int      `json:"offset,omitempty"`
	MaxTagItems        int      `json:"maxTagItems,omitempty"`
	AdditionalWhere    string   `json:"additionalWhere,omitempty"`
	ContentMatchLength int      `json:"contentMatchLength,omitempty"`
}

// Defaults resolve options the caller left empty, typically from the
// current request context or configuration.
type Defaults struct {
	Domain     string
	Site       string
	Language   string
	MaxItems   int
	MaxResults int
}

// DefaultsFromConfig reads the search section.
func DefaultsFromConfig(cfg config.SearchConfig) Defaults {
	return Defaults{
		Domain:     cfg.DefaultDomain,
		Site:       cfg.DefaultSite,
		Language:   cfg.DefaultLanguage,
		MaxItems:   cfg.DefaultLimit,
		MaxResults: cfg.MaxResults,
	}
}

// LookupRequest is one validated lookup. It is a value; With methods
// return modified copies.
type LookupRequest struct {
	typ                Type
	domain             *domain.Domain
	site               domain.Site
	language           string
	input              lexer.ParsedInput
	tagFilter          []string
	maxItems           int
	offset             int
	maxTagItems        int
	additionalWhere    string
	contentMatchLength int
}

func (r LookupRequest) Type() Type { return r.typ }
func (r LookupRequest) Domain() *domain.Domain { return r.domain }
func (r LookupRequest) Site() domain.Site { return r.site }
func (r LookupRequest) Language() string { return r.language }
func (r LookupRequest) Input() lexer.ParsedInput { return r.input }
func (r LookupRequest) TagFilter() []string { return r.tagFilter }
func (r LookupRequest) MaxItems() int { return r.maxItems }
func (r LookupRequest) Offset() int { return r.offset }
func (r LookupRequest) MaxTagItems() int { return r.maxTagItems }
func (r LookupRequest) AdditionalWhere() string { return r.additionalWhere }
func (r LookupRequest) ContentMatchLength() int { return r.contentMatchLength }
func (r LookupRequest) StopWords() text.StopWordList { return r.domain.StopWords(r.language) }
func (r LookupRequest) Phonetic() text.Keyer { return r.domain.Phonetic(r.language) }

// Scope is the storage scope of the request.
func (r LookupRequest) Scope() store.Scope {
	return store.Scope{Domain: r.domain.Name, Site: r.site.ID, Lang: r.language}
}

// TagPaginated reports whether per-tag top-N pagination applies. It wins
// over offset and maxItems.
func (r LookupRequest) TagPaginated() bool {
	return r.maxTagItems > 0
}

func (r LookupRequest) WithMaxItems(n int) LookupRequest {
	r.maxItems = n
	return r
}

func (r LookupRequest) WithOffset(n int) LookupRequest {
	r.offset = n
	return r
}

func (r LookupRequest) WithMaxTagItems(n int) LookupRequest {
	r.maxTagItems = n
	return r
}

func (r LookupRequest) WithInput(in lexer.ParsedInput) LookupRequest {
	r.input = in
	return r
}

// Builder validates options into requests.
type Builder struct {
	domains  *domain.Registry
	defaults Defaults
}

func NewBuilder(domains *domain.Registry, defaults Defaults) *Builder {
	if defaults.MaxItems <= 0 {
		defaults.MaxItems = 10
	}
	if defaults.MaxResults <= 0 {
		defaults.MaxResults = 100
	}
	return &Builder{domains: domains, defaults: defaults}
}

// Build validates opts and lexes raw. Every error wraps ErrInvalidInput or
// ErrDomainNotFound; nothing touches storage.
func (b *Builder) Build(typ Type, raw string, opts Options) (LookupRequest, error) {
	if len(raw) > MaxInputLength {
		return LookupRequest{}, apperrors.Invalid("input longer than %d bytes", MaxInputLength)
	}
	name := firstNonEmpty(opts.Domain, b.defaults.Domain)
	if name == "" {
		return LookupRequest{}, apperrors.Invalid("no search domain given")
	}
	d, err := b.domains.Get(name)
	if err != nil {
		return LookupRequest{}, err
	}

	siteID := firstNonEmpty(opts.Site, b.defaults.Site)
	if siteID == "" {
		siteID = d.Sites[0].ID
	}
	site, ok := d.Site(siteID)
	if !ok {
		return LookupRequest{}, apperrors.Invalid("unknown site %q in domain %q", siteID, d.Name)
	}
	lang := firstNonEmpty(opts.Language, b.defaults.Language)
	if lang == "" {
		lang = site.Languages[0]
	}
	if !d.HasLanguage(site, lang) {
		return LookupRequest{}, apperrors.Invalid("language %q is not served by site %q", lang, site.ID)
	}

	switch {
	case opts.MaxItems < 0:
		return LookupRequest{}, apperrors.Invalid("maxItems must not be negative")
	case opts.MaxItems > b.defaults.MaxResults:
		return LookupRequest{}, apperrors.Invalid("maxItems must not exceed %d", b.defaults.MaxResults)
	case opts.Offset < 0:
		return LookupRequest{}, apperrors.Invalid("offset must not be negative")
	case opts.MaxTagItems < 0 || opts.MaxTagItems > MaxTagItems:
		return LookupRequest{}, apperrors.Invalid("maxTagItems must be between 0 and %d", MaxTagItems)
	case opts.ContentMatchLength != 0 && (opts.ContentMatchLength < MinMatchLength || opts.ContentMatchLength > MaxMatchLength):
		return LookupRequest{}, apperrors.Invalid("contentMatchLength must be between %d and %d", MinMatchLength, MaxMatchLength)
	case len(opts.Tags) > MaxTagFilters:
		return LookupRequest{}, apperrors.Invalid("at most %d tags may be given", MaxTagFilters)
	}

	var filter []string
	for _, t := range opts.Tags {
		if t == "" || len(t) > store.MaxScopeLength {
			return LookupRequest{}, apperrors.Invalid("invalid tag %q", t)
		}
		id, ok := d.TagForInput(t)
		if !ok {
			return LookupRequest{}, apperrors.Invalid("unknown tag %q", t)
		}
		filter = append(filter, id)
	}

	r := LookupRequest{
		typ:                typ,
		domain:             d,
		site:               site,
		language:           lang,
		input:              lexer.Parse(raw, d),
		tagFilter:          filter,
		maxItems:           opts.MaxItems,
		offset:             opts.Offset,
		maxTagItems:        opts.MaxTagItems,
		additionalWhere:    opts.AdditionalWhere,
		contentMatchLength: opts.ContentMatchLength,
	}
	if r.maxItems == 0 {
		r.maxItems = b.defaults.MaxItems
	}
	if r.contentMatchLength == 0 {
		r.contentMatchLength = d.ContentMatchLength
	}
	return r, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
