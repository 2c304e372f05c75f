// Package converter flattens a node.Node into the rows persisted in the
// nodes and words tables, scoring every word on the way.
package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/priority"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/store"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

const (
	TitlePriority       = 100.0
	DescriptionPriority = 60.0
)

// Languages supplies the per-language stop words and phonetic keys.
type Languages interface {
	StopWords(lang string) text.StopWordList
	Phonetic(lang string) text.Keyer
}

// Filter may replace the rows of a node before they are returned.
type Filter func(n *node.Node, row store.NodeRow, words []store.WordRow) (store.NodeRow, []store.WordRow)

// IndexerError reports a node that could not be converted. Only that node
// is dropped.
type IndexerError struct {
	NodeID string
	Err    error
}

func (e *IndexerError) Error() string {
	return fmt.Sprintf("converting node %s: %v", e.NodeID, e.Err)
}

func (e *IndexerError) Unwrap() error {
	return e.Err
}

// IsIndexerError reports whether err came from a single bad node.
func IsIndexerError(err error) bool {
	var ie *IndexerError
	return errors.As(err, &ie)
}

// Converter turns nodes into rows.
type Converter struct {
	langs   Languages
	links   node.LinkResolver
	images  node.ImageResolver
	filters []Filter
	now     func() time.Time
}

type Option func(*Converter)

func WithLinkResolver(r node.LinkResolver) Option {
	return func(c *Converter) { c.links = r }
}

func WithImageResolver(r node.ImageResolver) Option {
	return func(c *Converter) { c.images = r }
}

// WithFilter appends a filter; filters run in the order given.
func WithFilter(f Filter) Option {
	return func(c *Converter) { c.filters = append(c.filters, f) }
}

func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

func New(langs Languages, opts ...Option) *Converter {
	c := &Converter{langs: langs, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Convert scores n and builds its rows. Rows are returned inactive.
func (c *Converter) Convert(ctx context.Context, n *node.Node) (store.NodeRow, []store.WordRow, error) {
	id := n.GUID.String()
	title := text.Normalize(n.Title)
	if title == "" {
		return store.NodeRow{}, nil, &IndexerError{NodeID: id, Err: apperrors.ErrMissingTitle}
	}
	description := text.Normalize(n.Description)

	sources := []text.Source{{Text: title, Priority: TitlePriority, Category: text.CategoryTitle}}
	if description != "" {
		sources = append(sources, text.Source{Text: description, Priority: DescriptionPriority, Category: text.CategoryDescription})
	}
	blocks := []string{title, description}
	for _, ct := range n.Contents {
		sources = append(sources, text.Source{Text: ct.Text, Priority: ct.Priority, Category: text.CategoryContent})
		blocks = append(blocks, text.Normalize(ct.Text))
	}
	var keywords []string
	for _, kw := range n.Keywords {
		sources = append(sources, text.Source{Text: kw.Text, Priority: kw.Priority, Category: text.CategoryKeywords})
		if k := text.Normalize(kw.Text); k != "" {
			keywords = append(keywords, k)
		}
	}

	extractor := text.NewExtractor(c.langs.StopWords(n.Language), c.langs.Phonetic(n.Language))
	words := extractor.Extract(sources)
	priority.Words(words)
	nodePriority := priority.Node(priority.NodeInput{
		Priority:         n.Priority,
		Timestamp:        n.Timestamp,
		IgnoreGuardRails: n.IgnoreGuardRails,
	}, words, c.now())

	url, err := n.ResolveLink(ctx, c.links)
	if err != nil {
		return store.NodeRow{}, nil, &IndexerError{NodeID: id, Err: fmt.Errorf("resolving link: %w", err)}
	}
	var image, imageSource string
	if n.Image != nil {
		imageSource = n.Image.Source()
		if c.images != nil {
			if image, err = c.images.ResolveImage(ctx, *n.Image); err != nil {
				return store.NodeRow{}, nil, &IndexerError{NodeID: id, Err: fmt.Errorf("resolving image: %w", err)}
			}
		}
	}
	var meta string
	if len(n.Meta) > 0 {
		raw, err := json.Marshal(n.Meta)
		if err != nil {
			return store.NodeRow{}, nil, &IndexerError{NodeID: id, Err: fmt.Errorf("encoding meta data: %w", err)}
		}
		meta = string(raw)
	}

	tag := text.Truncate(n.Tag, store.MaxScopeLength)
	domain := text.Truncate(n.Domain, store.MaxScopeLength)
	site := text.Truncate(n.Site, store.MaxScopeLength)
	row := store.NodeRow{
		ID:          id,
		Site:        site,
		Domain:      domain,
		Lang:        n.Language,
		Tag:         tag,
		Title:       text.Truncate(title, store.MaxTitleLength),
		Description: description,
		URL:         url,
		Image:       image,
		ImageSource: imageSource,
		Content:     joinBlocks(blocks),
		SetKeywords: strings.Join(keywords, " "),
		Priority:    nodePriority,
		Timestamp:   n.Timestamp,
		MetaData:    meta,
		Searchable:  n.AddToSearchResults,
		InSitemap:   n.AddToSiteMap,
	}

	sorted := make([]string, 0, len(words))
	for w := range words {
		sorted = append(sorted, w)
	}
	sort.Strings(sorted)
	wordRows := make([]store.WordRow, 0, len(sorted))
	for _, w := range sorted {
		wd := words[w]
		wordRows = append(wordRows, store.WordRow{
			NodeID:   id,
			Word:     text.Truncate(w, store.MaxWordLength),
			Tag:      tag,
			Lang:     n.Language,
			Domain:   domain,
			Site:     site,
			Priority: wd.Priority,
			Phonetic: wd.PhoneticKey,
		})
	}

	for _, f := range c.filters {
		row, wordRows = f(n, row, wordRows)
	}
	return row, wordRows, nil
}

func joinBlocks(blocks []string) string {
	parts := blocks[:0:0]
	for _, b := range blocks {
		if b != "" {
			parts = append(parts, b)
		}
	}
	return strings.Join(parts, store.ContentBlockSeparator)
}
