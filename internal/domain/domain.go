// Package domain holds the search domains: independently configured index
// scopes, each with its sites, languages, record indexers, language
// resources and tag labels. The registry is validated once at startup.
package domain

import (
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text/phonetic"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

const DefaultContentMatchLength = 400

// Site is one site served by a domain.
type Site struct {
	ID        string
	BaseURL   string
	Languages []string
}

// TagLabel maps a canonical tag id to its display and input labels.
type TagLabel struct {
	ID         string `json:"-"`
	Label      string `json:"label"`
	InputLabel string `json:"inputLabel"`
}

// Domain is one validated search domain.
type Domain struct {
	Name               string
	Sites              []Site
	Languages          []string
	RecordIndexers     []string
	Tags               []TagLabel
	ContentMatchLength int

	stopWords *text.StopWordRegistry
	custom    map[string]text.WordSet
	phonetic  *phonetic.Registry
	overrides map[string]phonetic.Provider
}

// Site returns the site with the given id.
func (d *Domain) Site(id string) (Site, bool) {
	for _, s := range d.Sites {
		if s.ID == id {
			return s, true
		}
	}
	return Site{}, false
}

// HasLanguage reports whether site serves lang.
func (d *Domain) HasLanguage(site Site, lang string) bool {
	return slices.Contains(site.Languages, lang)
}

// StopWords merges the domain's custom list for lang with the built-in one.
func (d *Domain) StopWords(lang string) text.StopWordList {
	base := d.stopWords.For(lang)
	if extra, ok := d.custom[text.LanguageKey(lang)]; ok {
		return mergedList{extra, base}
	}
	return base
}

// Phonetic returns the provider configured for lang.
func (d *Domain) Phonetic(lang string) text.Keyer {
	if p, ok := d.overrides[text.LanguageKey(lang)]; ok {
		return p
	}
	return d.phonetic.For(lang)
}

// TagForInput translates a case-insensitive input label (or a tag id)
// into the canonical tag id.
func (d *Domain) TagForInput(label string) (string, bool) {
	for _, t := range d.Tags {
		if strings.EqualFold(t.InputLabel, label) || strings.EqualFold(t.ID, label) {
			return t.ID, true
		}
	}
	return "", false
}

// TagLabel returns the labels of tag, falling back to the id itself.
func (d *Domain) TagLabel(tag string) TagLabel {
	for _, t := range d.Tags {
		if t.ID == tag {
			return t
		}
	}
	return TagLabel{ID: tag, Label: tag, InputLabel: tag}
}

type mergedList []text.StopWordList

func (m mergedList) IsStopWord(w string) bool {
	for _, l := range m {
		if l.IsStopWord(w) {
			return true
		}
	}
	return false
}

// IndexerSet answers whether a record indexer name is registered.
type IndexerSet interface {
	Has(name string) bool
}

// Registry holds every configured domain.
type Registry struct {
	domains map[string]*Domain
}

// NewRegistry validates cfgs and builds the domains. Any inconsistency is
// a configuration error.
func NewRegistry(cfgs []config.DomainConfig, indexers IndexerSet, stop *text.StopWordRegistry, ph *phonetic.Registry) (*Registry, error) {
	r := &Registry{domains: make(map[string]*Domain, len(cfgs))}
	for _, c := range cfgs {
		d, err := build(c, indexers, stop, ph)
		if err != nil {
			return nil, err
		}
		if _, dup := r.domains[d.Name]; dup {
			return nil, apperrors.Configf("domain %q declared twice", d.Name)
		}
		r.domains[d.Name] = d
	}
	return r, nil
}

func build(c config.DomainConfig, indexers IndexerSet, stop *text.StopWordRegistry, ph *phonetic.Registry) (*Domain, error) {
	if c.Name == "" {
		return nil, apperrors.Configf("domain without name")
	}
	if len(c.RecordIndexers) == 0 {
		return nil, apperrors.Configf("domain %q has no record indexers", c.Name)
	}
	for _, name := range c.RecordIndexers {
		if indexers == nil || !indexers.Has(name) {
			return nil, apperrors.Configf("domain %q: unknown record indexer %q", c.Name, name)
		}
	}
	if len(c.Sites) == 0 {
		return nil, apperrors.Configf("domain %q has no sites", c.Name)
	}

	d := &Domain{
		Name:               c.Name,
		Languages:          c.Languages,
		RecordIndexers:     c.RecordIndexers,
		ContentMatchLength: c.ContentMatchLength,
		stopWords:          stop,
		custom:             make(map[string]text.WordSet),
		phonetic:           ph,
		overrides:          make(map[string]phonetic.Provider),
	}
	if d.ContentMatchLength <= 0 {
		d.ContentMatchLength = DefaultContentMatchLength
	}
	for _, s := range c.Sites {
		if s.ID == "" {
			return nil, apperrors.Configf("domain %q has a site without id", c.Name)
		}
		langs := s.Languages
		if len(langs) == 0 {
			langs = c.Languages
		}
		if len(langs) == 0 {
			return nil, apperrors.Configf("domain %q site %q has no languages", c.Name, s.ID)
		}
		d.Sites = append(d.Sites, Site{ID: s.ID, BaseURL: strings.TrimRight(s.BaseURL, "/"), Languages: langs})
	}
	for lang, words := range c.StopWords {
		d.custom[text.LanguageKey(lang)] = text.NewWordSet(words...)
	}
	for lang, name := range c.Phonetic {
		p, err := ph.Lookup(name)
		if err != nil {
			return nil, apperrors.Configf("domain %q: %v", c.Name, err)
		}
		d.overrides[text.LanguageKey(lang)] = p
	}
	for _, t := range c.Tags {
		label := TagLabel{ID: t.ID, Label: t.Label, InputLabel: t.InputLabel}
		if label.Label == "" {
			label.Label = t.ID
		}
		if label.InputLabel == "" {
			label.InputLabel = strings.ToLower(label.Label)
		}
		d.Tags = append(d.Tags, label)
	}
	return d, nil
}

// Get returns a domain by name.
func (r *Registry) Get(name string) (*Domain, error) {
	d, ok := r.domains[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrDomainNotFound, http.StatusBadRequest, "unknown search domain %q", name)
	}
	return d, nil
}

// Names lists the configured domains in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.domains))
	for n := range r.domains {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
