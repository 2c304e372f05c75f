// Package queue runs the staged indexing pipeline. Each stage yields the
// items of one level (sites, languages, environments, record indexers,
// records) and hands a refined copy of the request to the next stage.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/domain"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

// RecordIndexer is one pluggable content source. Resolve lists the raw
// elements for the request scope; Index fills a fresh node from one of them.
type RecordIndexer interface {
	Name() string
	Resolve(ctx context.Context, req Request) ([]any, error)
	Index(ctx context.Context, element any, n *node.Node, req Request) error
}

// Environment is the frontend context a site and language render in.
type Environment struct {
	Site     string
	Language string
	BaseURL  string
}

// URL joins path onto the environment's base URL.
func (e Environment) URL(path string) string {
	if path == "" || strings.Contains(path, "://") {
		return path
	}
	return e.BaseURL + "/" + strings.TrimLeft(path, "/")
}

// Request is the immutable state passed down the stages. Each With method
// returns a modified copy; accessors for fields no stage has set yet fail
// with ErrInLimbo.
type Request struct {
	domain      *domain.Domain
	site        *domain.Site
	language    string
	hasLanguage bool
	env         *Environment
	indexer     RecordIndexer
}

func NewRequest(d *domain.Domain) Request {
	return Request{domain: d}
}

func (r Request) WithSite(s domain.Site) Request {
	r.site = &s
	return r
}

func (r Request) WithLanguage(lang string) Request {
	r.language = lang
	r.hasLanguage = true
	return r
}

func (r Request) WithEnvironment(env Environment) Request {
	r.env = &env
	return r
}

func (r Request) WithRecordIndexer(idx RecordIndexer) Request {
	r.indexer = idx
	return r
}

func (r Request) Domain() (*domain.Domain, error) {
	if r.domain == nil {
		return nil, limbo("domain")
	}
	return r.domain, nil
}

func (r Request) Site() (domain.Site, error) {
	if r.site == nil {
		return domain.Site{}, limbo("site")
	}
	return *r.site, nil
}

func (r Request) Language() (string, error) {
	if !r.hasLanguage {
		return "", limbo("language")
	}
	return r.language, nil
}

func (r Request) Environment() (Environment, error) {
	if r.env == nil {
		return Environment{}, limbo("environment")
	}
	return *r.env, nil
}

func (r Request) RecordIndexer() (RecordIndexer, error) {
	if r.indexer == nil {
		return nil, limbo("record indexer")
	}
	return r.indexer, nil
}

// LogAttrs returns the populated fields as slog key/value pairs.
func (r Request) LogAttrs() []any {
	var attrs []any
	if r.domain != nil {
		attrs = append(attrs, "domain", r.domain.Name)
	}
	if r.site != nil {
		attrs = append(attrs, "site", r.site.ID)
	}
	if r.hasLanguage {
		attrs = append(attrs, "language", r.language)
	}
	if r.indexer != nil {
		attrs = append(attrs, "record_indexer", r.indexer.Name())
	}
	return attrs
}

func limbo(field string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInLimbo, field)
}
