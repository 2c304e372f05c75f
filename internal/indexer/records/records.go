// Package records holds the built-in record indexers: content sources that
// list raw elements for a site and language and fill nodes from them.
package records

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

// Func adapts plain functions to queue.RecordIndexer.
type Func struct {
	IndexerName string
	ResolveFunc func(ctx context.Context, req queue.Request) ([]any, error)
	IndexFunc   func(ctx context.Context, element any, n *node.Node, req queue.Request) error
}

func (f Func) Name() string { return f.IndexerName }

func (f Func) Resolve(ctx context.Context, req queue.Request) ([]any, error) {
	if f.ResolveFunc == nil {
		return nil, nil
	}
	return f.ResolveFunc(ctx, req)
}

func (f Func) Index(ctx context.Context, element any, n *node.Node, req queue.Request) error {
	if f.IndexFunc == nil {
		return fmt.Errorf("record indexer %s has no index function", f.IndexerName)
	}
	return f.IndexFunc(ctx, element, n, req)
}

// Registry maps names to record indexers. It is built once at startup.
type Registry struct {
	byName map[string]queue.RecordIndexer
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]queue.RecordIndexer)}
}

// Register adds idx. Names must be unique.
func (r *Registry) Register(idx queue.RecordIndexer) error {
	name := idx.Name()
	if name == "" {
		return apperrors.Configf("record indexer without name")
	}
	if _, dup := r.byName[name]; dup {
		return apperrors.Configf("record indexer %q registered twice", name)
	}
	r.byName[name] = idx
	return nil
}

func (r *Registry) Get(name string) (queue.RecordIndexer, error) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, apperrors.Configf("unknown record indexer %q", name)
	}
	return idx, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names lists registered indexers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FromConfig builds a registry from the records section. SQL sources need
// db; it may be nil when none are configured.
func FromConfig(cfgs []config.RecordsConfig, db *sql.DB) (*Registry, error) {
	r := NewRegistry()
	for _, c := range cfgs {
		var idx queue.RecordIndexer
		switch strings.ToLower(c.Type) {
		case "", "static":
			docs := c.Documents
			if c.DocumentsFile != "" {
				loaded, err := LoadDocuments(c.DocumentsFile)
				if err != nil {
					return nil, apperrors.Configf("records %q: %v", c.Name, err)
				}
				docs = append(docs, loaded...)
			}
			idx = NewStatic(c.Name, c.Tag, docs)
		case "sql":
			if db == nil {
				return nil, apperrors.Configf("records %q: sql source without database", c.Name)
			}
			if c.Query == "" {
				return nil, apperrors.Configf("records %q: sql source without query", c.Name)
			}
			idx = NewSQLTable(c.Name, c.Tag, db, c.Query)
		default:
			return nil, apperrors.Configf("records %q: unknown type %q", c.Name, c.Type)
		}
		if err := r.Register(idx); err != nil {
			return nil, err
		}
	}
	return r, nil
}
