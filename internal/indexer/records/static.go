package records

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
)

// Static serves documents declared in configuration or a YAML file.
type Static struct {
	name string
	tag  string
	docs []config.DocumentConfig
}

func NewStatic(name, tag string, docs []config.DocumentConfig) *Static {
	return &Static{name: name, tag: tag, docs: docs}
}

// LoadDocuments reads a YAML file holding a top level "documents" list.
func LoadDocuments(path string) ([]config.DocumentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading documents file %s: %w", path, err)
	}
	var file struct {
		Documents []config.DocumentConfig `yaml:"documents"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing documents file %s: %w", path, err)
	}
	return file.Documents, nil
}

func (s *Static) Name() string { return s.name }

func (s *Static) Resolve(_ context.Context, req queue.Request) ([]any, error) {
	var items []any
	for _, doc := range s.docs {
		ok, err := matches(doc, req)
		if err != nil {
			return nil, err
		}
		if ok {
			items = append(items, doc)
		}
	}
	return items, nil
}

func (s *Static) Index(_ context.Context, element any, n *node.Node, req queue.Request) error {
	doc, ok := element.(config.DocumentConfig)
	if !ok {
		return fmt.Errorf("static records %s: unexpected element %T", s.name, element)
	}
	return fill(doc, s.tag, n, req)
}
