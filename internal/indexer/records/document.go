package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/node"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/indexer/queue"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
	"github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/config"
)

// PathLink is the LinkRef kind for site relative paths.
const PathLink = "path"

// Links resolves path LinkRefs against the base URL recorded when the
// node was filled.
type Links struct{}

func (Links) ResolveLink(_ context.Context, ref node.LinkRef) (string, error) {
	if ref.Kind != PathLink {
		return "", fmt.Errorf("unsupported link kind %q", ref.Kind)
	}
	return queue.Environment{BaseURL: ref.Params["baseUrl"]}.URL(ref.ID), nil
}

// matches reports whether doc belongs to the request's site and language.
// Empty fields match everything.
func matches(doc config.DocumentConfig, req queue.Request) (bool, error) {
	site, err := req.Site()
	if err != nil {
		return false, err
	}
	lang, err := req.Language()
	if err != nil {
		return false, err
	}
	if doc.Site != "" && doc.Site != site.ID {
		return false, nil
	}
	if doc.Language != "" && text.LanguageKey(doc.Language) != text.LanguageKey(lang) {
		return false, nil
	}
	return true, nil
}

// fill copies doc into n.
func fill(doc config.DocumentConfig, defaultTag string, n *node.Node, req queue.Request) error {
	env, err := req.Environment()
	if err != nil {
		return err
	}
	tag := doc.Tag
	if tag == "" {
		tag = defaultTag
	}
	n.SetTitle(doc.Title).SetDescription(doc.Description).SetTag(tag)
	for _, c := range doc.Content {
		n.AddContent(c, node.DefaultPriority)
	}
	for _, k := range doc.Keywords {
		n.AddKeyword(k, node.DefaultPriority)
	}
	if doc.Priority != nil {
		if *doc.Priority > 100 {
			n.SetUnguardedPriority(*doc.Priority)
		} else {
			n.SetPriority(*doc.Priority)
		}
	}
	if !doc.Timestamp.IsZero() {
		n.SetTimestamp(doc.Timestamp)
	}
	switch {
	case doc.Link != "":
		n.SetLink(env.URL(doc.Link))
	case doc.Path != "":
		n.SetLinkRef(node.LinkRef{Kind: PathLink, ID: doc.Path, Params: map[string]string{"baseUrl": env.BaseURL}})
	}
	if doc.Image != "" {
		img, err := parseImage(doc.Image)
		if err != nil {
			return err
		}
		n.SetImage(img)
	}
	for k, v := range doc.Meta {
		n.SetMeta(k, v)
	}
	if doc.ID != "" {
		n.SetMeta("recordId", doc.ID)
	}
	n.SetSearchable(!doc.Hidden).SetInSiteMap(!doc.NoSitemap)
	return nil
}

// parseImage accepts "file:<id>", "ref:<id>" or a bare URL.
func parseImage(s string) (node.Image, error) {
	if strings.Contains(s, "://") {
		return node.Image{Kind: node.ImageRef, ID: s}, nil
	}
	return node.ParseImageSource(s)
}
