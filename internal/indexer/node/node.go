// Package node is the in-memory, indexing-time model of one searchable
// entity. A Node is built by a record indexer, converted once into storage
// rows and then discarded.
package node

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultPriority = 50.0

// Content is a text block with the base priority its words inherit.
type Content struct {
	Text     string
	Priority float64
}

// LinkRef describes a link that is resolved lazily, typically a page or
// record id plus route parameters.
type LinkRef struct {
	Kind   string
	ID     string
	Params map[string]string
}

// LinkResolver turns a LinkRef into an absolute URL.
type LinkResolver interface {
	ResolveLink(ctx context.Context, ref LinkRef) (string, error)
}

// ImageKind distinguishes uploaded files from externally referenced images.
type ImageKind string

const (
	ImageFile ImageKind = "file"
	ImageRef  ImageKind = "ref"
)

// Image is a restorable image reference.
type Image struct {
	Kind ImageKind
	ID   string
}

// Source renders the reference as "<kind>:<id>".
func (i Image) Source() string {
	if i.ID == "" {
		return ""
	}
	return string(i.Kind) + ":" + i.ID
}

// ParseImageSource reverses Image.Source.
func ParseImageSource(s string) (Image, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Image{}, fmt.Errorf("malformed image source %q", s)
	}
	switch ImageKind(kind) {
	case ImageFile, ImageRef:
		return Image{Kind: ImageKind(kind), ID: id}, nil
	}
	return Image{}, fmt.Errorf("unknown image kind %q", kind)
}

// ImageResolver turns an Image into an absolute URL.
type ImageResolver interface {
	ResolveImage(ctx context.Context, img Image) (string, error)
}

// URLImages resolves file images below BaseURL and passes ref images
// through as absolute URLs.
type URLImages struct {
	BaseURL string
}

func (u URLImages) ResolveImage(_ context.Context, img Image) (string, error) {
	switch img.Kind {
	case ImageFile:
		return strings.TrimRight(u.BaseURL, "/") + "/" + img.ID, nil
	case ImageRef:
		return img.ID, nil
	}
	return "", fmt.Errorf("unknown image kind %q", img.Kind)
}

// Node holds everything indexed about one entity.
type Node struct {
	GUID     uuid.UUID
	Domain   string
	Site     string
	Language string
	Tag      string

	Title       string
	Description string
	Contents    []Content
	Keywords    []Content

	Priority         float64
	IgnoreGuardRails bool
	Timestamp        time.Time

	Link    string
	LinkRef *LinkRef
	Image   *Image
	Meta    map[string]any

	AddToSearchResults bool
	AddToSiteMap       bool
}

func (n *Node) SetTitle(title string) *Node {
	n.Title = title
	return n
}

func (n *Node) SetDescription(desc string) *Node {
	n.Description = desc
	return n
}

func (n *Node) SetTag(tag string) *Node {
	n.Tag = tag
	return n
}

func (n *Node) AddContent(text string, priority float64) *Node {
	n.Contents = append(n.Contents, Content{Text: text, Priority: priority})
	return n
}

func (n *Node) AddKeyword(text string, priority float64) *Node {
	n.Keywords = append(n.Keywords, Content{Text: text, Priority: priority})
	return n
}

// SetPriority sets a priority clamped to 0..100.
func (n *Node) SetPriority(p float64) *Node {
	n.Priority = min(max(p, 0), 100)
	n.IgnoreGuardRails = false
	return n
}

// SetUnguardedPriority sets a priority that may exceed 100 and keeps the
// node exempt from the cap during scoring.
func (n *Node) SetUnguardedPriority(p float64) *Node {
	n.Priority = p
	n.IgnoreGuardRails = true
	return n
}

func (n *Node) SetTimestamp(ts time.Time) *Node {
	n.Timestamp = ts
	return n
}

// SetLink hard-overrides the URL; it wins over any LinkRef.
func (n *Node) SetLink(url string) *Node {
	n.Link = url
	return n
}

func (n *Node) SetLinkRef(ref LinkRef) *Node {
	n.LinkRef = &ref
	return n
}

func (n *Node) SetImage(img Image) *Node {
	n.Image = &img
	return n
}

func (n *Node) SetMeta(key string, value any) *Node {
	if n.Meta == nil {
		n.Meta = make(map[string]any)
	}
	n.Meta[key] = value
	return n
}

func (n *Node) SetSearchable(on bool) *Node {
	n.AddToSearchResults = on
	return n
}

func (n *Node) SetInSiteMap(on bool) *Node {
	n.AddToSiteMap = on
	return n
}

// ResolveLink returns the hard link or resolves the LinkRef. A node with
// neither yields "".
func (n *Node) ResolveLink(ctx context.Context, r LinkResolver) (string, error) {
	if n.Link != "" {
		return n.Link, nil
	}
	if n.LinkRef == nil || r == nil {
		return "", nil
	}
	return r.ResolveLink(ctx, *n.LinkRef)
}

// Factory creates nodes stamped with a fresh random GUID.
type Factory struct {
	now func() time.Time
}

func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

// New returns a node with default priority 50, both visibility flags on
// and the current time as timestamp.
func (f *Factory) New(domain, site, lang string) *Node {
	return &Node{
		GUID:               uuid.New(),
		Domain:             domain,
		Site:               site,
		Language:           lang,
		Priority:           DefaultPriority,
		Timestamp:          f.now(),
		AddToSearchResults: true,
		AddToSiteMap:       true,
	}
}
