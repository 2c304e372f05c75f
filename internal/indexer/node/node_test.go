package node

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeResolver map[string]string

func (r routeResolver) ResolveLink(_ context.Context, ref LinkRef) (string, error) {
	url, ok := r[ref.Kind+"/"+ref.ID]
	if !ok {
		return "", errors.New("no route")
	}
	return url, nil
}

func TestFactoryDefaults(t *testing.T) {
	f := NewFactory()
	a := f.New("docs", "main", "en")
	b := f.New("docs", "main", "en")

	assert.NotEqual(t, a.GUID, b.GUID)
	assert.Equal(t, DefaultPriority, a.Priority)
	assert.True(t, a.AddToSearchResults)
	assert.True(t, a.AddToSiteMap)
	assert.False(t, a.Timestamp.IsZero())
}

func TestPriorityClamping(t *testing.T) {
	n := NewFactory().New("d", "s", "en")
	assert.Equal(t, 100.0, n.SetPriority(250).Priority)
	assert.Equal(t, 0.0, n.SetPriority(-3).Priority)
	assert.False(t, n.IgnoreGuardRails)

	n.SetUnguardedPriority(250)
	assert.Equal(t, 250.0, n.Priority)
	assert.True(t, n.IgnoreGuardRails)
}

func TestResolveLink(t *testing.T) {
	ctx := context.Background()
	r := routeResolver{"page/7": "https://example.org/about"}
	n := NewFactory().New("d", "s", "en")

	url, err := n.ResolveLink(ctx, r)
	require.NoError(t, err)
	assert.Empty(t, url)

	n.SetLinkRef(LinkRef{Kind: "page", ID: "7"})
	url, err = n.ResolveLink(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/about", url)

	n.SetLink("https://example.org/override")
	url, err = n.ResolveLink(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/override", url)
}

func TestImageSourceRoundTrip(t *testing.T) {
	img := Image{Kind: ImageFile, ID: "42"}
	assert.Equal(t, "file:42", img.Source())

	back, err := ParseImageSource("file:42")
	require.NoError(t, err)
	assert.Equal(t, img, back)

	_, err = ParseImageSource("blob:1")
	assert.Error(t, err)
	_, err = ParseImageSource("file:")
	assert.Error(t, err)
	assert.Empty(t, Image{}.Source())
}

func TestURLImages(t *testing.T) {
	r := URLImages{BaseURL: "https://cdn.example.org/files/"}
	url, err := r.ResolveImage(context.Background(), Image{Kind: ImageFile, ID: "7"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/files/7", url)

	url, err = r.ResolveImage(context.Background(), Image{Kind: ImageRef, ID: "https://img.example.org/a.png"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.org/a.png", url)

	_, err = r.ResolveImage(context.Background(), Image{Kind: "blob", ID: "1"})
	assert.Error(t, err)
}
