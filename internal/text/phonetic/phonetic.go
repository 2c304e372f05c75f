// Package phonetic provides sound-alike keys used for fuzzy word matching,
// selectable per language.
package phonetic

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Adithya-Monish-Kumar-K/sitesearch/pkg/errors"
)

const (
	SoundexName = "soundex"
	CologneName = "cologne"
	defaultLang = "default"
)

// Provider generates a phonetic key for a lower-cased word. An empty key
// means the word has no usable phonetic form.
type Provider interface {
	Name() string
	Key(word string) string
}

var ligatures = strings.NewReplacer("ß", "ss", "æ", "ae", "ø", "o", "œ", "oe", "đ", "d", "ł", "l")

// fold reduces word to lower-case ASCII letters, dropping diacritics and
// everything that is not a-z afterwards.
func fold(word string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, ligatures.Replace(strings.ToLower(word)))
	if err != nil {
		folded = word
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Registry resolves providers by name and by language.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	languages map[string]string
}

// NewRegistry knows soundex and cologne, using cologne for German and
// soundex everywhere else.
func NewRegistry() *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		languages: map[string]string{defaultLang: SoundexName, "de": CologneName},
	}
	r.Register(Soundex{})
	r.Register(Cologne{})
	return r
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	r.providers[p.Name()] = p
	r.mu.Unlock()
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, apperrors.Configf("unknown phonetic provider %q", name)
	}
	return p, nil
}

// Assign routes a two-letter language code (or "default") to a provider.
func (r *Registry) Assign(lang, name string) error {
	if _, err := r.Lookup(name); err != nil {
		return err
	}
	r.mu.Lock()
	r.languages[langKey(lang)] = name
	r.mu.Unlock()
	return nil
}

// For returns the provider for lang, falling back to the default.
func (r *Registry) For(lang string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.languages[langKey(lang)]
	if !ok {
		name = r.languages[defaultLang]
	}
	if p, ok := r.providers[name]; ok {
		return p
	}
	return Soundex{}
}

func langKey(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == defaultLang {
		return lang
	}
	if len(lang) > 2 {
		lang = lang[:2]
	}
	return lang
}
