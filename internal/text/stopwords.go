package text

import (
	"strings"
	"sync"
)

// DefaultLanguage is the fallback key for per-language lookups.
const DefaultLanguage = "default"

// StopWordList decides whether a lower-cased word carries no search value.
type StopWordList interface {
	IsStopWord(word string) bool
}

// WordSet is a StopWordList backed by a set.
type WordSet map[string]struct{}

func NewWordSet(words ...string) WordSet {
	s := make(WordSet, len(words))
	for _, w := range words {
		s[strings.ToLower(w)] = struct{}{}
	}
	return s
}

func (s WordSet) IsStopWord(word string) bool {
	_, ok := s[word]
	return ok
}

// Merge returns a set holding the words of both lists.
func (s WordSet) Merge(other WordSet) WordSet {
	out := make(WordSet, len(s)+len(other))
	for w := range s {
		out[w] = struct{}{}
	}
	for w := range other {
		out[w] = struct{}{}
	}
	return out
}

// LanguageKey reduces a language id such as "de_DE" or "en-GB" to its
// two-letter code.
func LanguageKey(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if len(lang) > 2 {
		lang = lang[:2]
	}
	return lang
}

// StopWordRegistry selects a StopWordList per two-letter language code,
// falling back to the "default" list.
type StopWordRegistry struct {
	mu    sync.RWMutex
	lists map[string]StopWordList
}

// NewStopWordRegistry returns a registry preloaded with English, German
// and a default (English) list.
func NewStopWordRegistry() *StopWordRegistry {
	en := NewWordSet(englishStopWords...)
	return &StopWordRegistry{
		lists: map[string]StopWordList{
			"en":            en,
			"de":            NewWordSet(germanStopWords...),
			DefaultLanguage: en,
		},
	}
}

// Register installs list for lang, replacing any previous one.
func (r *StopWordRegistry) Register(lang string, list StopWordList) {
	key := lang
	if key != DefaultLanguage {
		key = LanguageKey(lang)
	}
	r.mu.Lock()
	r.lists[key] = list
	r.mu.Unlock()
}

// For returns the list for lang. It never returns nil.
func (r *StopWordRegistry) For(lang string) StopWordList {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.lists[LanguageKey(lang)]; ok {
		return l
	}
	if l, ok := r.lists[DefaultLanguage]; ok {
		return l
	}
	return WordSet{}
}

var englishStopWords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing",
	"down", "during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "he", "her", "here", "hers", "him", "his", "how", "i", "if", "in",
	"into", "is", "it", "its", "itself", "just", "me", "more", "most", "my", "no",
	"nor", "not", "now", "of", "off", "on", "once", "only", "or", "other", "our",
	"ours", "out", "over", "own", "same", "she", "should", "so", "some", "such",
	"than", "that", "the", "their", "theirs", "them", "then", "there", "these",
	"they", "this", "those", "through", "to", "too", "under", "until", "up", "very",
	"was", "we", "were", "what", "when", "where", "which", "while", "who", "whom",
	"why", "will", "with", "would", "you", "your", "yours",
}

var germanStopWords = []string{
	"aber", "alle", "allem", "allen", "aller", "alles", "als", "also", "am", "an",
	"ander", "andere", "anderen", "auch", "auf", "aus", "bei", "bin", "bis", "bist",
	"da", "damit", "dann", "das", "dass", "daß", "dein", "deine", "dem", "den", "der",
	"des", "dich", "die", "dies", "diese", "dieser", "dieses", "dir", "doch", "dort",
	"du", "durch", "ein", "eine", "einem", "einen", "einer", "eines", "er", "es",
	"etwas", "euch", "euer", "für", "gegen", "hab", "habe", "haben", "hat", "hatte",
	"ich", "ihm", "ihn", "ihr", "ihre", "im", "in", "ist", "jede", "jeder", "jedes",
	"kein", "keine", "man", "mein", "meine", "mich", "mir", "mit", "muss", "nach",
	"nicht", "nichts", "noch", "nun", "nur", "ob", "oder", "ohne", "sehr", "sein",
	"seine", "sich", "sie", "sind", "so", "über", "um", "und", "uns", "unser",
	"unter", "vom", "von", "vor", "war", "waren", "was", "weil", "wenn", "wer",
	"wie", "wir", "wird", "wo", "zu", "zum", "zur",
}
