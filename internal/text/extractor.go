package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxWordLength is the rune limit of a stored word.
const MaxWordLength = 256

// Category is the field a source text came from.
type Category int

const (
	CategoryContent Category = iota
	CategoryKeywords
	CategoryTitle
	CategoryDescription
)

func (c Category) String() string {
	switch c {
	case CategoryKeywords:
		return "keywords"
	case CategoryTitle:
		return "title"
	case CategoryDescription:
		return "description"
	default:
		return "content"
	}
}

// Source is one text with the base priority its words inherit.
type Source struct {
	Text     string
	Priority float64
	Category Category
}

// WordData aggregates every sighting of one word across a node's texts.
type WordData struct {
	Word               string
	Occurrences        int
	Priority           float64
	OccurrencesInTexts int
	IsKeyword          bool
	IsStopWord         bool
	PhoneticKey        string
}

// WordMap is keyed by the lower-cased word.
type WordMap map[string]*WordData

// Keyer produces a phonetic key for a word.
type Keyer interface {
	Key(word string) string
}

// Extractor builds word maps using one language's stop words and phonetics.
type Extractor struct {
	stopWords StopWordList
	phonetic  Keyer
}

func NewExtractor(stopWords StopWordList, phonetic Keyer) *Extractor {
	if stopWords == nil {
		stopWords = WordSet{}
	}
	return &Extractor{stopWords: stopWords, phonetic: phonetic}
}

// Extract normalizes and tokenizes each source and merges the result.
// A word's priority grows by the source priority once per text containing
// it; stop words never accumulate priority.
func (e *Extractor) Extract(sources []Source) WordMap {
	words := make(WordMap)
	for _, src := range sources {
		counts := make(map[string]int)
		var order []string
		for _, w := range Words(Normalize(src.Text)) {
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
		for _, w := range order {
			wd, ok := words[w]
			if !ok {
				wd = &WordData{Word: w, IsStopWord: e.stopWords.IsStopWord(w)}
				if e.phonetic != nil {
					wd.PhoneticKey = e.phonetic.Key(w)
				}
				words[w] = wd
			}
			wd.Occurrences += counts[w]
			wd.OccurrencesInTexts++
			if src.Category == CategoryKeywords {
				wd.IsKeyword = true
			}
			if !wd.IsStopWord {
				wd.Priority += src.Priority
			}
		}
	}
	return words
}

// Words splits s on every rune that is neither a letter nor a digit,
// lower-cases the pieces and drops purely numeric ones.
func Words(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if isNumeric(f) {
			continue
		}
		out = append(out, Truncate(f, MaxWordLength))
	}
	return out
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
