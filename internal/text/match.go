package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a word of a text with its byte range.
type Token struct {
	Word  string
	Start int
	End   int
}

// Tokens splits s like Words but keeps each token's position and original
// spelling. Numeric tokens are kept.
func Tokens(s string) []Token {
	var out []Token
	start := -1
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, Token{Word: s[start:i], Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, Token{Word: s[start:], Start: start, End: len(s)})
	}
	return out
}

// WordMatches returns the byte ranges of case-insensitive occurrences of
// word in s that are not part of a longer word.
func WordMatches(s, word string) [][]int {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(word))
	var out [][]int
	for _, m := range re.FindAllStringIndex(s, -1) {
		if boundaryBefore(s, m[0]) && boundaryAfter(s, m[1]) {
			out = append(out, m)
		}
	}
	return out
}

// ContainsWord reports whether word occurs in s as a whole word.
func ContainsWord(s, word string) bool {
	return len(WordMatches(s, word)) > 0
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
