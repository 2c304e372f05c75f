// Package text turns raw, possibly HTML-laden content into normalized plain
// text and aggregates it into scored word maps for the index.
package text

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	scriptTag  = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	comments   = regexp.MustCompile(`(?s)<!--.*?-->`)
	brTags     = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags    = regexp.MustCompile(`<[^>]*>`)
	softBreaks = regexp.MustCompile(`\x{00AD}\s*`)
)

var entityReplacer = strings.NewReplacer(
	"&shy;", "",
	"&nbsp;", " ",
)

// Normalize strips markup and entities from s, repairs malformed UTF-8 and
// collapses whitespace. The result is always valid UTF-8 and
// Normalize(Normalize(s)) == Normalize(s).
//
// Decoding can surface new markup or entities ("&amp;lt;b&amp;gt;"), so
// passes repeat until one changes nothing. A changing pass either lowers
// the number of '&' bytes or shortens the text, which bounds the loop.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = RepairUTF8(s)
	for {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	s = scriptTag.ReplaceAllString(s, " ")
	s = comments.ReplaceAllString(s, " ")
	s = brTags.ReplaceAllString(s, " ")
	s = allTags.ReplaceAllString(s, "")
	s = entityReplacer.Replace(s)
	s = html.UnescapeString(s)
	s = softBreaks.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFC.String(s)
}

// RepairUTF8 replaces every invalid or truncated multi-byte sequence in s
// with U+FFFD. A bad leader swallows the continuation bytes it claimed.
func RepairUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != utf8.RuneError || size > 1 {
			b.WriteString(s[i : i+size])
			i += size
			continue
		}
		b.WriteRune(utf8.RuneError)
		i++
		want := sequenceLength(s[i-1]) - 1
		for ; want > 0 && i < len(s) && isContinuation(s[i]); want-- {
			i++
		}
	}
	return b.String()
}

// sequenceLength classifies a leading byte. Stray continuation bytes and
// bytes that can never start a sequence count as length 1.
func sequenceLength(c byte) int {
	switch {
	case c >= 0xC2 && c <= 0xDF:
		return 2
	case c >= 0xE0 && c <= 0xEF:
		return 3
	case c >= 0xF0 && c <= 0xF4:
		return 4
	default:
		return 1
	}
}

func isContinuation(c byte) bool {
	return c&0xC0 == 0x80
}
