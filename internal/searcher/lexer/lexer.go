// Package lexer turns raw query input into required and denied word groups,
// tag filters and the trailing partial word used by autocomplete.
//
// Syntax:
//
//	berlin guide      two required words
//	"new york"        one required phrase
//	-paris            denied word (also -"phrase")
//	@news             required tag, by input label or id
//	-@news            denied tag
//
// Tag labels that do not translate are kept as plain words.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
)

// TagTranslator maps a case-insensitive input label to a canonical tag.
type TagTranslator interface {
	TagForInput(label string) (string, bool)
}

// ParsedInput is the lexed query. It is never modified after Parse.
type ParsedInput struct {
	Raw          string
	Required     [][]string
	Denied       [][]string
	RequiredTags []string
	DeniedTags   []string
	// LastWord is the trailing partial word, empty when the input ends in
	// whitespace or punctuation.
	LastWord string
	// Trailing is set when the input ends in whitespace.
	Trailing bool
}

// Words returns the single-word required groups.
func (p ParsedInput) Words() []string {
	var out []string
	for _, g := range p.Required {
		if len(g) == 1 {
			out = append(out, g[0])
		}
	}
	return out
}

// Phrases returns the multi-word required groups joined by spaces.
func (p ParsedInput) Phrases() []string {
	var out []string
	for _, g := range p.Required {
		if len(g) > 1 {
			out = append(out, strings.Join(g, " "))
		}
	}
	return out
}

// Terms returns every required group joined by spaces.
func (p ParsedInput) Terms() []string {
	return joinGroups(p.Required)
}

// DeniedTerms returns every denied group joined by spaces.
func (p ParsedInput) DeniedTerms() []string {
	return joinGroups(p.Denied)
}

// Empty reports whether nothing is required.
func (p ParsedInput) Empty() bool {
	return len(p.Required) == 0 && len(p.RequiredTags) == 0
}

func joinGroups(groups [][]string) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = strings.Join(g, " ")
	}
	return out
}

type token struct {
	text    string
	quoted  bool
	negated bool
}

// Parse lexes raw. tags may be nil, in which case @labels are plain words.
func Parse(raw string, tags TagTranslator) ParsedInput {
	p := ParsedInput{Raw: raw}
	p.LastWord, p.Trailing = lastWord(raw)

	seen := make(map[string]bool)
	addGroup := func(negated bool, words []string) {
		if len(words) == 0 {
			return
		}
		key := strings.Join(words, " ")
		if negated {
			key = "-" + key
		}
		if seen[key] {
			return
		}
		seen[key] = true
		if negated {
			p.Denied = append(p.Denied, words)
		} else {
			p.Required = append(p.Required, words)
		}
	}

	for _, tok := range split(raw) {
		switch {
		case tok.quoted:
			addGroup(tok.negated, text.Words(tok.text))
		case strings.HasPrefix(tok.text, "@") && len(tok.text) > 1:
			label := tok.text[1:]
			if tags != nil {
				if id, ok := tags.TagForInput(label); ok {
					if tok.negated {
						p.DeniedTags = appendUnique(p.DeniedTags, id)
					} else {
						p.RequiredTags = appendUnique(p.RequiredTags, id)
					}
					continue
				}
			}
			for _, w := range text.Words(label) {
				addGroup(tok.negated, []string{w})
			}
		default:
			for _, w := range text.Words(tok.text) {
				addGroup(tok.negated, []string{w})
			}
		}
	}
	return p
}

func split(raw string) []token {
	var out []token
	rs := []rune(raw)
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}
		var tok token
		if rs[i] == '-' {
			tok.negated = true
			i++
			if i >= len(rs) || unicode.IsSpace(rs[i]) {
				continue
			}
		}
		if rs[i] == '"' {
			tok.quoted = true
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				j++
			}
			tok.text = string(rs[i+1 : j])
			i = j + 1
		} else {
			j := i
			for j < len(rs) && !unicode.IsSpace(rs[j]) {
				j++
			}
			tok.text = string(rs[i:j])
			i = j
		}
		out = append(out, tok)
	}
	return out
}

func lastWord(raw string) (string, bool) {
	r, _ := utf8.DecodeLastRuneInString(raw)
	if raw == "" || unicode.IsSpace(r) {
		return "", raw != ""
	}
	frag := raw[strings.LastIndexFunc(raw, unicode.IsSpace)+1:]
	if strings.HasPrefix(frag, "-") || strings.HasPrefix(frag, "@") {
		return "", false
	}
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return "", false
	}
	i := strings.LastIndexFunc(frag, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.ToLower(frag[i+1:]), false
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
