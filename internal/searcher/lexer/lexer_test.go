package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type labels map[string]string

func (l labels) TagForInput(label string) (string, bool) {
	id, ok := l[strings.ToLower(label)]
	return id, ok
}

var tags = labels{"news": "news", "seite": "page"}

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		required     [][]string
		denied       [][]string
		requiredTags []string
		deniedTags   []string
		lastWord     string
		trailing     bool
	}{
		{
			name:     "plain words",
			raw:      "Berlin Guide",
			required: [][]string{{"berlin"}, {"guide"}},
			lastWord: "guide",
		},
		{
			name:     "phrase and denied word",
			raw:      `"New York" -paris`,
			required: [][]string{{"new", "york"}},
			denied:   [][]string{{"paris"}},
		},
		{
			name:         "tags case insensitive",
			raw:          "  berlin @NEWS -@Seite ",
			required:     [][]string{{"berlin"}},
			requiredTags: []string{"news"},
			deniedTags:   []string{"page"},
			trailing:     true,
		},
		{
			name:     "unknown tag kept as word",
			raw:      "@blog berlin",
			required: [][]string{{"blog"}, {"berlin"}},
			lastWord: "berlin",
		},
		{
			name:     "denied phrase and duplicates",
			raw:      `berlin berlin -"east side" -`,
			required: [][]string{{"berlin"}},
			denied:   [][]string{{"east", "side"}},
		},
		{
			name:     "unterminated quote",
			raw:      `"travel gui`,
			required: [][]string{{"travel", "gui"}},
			lastWord: "gui",
		},
		{
			name:     "hyphenated partial",
			raw:      "north-ber",
			required: [][]string{{"north"}, {"ber"}},
			lastWord: "ber",
		},
		{
			name: "empty",
			raw:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.raw, tags)
			assert.Equal(t, tt.raw, p.Raw)
			assert.Equal(t, tt.required, p.Required)
			assert.Equal(t, tt.denied, p.Denied)
			assert.Equal(t, tt.requiredTags, p.RequiredTags)
			assert.Equal(t, tt.deniedTags, p.DeniedTags)
			assert.Equal(t, tt.lastWord, p.LastWord)
			assert.Equal(t, tt.trailing, p.Trailing)
		})
	}
}

func TestParseWithoutTranslator(t *testing.T) {
	p := Parse("@news", nil)
	assert.Equal(t, [][]string{{"news"}}, p.Required)
	assert.Empty(t, p.RequiredTags)
	assert.Equal(t, "", p.LastWord)
}

func TestParsedInputViews(t *testing.T) {
	p := Parse(`berlin "travel guide" -paris`, tags)
	assert.Equal(t, []string{"berlin"}, p.Words())
	assert.Equal(t, []string{"travel guide"}, p.Phrases())
	assert.Equal(t, []string{"berlin", "travel guide"}, p.Terms())
	assert.Equal(t, []string{"paris"}, p.DeniedTerms())
	assert.False(t, p.Empty())
	assert.True(t, Parse("-paris", tags).Empty())
	assert.False(t, Parse("@news", tags).Empty())
}

func TestLastWord(t *testing.T) {
	tests := map[string]string{
		"berl":      "berl",
		"Berlin Gu": "gu",
		"berlin ":   "",
		"berlin,":   "",
		"-ber":      "",
		"@ne":       "",
		"x \"Ber":   "ber",
	}
	for raw, want := range tests {
		got, _ := lastWord(raw)
		assert.Equal(t, want, got, raw)
	}
}
