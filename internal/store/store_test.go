package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchWord(t *testing.T) {
	tests := []struct {
		name     string
		term     WordTerm
		row      string
		phonetic string
		kind     MatchKind
		ok       bool
	}{
		{"exact", WordTerm{Word: "berlin"}, "berlin", "", MatchExact, true},
		{"prefix", WordTerm{Word: "berl"}, "berlin", "", MatchPrefix, true},
		{"phonetic", WordTerm{Word: "berlyn", Phonetic: "B645"}, "berlin", "B645", MatchPhonetic, true},
		{"empty phonetic never matches", WordTerm{Word: "жук"}, "дом", "", 0, false},
		{"short substring ignored", WordTerm{Word: "erli"}, "berlin", "", 0, false},
		{"long substring", WordTerm{Word: "travel"}, "timetraveller", "", MatchSubstring, true},
		{"no match", WordTerm{Word: "paris"}, "berlin", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, ok := MatchWord(tt.term, tt.row, tt.phonetic)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.kind, kind)
			}
		})
	}
}

func TestMatchTermsOnePerTerm(t *testing.T) {
	row := WordRow{Word: "berlin", Phonetic: "B645"}
	got := MatchTerms([]WordTerm{{Word: "berlin"}, {Word: "ber"}, {Word: "rome"}}, row)
	assert.Len(t, got, 2)
	assert.Equal(t, MatchExact, got[0].Kind)
	assert.Equal(t, MatchPrefix, got[1].Kind)
}

func TestTagAllowed(t *testing.T) {
	assert.True(t, TagAllowed("page", nil, nil))
	assert.True(t, TagAllowed("page", []string{"news", "page"}, nil))
	assert.False(t, TagAllowed("page", []string{"news"}, nil))
	assert.False(t, TagAllowed("page", nil, []string{"page"}))
}

func TestMatchesPhrase(t *testing.T) {
	n := NodeRow{Title: "Berlin Travel Guide", Content: "Visit Berlin"}
	assert.True(t, MatchesPhrase(n, "travel guide"))
	assert.False(t, MatchesPhrase(n, "paris"))
	assert.False(t, MatchesPhrase(n, ""))
}
