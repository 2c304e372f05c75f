package phonetic

import "github.com/xrash/smetrics"

// Soundex is classic American Soundex over the ASCII-folded word.
type Soundex struct{}

func (Soundex) Name() string { return SoundexName }

func (Soundex) Key(word string) string {
	w := fold(word)
	if w == "" {
		return ""
	}
	return smetrics.Soundex(w)
}
