package text

import (
	"github.com/xrash/smetrics"
)

// Similarity is the normalized Levenshtein similarity of a and b in [0, 1],
// counted in runes. Two empty strings are identical.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ca, cb, ok := runeCodes(a, b)
	if !ok {
		ca, cb = a, b
	}
	longest := max(len(ca), len(cb))
	d := smetrics.WagnerFischer(ca, cb, 1, 1, 1)
	return 1 - float64(d)/float64(longest)
}

// runeCodes recodes a and b with one byte per distinct rune so a byte-wise
// edit distance counts runes. ok is false past 256 distinct runes.
func runeCodes(a, b string) (string, string, bool) {
	codes := make(map[rune]byte)
	encode := func(s string) (string, bool) {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			c, seen := codes[r]
			if !seen {
				if len(codes) == 256 {
					return "", false
				}
				c = byte(len(codes))
				codes[r] = c
			}
			out = append(out, c)
		}
		return string(out), true
	}
	ca, ok := encode(a)
	if !ok {
		return "", "", false
	}
	cb, ok := encode(b)
	return ca, cb, ok
}

// KeySimilarity compares two words by their phonetic keys. Words without a
// key never count as similar.
func KeySimilarity(k Keyer, a, b string) float64 {
	if k == nil {
		return 0
	}
	ka, kb := k.Key(a), k.Key(b)
	if ka == "" || kb == "" {
		return 0
	}
	return Similarity(ka, kb)
}
