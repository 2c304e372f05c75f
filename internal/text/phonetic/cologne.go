package phonetic

import "strings"

var umlauts = strings.NewReplacer("ä", "a", "ö", "o", "ü", "u", "ß", "s", "ph", "f")

// Cologne implements Kölner Phonetik, which groups German words by sound
// and produces digit-only keys of variable length.
type Cologne struct{}

func (Cologne) Name() string { return CologneName }

func (Cologne) Key(word string) string {
	w := fold(umlauts.Replace(strings.ToLower(word)))
	if w == "" {
		return ""
	}

	codes := make([]byte, 0, len(w)*2)
	for i := 0; i < len(w); i++ {
		var prev, next byte
		if i > 0 {
			prev = w[i-1]
		}
		if i+1 < len(w) {
			next = w[i+1]
		}
		codes = append(codes, cologneCode(w[i], prev, next, i == 0)...)
	}

	var b strings.Builder
	var last byte
	for i, c := range codes {
		if i > 0 && c == last {
			continue
		}
		last = c
		if c == '0' && i > 0 {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func cologneCode(c, prev, next byte, initial bool) []byte {
	switch c {
	case 'a', 'e', 'i', 'j', 'o', 'u', 'y':
		return []byte{'0'}
	case 'h':
		return nil
	case 'b':
		return []byte{'1'}
	case 'p':
		if next == 'h' {
			return []byte{'3'}
		}
		return []byte{'1'}
	case 'd', 't':
		if strings.IndexByte("csz", next) >= 0 && next != 0 {
			return []byte{'8'}
		}
		return []byte{'2'}
	case 'f', 'v', 'w':
		return []byte{'3'}
	case 'g', 'k', 'q':
		return []byte{'4'}
	case 'c':
		if initial {
			if next != 0 && strings.IndexByte("ahkloqrux", next) >= 0 {
				return []byte{'4'}
			}
			return []byte{'8'}
		}
		if prev == 's' || prev == 'z' {
			return []byte{'8'}
		}
		if next != 0 && strings.IndexByte("ahkoqux", next) >= 0 {
			return []byte{'4'}
		}
		return []byte{'8'}
	case 'x':
		if prev != 0 && strings.IndexByte("ckq", prev) >= 0 {
			return []byte{'8'}
		}
		return []byte{'4', '8'}
	case 'l':
		return []byte{'5'}
	case 'm', 'n':
		return []byte{'6'}
	case 'r':
		return []byte{'7'}
	case 's', 'z':
		return []byte{'8'}
	}
	return nil
}
