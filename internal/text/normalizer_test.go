package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "  hello   world  ", "hello world"},
		{"tags", "<p>Visit <b>Berlin</b></p>", "Visit Berlin"},
		{"br variants", "one<br>two<BR/>three<br />four", "one two three four"},
		{"entities", "Fish &amp; Chips&nbsp;today", "Fish & Chips today"},
		{"shy entity", "Donau&shy;dampf", "Donaudampf"},
		{"soft hyphen before break", "Donau\u00ad\n dampf", "Donaudampf"},
		{"escaped markup", "&lt;b&gt;bold&lt;/b&gt;", "bold"},
		{"deeply escaped markup", "&" + strings.Repeat("amp;", 400) + "lt;b&gt;x", "x"},
		{"script dropped", "a<script>var x = '<p>';</script>b", "a b"},
		{"newlines and tabs", "a\n\n\tb\r\nc", "a b c"},
		{"nfc", "Café", "Café"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"&amp;lt;p&amp;gt;nested&amp;lt;/p&amp;gt;",
		"<div>Berlin <br/> Travel&nbsp;&nbsp;Guide</div>",
		"broken \xe2\x82 utf8 \xff here",
		"Soft\u00ad hyphen &shy; entity",
		"  \t ",
		"a < b > c",
		"&" + strings.Repeat("amp;", 400) + "lt;b",
		strings.Repeat("&amp;", 50) + "lt;p&amp;gt;deep&amp;lt;/p&amp;gt;",
		"é́",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
		assert.True(t, utf8.ValidString(once))
	}
}

func TestRepairUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid untouched", "grüße", "grüße"},
		{"truncated two byte", "a\xc3", "a�"},
		{"truncated three byte", "a\xe2\x82b", "a�b"},
		{"truncated four byte", "\xf0\x9f\x98x", "�x"},
		{"stray continuation", "a\x80b", "a�b"},
		{"invalid leader", "\xffok", "�ok"},
		{"overlong", "\xc0\xafz", "��z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepairUTF8(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestRepairUTF8NeverPanics(t *testing.T) {
	for b := 0; b < 256; b++ {
		for _, tail := range []string{"", "\x80", "\x80\x80", "\xbf\xbf\xbf", "z"} {
			in := string([]byte{byte(b)}) + tail
			assert.NotPanics(t, func() {
				assert.True(t, utf8.ValidString(RepairUTF8(in)))
			})
		}
	}
}

func BenchmarkNormalize(b *testing.B) {
	doc := "<article><h1>Berlin&nbsp;Travel Guide</h1><p>Visit <a href='/x'>Berlin</a> for amazing sights.<br/>" +
		"Museums, parks &amp; nightlife.</p></article>"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Normalize(doc)
	}
}
