package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bullet", in: "● An excellent point!", want: "An excellent point!"},
		{name: "ascii bullet", in: "* first item", want: "first item"},
		{name: "dashes and whitespace", in: "ITEM 1A:     RISK-FACTORS", want: "ITEM 1A: RISK FACTORS"},
		{name: "en dash", in: "2019–2020", want: "2019 2020"},
		{name: "trailing punctuation", in: "The end of the line.,;:", want: "The end of the line"},
		{name: "non breaking space and newline", in: "one\u00a0two\nthree", want: "one two three"},
		{name: "mojibake quotes", in: "donâ\u0080\u0099t", want: "don't"},
		{name: "cp1252 quotes", in: "\u0093quoted\u0094", want: "“quoted”"},
		{name: "control characters", in: "abc\x00\x07def", want: "abc def"},
		{name: "blank", in: " \n\t ", want: ""},
		{name: "only punctuation", in: "...", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestCleanElements_DropsBlank(t *testing.T) {
	got := cleanElements([]string{"  Hello world.  ", "", "   ", "•", "-", "Second"})
	assert.Equal(t, []string{"Hello world", "Second"}, got)
}

func TestSplitParagraphs(t *testing.T) {
	got := splitParagraphs("first line\nstill first\r\n\r\nsecond\n \t\n\n\nthird\n")
	assert.Equal(t, []string{"first line\nstill first", "second", "third"}, got)
}
