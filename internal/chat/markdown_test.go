package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Span
	}{
		{"plain", "take with food", []Span{{Text: "take with food"}}},
		{"bold", "take **twice** daily", []Span{{Text: "take "}, {Text: "twice", Bold: true}, {Text: " daily"}}},
		{"italic", "*note*", []Span{{Text: "note", Italic: true}}},
		{"bold italic", "***urgent***!", []Span{{Text: "urgent", Bold: true, Italic: true}, {Text: "!"}}},
		{"unmatched", "2 * 3", []Span{{Text: "2 * 3"}}},
		{"no crossing lines", "* one\n* two", []Span{{Text: "* one\n* two"}}},
		{"empty emphasis", "****", []Span{{Text: "****"}}},
		{"italic inside bold", "**Take *with* food**", []Span{
			{Text: "Take ", Bold: true},
			{Text: "with", Bold: true, Italic: true},
			{Text: " food", Bold: true},
		}},
		{"italic before bold", "*a* and **b**", []Span{{Text: "a", Italic: true}, {Text: " and "}, {Text: "b", Bold: true}}},
		{"markup is text", "<b>hi</b> **x**", []Span{{Text: "<b>hi</b> "}, {Text: "x", Bold: true}}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMarkdown(tt.in))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"csi color", "\x1b[31mred\x1b[0m", "red"},
		{"osc title", "\x1b]0;pwned\x07ok", "ok"},
		{"dcs request", "\x1bP1$r0m\x1b\\ok", "ok"},
		{"apc payload", "\x1b_Gf=100;AAAA\x1b\\done", "done"},
		{"pm and sos", "\x1b^private\x1b\\a\x1bXstart\x1b\\b", "ab"},
		{"clipboard write", "Take with food\x1b]52;c;ZXZpbA==\x07\x1b[2J", "Take with food"},
		{"control chars", "a\x00b\x08c", "abc"},
		{"keeps newlines and tabs", "a\r\n\tb", "a\n\tb"},
		{"unicode", "café ✓", "café ✓"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "take twice daily", PlainText(ParseMarkdown("take **twice** daily")))
}
