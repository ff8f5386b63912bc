package chat

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Span is a run of text with inline emphasis. Spans never carry markup.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

type delimiter struct {
	token  string
	bold   bool
	italic bool
}

// longest first so *** is not read as ** followed by *
var delimiters = []delimiter{
	{token: "***", bold: true, italic: true},
	{token: "**", bold: true},
	{token: "*", italic: true},
}

// ParseMarkdown turns the supported subset (***bold italic***, **bold**,
// *italic*) into spans. Italic may nest inside bold. Emphasis never crosses a
// line break and unmatched asterisks are kept as text. Input is sanitized
// first.
func ParseMarkdown(text string) []Span {
	return parseSpans(Sanitize(text), false, false)
}

// parseSpans parses text that is already inside the given emphasis. Only
// delimiters that add emphasis are recognised there.
func parseSpans(text string, bold, italic bool) []Span {
	var (
		spans []Span
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			spans = append(spans, Span{Text: plain.String(), Bold: bold, Italic: italic})
			plain.Reset()
		}
	}

	for i := 0; i < len(text); {
		if text[i] != '*' {
			plain.WriteByte(text[i])
			i++
			continue
		}

		matched := false
		for _, d := range delimiters {
			if (d.bold && bold) || (d.italic && italic) {
				continue
			}
			if !strings.HasPrefix(text[i:], d.token) {
				continue
			}
			rest := text[i+len(d.token):]
			end := strings.Index(rest, d.token)
			if end <= 0 || strings.Contains(rest[:end], "\n") {
				continue
			}
			flush()
			spans = append(spans, parseSpans(rest[:end], bold || d.bold, italic || d.italic)...)
			i += 2*len(d.token) + end
			matched = true
			break
		}
		if !matched {
			plain.WriteByte('*')
			i++
		}
	}
	flush()
	return spans
}

// PlainText joins spans without emphasis
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Sanitize removes terminal escape sequences (CSI, OSC, DCS, APC, PM, SOS)
// and control characters other than newline and tab, so assistant and server
// text cannot drive the terminal.
func Sanitize(text string) string {
	text = ansi.Strip(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		case r >= 0x80 && r < 0xa0:
			return -1
		default:
			return r
		}
	}, text)
}
