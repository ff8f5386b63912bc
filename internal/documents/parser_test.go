package documents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParserFor(t *testing.T) {
	tests := []struct {
		path    string
		want    Parser
		wantErr bool
	}{
		{"a.pdf", &PDFParser{}, false},
		{"a.PDF", &PDFParser{}, false},
		{"portal.html", &HTMLParser{}, false},
		{"notes.md", &TextParser{}, false},
		{"scan.png", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParserFor(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestHTMLParser(t *testing.T) {
	path := writeFile(t, "visit.html", `<html><head><style>p{}</style><script>var x=1</script></head>
<body>
  <nav>Home | Messages</nav>
  <h2>After Visit Summary</h2>
  <p>Take   <b>Lisinopril</b> 10mg once daily.</p>
  <ul><li>Follow up in 2 weeks</li></ul>
</body></html>`)

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "After Visit Summary\nTake Lisinopril 10mg once daily.\nFollow up in 2 weeks", text)
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "Messages")
}

func TestTextParser(t *testing.T) {
	path := writeFile(t, "rx.txt", "  Metformin 500mg twice daily\n")
	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "Metformin 500mg twice daily", text)
}
