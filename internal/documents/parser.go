package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gen2brain/go-fitz"
)

// ParsedDocument contains text extracted from a local file
type ParsedDocument struct {
	Text  string
	Pages int
}

// Parser interface for document parsing
type Parser interface {
	Parse(filePath string) (*ParsedDocument, error)
}

// PDFParser parses PDF files
type PDFParser struct{}

// Parse extracts text from every page of a PDF file
func (p *PDFParser) Parse(filePath string) (*ParsedDocument, error) {
	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var textParts []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			textParts = append(textParts, text)
		}
	}

	return &ParsedDocument{
		Text:  strings.Join(textParts, "\n\n"),
		Pages: doc.NumPage(),
	}, nil
}

// HTMLParser parses saved patient-portal pages
type HTMLParser struct{}

// Parse extracts the visible body text of an HTML file
func (p *HTMLParser) Parse(filePath string) (*ParsedDocument, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open HTML: %w", err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var blocks []string
	doc.Find("h1, h2, h3, h4, p, li, td, th, pre").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li, td").Length() > 0 {
			return
		}
		if text := collapseSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		if text := collapseSpace(doc.Find("body").Text()); text != "" {
			blocks = append(blocks, text)
		}
	}

	return &ParsedDocument{Text: strings.Join(blocks, "\n"), Pages: 1}, nil
}

// TextParser reads plain text and markdown files as-is
type TextParser struct{}

// Parse returns the file contents
func (p *TextParser) Parse(filePath string) (*ParsedDocument, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	return &ParsedDocument{Text: string(data), Pages: 1}, nil
}

// ParserFor picks a parser from the file extension
func ParserFor(filePath string) (Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".pdf":
		return &PDFParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".txt", ".md", ".text":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file type for local extraction: %s", ext)
	}
}

// ExtractText extracts the text of filePath with the matching parser
func ExtractText(filePath string) (string, error) {
	parser, err := ParserFor(filePath)
	if err != nil {
		return "", err
	}
	parsed, err := parser.Parse(filePath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(parsed.Text), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
