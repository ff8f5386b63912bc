package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/signintech/gopdf"
)

const fontName = "body"

// DefaultFontPaths are tried when no font is configured
var DefaultFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

const (
	pageBottom = 800.0
	lineWidth  = 500.0
)

// FindFont returns the configured font if set, otherwise the first default that exists
func FindFont(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("report font %s: %w", configured, err)
		}
		return configured, nil
	}
	for _, p := range DefaultFontPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no TTF font found; set report.font_path in the config")
}

// WritePDF renders doc as an A4 PDF into w
func WritePDF(w io.Writer, doc Document, fontPath string) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont(fontName, fontPath); err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}

	if err := pdf.SetFont(fontName, "", 20); err != nil {
		return err
	}
	pdf.Cell(nil, doc.Title)
	pdf.Br(28)

	if err := pdf.SetFont(fontName, "", 10); err != nil {
		return err
	}
	meta := "Generated " + doc.Generated.Format("Jan 2, 2006 15:04")
	if doc.Subject != "" {
		meta += " for " + doc.Subject
	}
	pdf.Cell(nil, meta)
	pdf.Br(24)

	for _, section := range doc.Sections {
		ensureSpace(&pdf, 40)
		if err := pdf.SetFont(fontName, "", 14); err != nil {
			return err
		}
		pdf.Cell(nil, section.Title)
		pdf.Br(18)

		if err := pdf.SetFont(fontName, "", 11); err != nil {
			return err
		}
		for _, line := range section.Lines {
			wrapped, err := pdf.SplitText("- "+line, lineWidth)
			if err != nil {
				wrapped = []string{"- " + line}
			}
			for _, l := range wrapped {
				ensureSpace(&pdf, 14)
				pdf.Cell(nil, l)
				pdf.Br(14)
			}
		}
		pdf.Br(10)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteFile renders doc to path
func WriteFile(path string, doc Document, fontPath string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WritePDF(f, doc, fontPath); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ensureSpace(pdf *gopdf.GoPdf, need float64) {
	if pdf.GetY()+need > pageBottom {
		pdf.AddPage()
	}
}
