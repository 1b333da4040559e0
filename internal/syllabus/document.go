package syllabus

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// ErrDocumentParse is returned when a document cannot be read.
// Use errors.Is to check: errors.Is(err, syllabus.ErrDocumentParse)
var ErrDocumentParse = errors.New("syllabus: document parse failed")

// Document is an uploaded syllabus file.
type Document struct {
	Name string
	Data []byte
}

// Source supplies the text of a document page by page.
type Source interface {
	Pages(doc Document) ([]string, error)
}

// ReadText calls src once and joins the page texts with newlines. Text is
// NFKC-normalised so PDF ligatures and full-width forms compare as ASCII.
func ReadText(src Source, doc Document) (string, error) {
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("%w: %s: empty document", ErrDocumentParse, doc.Name)
	}
	pages, err := src.Pages(doc)
	if err != nil {
		if errors.Is(err, ErrDocumentParse) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrDocumentParse, doc.Name, err)
	}
	return norm.NFKC.String(strings.Join(pages, "\n")), nil
}

// PDFSource reads PDF documents.
type PDFSource struct{}

func (PDFSource) Pages(doc Document) (pages []string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: %v", ErrDocumentParse, doc.Name, r)
		}
	}()

	if !IsPDF(doc.Data) {
		return nil, fmt.Errorf("%w: %s: missing %%PDF header", ErrDocumentParse, doc.Name)
	}

	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: pdf reader: %w", ErrDocumentParse, doc.Name, err)
	}

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(p))
	}
	return pages, nil
}

// pageText rebuilds the text lines of p from glyph positions. A change of
// baseline starts a new line and a horizontal gap wider than a third of
// the font size becomes a space, so text placed with Td or Tm keeps its
// layout.
func pageText(p pdf.Page) string {
	var (
		b    strings.Builder
		prev pdf.Text
		seen bool
	)
	for _, t := range p.Content().Text {
		if t.S == "\n" || t.S == "\r" || t.S == "" {
			continue
		}
		if seen {
			switch {
			case math.Abs(t.Y-prev.Y) > max(prev.FontSize/2, 1):
				b.WriteByte('\n')
			case t.X-(prev.X+prev.W) > prev.FontSize/3 && prev.S != " " && t.S != " ":
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
		prev, seen = t, true
	}
	return b.String()
}

// TextSource reads plain-text documents. Form feeds separate pages.
type TextSource struct{}

func (TextSource) Pages(doc Document) ([]string, error) {
	if bytes.IndexByte(doc.Data, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s: binary content", ErrDocumentParse, doc.Name)
	}
	return strings.Split(string(doc.Data), "\f"), nil
}

// AutoSource picks PDFSource or TextSource by sniffing the content.
type AutoSource struct{}

func (AutoSource) Pages(doc Document) ([]string, error) {
	if IsPDF(doc.Data) {
		return PDFSource{}.Pages(doc)
	}
	return TextSource{}.Pages(doc)
}

// IsPDF reports whether data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
