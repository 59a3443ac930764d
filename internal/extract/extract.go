package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	mimePDF = "application/pdf"

	BackendLedongthuc = "ledongthuc"
	BackendPDFCPU     = "pdfcpu"
)

// TextItem is one positioned run of text as laid out by the PDF content stream.
// Y is the baseline coordinate in PDF user space.
type TextItem struct {
	X float64
	Y float64
	S string
}

// Backend decodes a PDF into the positioned text items of each physical page.
// The returned slice has one entry per page, in page order; a page without
// text yields an empty entry rather than being skipped.
type Backend interface {
	Name() string
	Pages(data []byte) ([][]TextItem, error)
}

// LineStrategy renders one page's items as plain text.
type LineStrategy func(items []TextItem) string

// Extractor produces raw per-page text from PDF bytes.
type Extractor struct {
	backend Backend
	lines   LineStrategy
}

// New constructs an Extractor. A nil strategy defaults to JoinLines.
func New(backend Backend, lines LineStrategy) *Extractor {
	if lines == nil {
		lines = JoinLines
	}
	return &Extractor{backend: backend, lines: lines}
}

// NewForBackend constructs an Extractor for a configured backend name.
func NewForBackend(name string) (*Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendLedongthuc:
		return New(Ledongthuc{}, JoinLines), nil
	case BackendPDFCPU:
		return New(PDFCPU{}, JoinLines), nil
	default:
		return nil, fmt.Errorf("unknown pdf backend: %s", name)
	}
}

// Backend reports the decoding backend name.
func (e *Extractor) Backend() string {
	return e.backend.Name()
}

// ExtractPages returns the raw text of every page, index 0 being page 1.
// A malformed document fails as a whole; no partial page list is returned.
func (e *Extractor) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty pdf data", e.backend.Name())
	}

	pages, err := decode(e.backend, data)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(pages))
	for i, items := range pages {
		out[i] = e.lines(items)
	}
	return out, nil
}

// decode shields callers from decoder panics, which both backends raise on
// some malformed inputs.
func decode(b Backend, data []byte) (pages [][]TextItem, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%s: malformed pdf: %v", b.Name(), rec)
		}
	}()
	pages, err = b.Pages(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return pages, nil
}

// IsPDFType reports whether a declared content type (or, for generic binary
// uploads, the file extension) identifies a PDF.
func IsPDFType(contentType, fileName string) bool {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch clean {
	case mimePDF, "application/x-pdf":
		return true
	case "", "application/octet-stream":
		return strings.EqualFold(filepath.Ext(fileName), ".pdf")
	default:
		return false
	}
}
