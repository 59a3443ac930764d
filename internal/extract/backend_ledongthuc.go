package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Ledongthuc decodes PDFs with github.com/ledongthuc/pdf. Glyphs are returned
// in content-stream order with their raw baseline, so a page that jumps back
// to an earlier baseline keeps its drawing order.
type Ledongthuc struct{}

func (Ledongthuc) Name() string { return BackendLedongthuc }

func (Ledongthuc) Pages(data []byte) ([][]TextItem, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := reader.NumPage()
	if n < 0 {
		return nil, fmt.Errorf("invalid page count %d", n)
	}

	pages := make([][]TextItem, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		texts := page.Content().Text
		items := make([]TextItem, 0, len(texts))
		for _, text := range texts {
			if text.S == "" {
				continue
			}
			items = append(items, TextItem{X: text.X, Y: text.Y, S: text.S})
		}
		pages[i-1] = items
	}
	return pages, nil
}
