package extract

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU decodes PDFs with pdfcpu and scans each page's content stream for
// text-showing operators. Glyph decoding is limited to the raw string bytes,
// which is enough for simple fonts.
type PDFCPU struct{}

func (PDFCPU) Name() string { return BackendPDFCPU }

func (PDFCPU) Pages(data []byte) ([][]TextItem, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	pages := make([][]TextItem, ctx.PageCount)
	for nr := 1; nr <= ctx.PageCount; nr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, nr)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", nr, err)
		}
		if r == nil {
			continue
		}
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("page %d: read content: %w", nr, err)
		}
		pages[nr-1] = ScanContentStream(raw)
	}
	return pages, nil
}
