// Package extracttest builds small, valid PDF documents for tests.
package extracttest

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	topY       = 720
	lineHeight = 14
)

// BuildPDF returns a PDF with one page per argument. Each string of a page is
// drawn on its own line, top to bottom, in Helvetica 12pt. Passing no pages
// produces a document with an empty page tree.
func BuildPDF(pages ...[]string) []byte {
	streams := make([]string, len(pages))
	for i, lines := range pages {
		streams[i] = contentStream(lines)
	}
	return BuildContent(streams...)
}

// BuildContent returns a PDF with one page per raw content stream. Font /F1
// (Helvetica) is available to every page.
func BuildContent(pages ...string) []byte {
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 page tree, 3 font, then a page and its content per page.
	total := 3 + 2*len(pages)
	offsets := make([]int, total+1)

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), len(pages))

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>\nendobj\n")

	for i, stream := range pages {
		offsets[pageObj(i)] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n",
			pageObj(i), pageObj(i)+1)

		offsets[pageObj(i)+1] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", pageObj(i)+1, len(stream), stream)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", total+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)

	return []byte(b.String())
}

// Pages is shorthand for single-line pages.
func Pages(texts ...string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = []string{t}
	}
	return out
}

func pageObj(i int) int {
	return 4 + 2*i
}

func contentStream(lines []string) string {
	fragments := make([]string, len(lines))
	for i, line := range lines {
		fragments[i] = Show(72, float64(topY-i*lineHeight), line)
	}
	return Text(fragments...)
}

// Show returns a content-stream fragment drawing text at (x, y).
func Show(x, y float64, text string) string {
	return fmt.Sprintf("1 0 0 1 %s %s Tm\n(%s) Tj\n", num(x), num(y), escape(text))
}

// Text wraps fragments in a BT/ET block using /F1 at 12pt.
func Text(fragments ...string) string {
	return "BT\n/F1 12 Tf\n" + strings.Join(fragments, "") + "ET"
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	return strings.ReplaceAll(s, ")", `\)`)
}
