// Package extracttest assembles small PDF documents for tests.
package extracttest

import (
	"bytes"
	"fmt"
	"strings"
)

// Page is the raw content stream of one page.
type Page struct {
	Content string
	// MediaBox overrides the box inherited from the page tree when set.
	MediaBox []float64
}

// Text returns content that shows s at (x, y) in 12pt Helvetica.
func Text(x, y float64, s string) string {
	return fmt.Sprintf("BT /F1 12 Tf %g %g Td (%s) Tj ET\n", x, y, escape(s))
}

// Grid returns content drawing a ruled table whose top-left corner is at
// (x, top), with one text run per non-empty cell.
func Grid(x, top, colWidth, rowHeight float64, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	cols := len(rows[0])
	width := colWidth * float64(cols)
	height := rowHeight * float64(len(rows))

	var b strings.Builder
	for r := 0; r <= len(rows); r++ {
		y := top - rowHeight*float64(r)
		fmt.Fprintf(&b, "%g %g %g 0.5 re f\n", x, y, width)
	}
	for c := 0; c <= cols; c++ {
		cx := x + colWidth*float64(c)
		fmt.Fprintf(&b, "%g %g 0.5 %g re f\n", cx, top-height, height)
	}
	for r, row := range rows {
		baseline := top - rowHeight*float64(r+1) + rowHeight/3
		for c, cell := range row {
			if cell == "" {
				continue
			}
			fmt.Fprintf(&b, "BT /F1 10 Tf %g %g Td (%s) Tj ET\n", x+colWidth*float64(c)+3, baseline, escape(cell))
		}
	}
	return b.String()
}

// Build returns a well-formed PDF with the given pages. The page tree
// carries an A4 MediaBox that pages inherit unless they set their own.
func Build(pages ...Page) []byte {
	var buf bytes.Buffer
	var offsets []int

	object := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1 catalog, 2 page tree, 3 font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	object("<< /Type /Catalog /Pages 2 0 R >>")
	object(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 595 842] >>",
		strings.Join(kids, " "), len(pages)))
	object("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		box := ""
		if len(p.MediaBox) == 4 {
			box = fmt.Sprintf(" /MediaBox [%g %g %g %g]", p.MediaBox[0], p.MediaBox[1], p.MediaBox[2], p.MediaBox[3])
		}
		object(fmt.Sprintf("<< /Type /Page /Parent 2 0 R%s /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			box, 5+2*i))
		object(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.Content), p.Content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
