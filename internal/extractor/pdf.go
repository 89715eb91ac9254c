package extractor

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns each page's text top to bottom, one line per baseline.
// Pages are separated by a blank line so the chunker sees them as paragraphs.
func extractPDF(_ context.Context, data []byte, _ string) (text string, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if t := pageText(page.Content().Text); t != "" {
			pages = append(pages, t)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// pageText rebuilds lines from positioned glyphs in content-stream order.
// Learning: the reader reports one Text per glyph with its baseline, so a
// baseline change is a line break and a horizontal jump between glyphs is a
// word gap the stream never spelled out as a space.
func pageText(glyphs []pdf.Text) string {
	var (
		lines   []string
		line    strings.Builder
		lastY   float64
		lastEnd float64
		started bool
	)

	flush := func() {
		if l := strings.TrimRight(line.String(), " \t"); strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
		line.Reset()
	}

	for _, g := range glyphs {
		// TJ arrays end with a synthetic newline glyph; baselines decide lines
		if g.S == "\n" || g.S == "" {
			continue
		}

		switch {
		case !started:
			started = true
		case math.Abs(g.Y-lastY) > math.Max(g.FontSize/2, 1):
			flush()
		case g.X-lastEnd > math.Max(g.FontSize*0.3, 1) && g.S != " " && !strings.HasSuffix(line.String(), " "):
			line.WriteByte(' ')
		}

		line.WriteString(g.S)
		lastY, lastEnd = g.Y, g.X+g.W
	}
	flush()

	return strings.Join(lines, "\n")
}
