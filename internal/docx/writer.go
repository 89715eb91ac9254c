// Package docx renders classified markdown blocks into a WordprocessingML
// package that Word, LibreOffice and Google Docs open directly.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"brd-generator/internal/markdown"
)

const (
	DefaultTitle     = "Business Requirements Document"
	headerFill       = "D9E1F2"
	bulletNumID      = 1
	firstNumberedNum = 2
)

// Render builds a .docx file: a centred title, an italic generation date, then
// one paragraph or table per block. Each run of numbered items restarts at 1.
func Render(title string, blocks []markdown.Block, generated time.Time) ([]byte, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	body, numberedLists := renderBody(title, blocks, generated)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/styles.xml", stylesXML},
		{"word/numbering.xml", numberingXML(numberedLists)},
		{"word/document.xml", body},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(w, p.content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx: %w", err)
	}

	return buf.Bytes(), nil
}

func renderBody(title string, blocks []markdown.Block, generated time.Time) (string, int) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	paragraph(&b, `<w:pStyle w:val="Title"/><w:jc w:val="center"/><w:spacing w:after="400"/>`, run(title, ""))
	paragraph(&b, `<w:jc w:val="center"/><w:spacing w:after="400"/>`,
		run("Generated: "+generated.Format("January 2, 2006"), "<w:i/>"))

	numID := firstNumberedNum - 1
	inNumbered := false
	for _, block := range blocks {
		if block.Kind == markdown.KindNumbered && !inNumbered {
			numID++
		}
		inNumbered = block.Kind == markdown.KindNumbered

		switch block.Kind {
		case markdown.KindHeading:
			paragraph(&b, fmt.Sprintf(`<w:pStyle w:val="Heading%d"/>`, block.Level), run(block.Text, ""))
		case markdown.KindBullet:
			paragraph(&b, listProps(bulletNumID), run(block.Text, ""))
		case markdown.KindNumbered:
			paragraph(&b, listProps(numID), run(block.Text, ""))
		case markdown.KindBlank:
			paragraph(&b, `<w:spacing w:after="100"/>`, "")
		case markdown.KindTable:
			table(&b, block)
		default:
			paragraph(&b, `<w:spacing w:after="150"/>`, run(block.Text, ""))
		}
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	b.WriteString(`</w:body></w:document>`)

	return b.String(), numID - firstNumberedNum + 1
}

func paragraph(b *strings.Builder, props, runs string) {
	b.WriteString("<w:p>")
	if props != "" {
		b.WriteString("<w:pPr>" + props + "</w:pPr>")
	}
	b.WriteString(runs)
	b.WriteString("</w:p>")
}

func listProps(numID int) string {
	return fmt.Sprintf(`<w:numPr><w:ilvl w:val="0"/><w:numId w:val="%d"/></w:numPr><w:spacing w:after="100"/>`, numID)
}

func run(text, props string) string {
	var b strings.Builder
	b.WriteString("<w:r>")
	if props != "" {
		b.WriteString("<w:rPr>" + props + "</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	xml.EscapeText(&b, []byte(text))
	b.WriteString("</w:t></w:r>")
	return b.String()
}

func table(b *strings.Builder, block markdown.Block) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="5000" w:type="pct"/><w:tblBorders>`)
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		fmt.Fprintf(b, `<w:%s w:val="single" w:sz="4" w:space="0" w:color="auto"/>`, side)
	}
	b.WriteString(`</w:tblBorders></w:tblPr>`)

	tableRow(b, block.Header, true)
	for _, row := range block.Rows {
		tableRow(b, row, false)
	}
	b.WriteString(`</w:tbl>`)
}

func tableRow(b *strings.Builder, cells []string, header bool) {
	b.WriteString("<w:tr>")
	for _, cell := range cells {
		b.WriteString("<w:tc>")
		if header {
			fmt.Fprintf(b, `<w:tcPr><w:shd w:val="clear" w:color="auto" w:fill="%s"/></w:tcPr>`, headerFill)
			paragraph(b, "", run(cell, "<w:b/>"))
		} else {
			paragraph(b, "", run(cell, ""))
		}
		b.WriteString("</w:tc>")
	}
	b.WriteString("</w:tr>")
}
