// Package markdown classifies the line-oriented markdown produced for BRDs
// into renderable blocks.
package markdown

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindHeading   Kind = "heading"
	KindBullet    Kind = "bullet"
	KindNumbered  Kind = "numbered"
	KindParagraph Kind = "paragraph"
	KindBlank     Kind = "blank"
	KindTable     Kind = "table"
)

// Block is one renderable unit. Level is set for headings (1-3). Header and
// Rows are set for tables.
type Block struct {
	Kind   Kind
	Level  int
	Text   string
	Header []string
	Rows   [][]string
}

var (
	numberedPattern  = regexp.MustCompile(`^\d+\.\s`)
	separatorPattern = regexp.MustCompile(`^\|[\s\-:|]+\|$`)
)

type lineKind int

const (
	lineBlank lineKind = iota
	lineHeading
	lineTableRow
	lineBullet
	lineNumbered
	lineParagraph
)

// classify looks at a single line in isolation. Whether a blank line ends a
// table or becomes a blank block is decided by the parser state, not here.
func classify(line string) (lineKind, int, string) {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, "### "):
		return lineHeading, 3, strings.TrimSpace(line[4:])
	case strings.HasPrefix(line, "## "):
		return lineHeading, 2, strings.TrimSpace(line[3:])
	case strings.HasPrefix(line, "# "):
		return lineHeading, 1, strings.TrimSpace(line[2:])
	case trimmed == "":
		return lineBlank, 0, ""
	case strings.HasPrefix(trimmed, "|"):
		return lineTableRow, 0, trimmed
	case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
		return lineBullet, 0, strings.TrimSpace(trimmed[2:])
	case numberedPattern.MatchString(trimmed):
		return lineNumbered, 0, strings.TrimSpace(numberedPattern.ReplaceAllString(trimmed, ""))
	default:
		return lineParagraph, 0, line
	}
}
