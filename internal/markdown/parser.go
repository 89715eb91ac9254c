package markdown

import "strings"

type state int

const (
	stateNormal state = iota
	stateInTable
)

/*
LEARNING: Two-state line machine
Markdown tables have no closing marker, so the parser keeps one bit of state:
are we collecting table rows? Every line kind either stays in that state (a
table row) or leaves it (anything else), and leaving always flushes the
collected rows first. That single flush point is what keeps tables from
swallowing the heading or bullet that follows them.
*/
type parser struct {
	state     state
	tableRows []string
	blocks    []Block
}

// Parse splits markdown into blocks in document order.
func Parse(md string) []Block {
	p := &parser{}
	for _, line := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		p.feed(line)
	}
	p.flushTable()
	return p.blocks
}

func (p *parser) feed(line string) {
	kind, level, text := classify(line)

	switch kind {
	case lineTableRow:
		p.state = stateInTable
		p.tableRows = append(p.tableRows, text)
		return
	case lineBlank:
		if p.state == stateInTable {
			// a blank line only closes the table
			p.flushTable()
			return
		}
		p.blocks = append(p.blocks, Block{Kind: KindBlank})
		return
	}

	p.flushTable()

	switch kind {
	case lineHeading:
		p.blocks = append(p.blocks, Block{Kind: KindHeading, Level: level, Text: text})
	case lineBullet:
		p.blocks = append(p.blocks, Block{Kind: KindBullet, Text: text})
	case lineNumbered:
		p.blocks = append(p.blocks, Block{Kind: KindNumbered, Text: text})
	default:
		p.blocks = append(p.blocks, Block{Kind: KindParagraph, Text: text})
	}
}

func (p *parser) flushTable() {
	if p.state != stateInTable {
		return
	}
	p.state = stateNormal

	rows := p.tableRows
	p.tableRows = nil

	var cells [][]string
	for _, row := range rows {
		if separatorPattern.MatchString(row) {
			continue
		}
		cells = append(cells, splitCells(row))
	}
	if len(cells) == 0 {
		return
	}

	p.blocks = append(p.blocks, Block{Kind: KindTable, Header: cells[0], Rows: cells[1:]})
}

// splitCells keeps the non-empty trimmed pieces between pipes.
func splitCells(row string) []string {
	var cells []string
	for _, piece := range strings.Split(row, "|") {
		if c := strings.TrimSpace(piece); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}
