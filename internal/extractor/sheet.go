package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const csvSheetName = "Sheet1"

type sheet struct {
	name string
	rows [][]string
}

func extractXLSX(_ context.Context, data []byte, _ string) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}

	return flattenSheets(sheets)
}

func extractCSV(_ context.Context, data []byte, _ string) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse csv: %w", err)
	}

	return flattenSheets([]sheet{{name: csvSheetName, rows: rows}})
}

// flattenSheets renders each sheet as CSV under a "=== Sheet: name ===" header,
// in workbook order, separated by a blank line.
func flattenSheets(sheets []sheet) (string, error) {
	var out strings.Builder
	for _, s := range sheets {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.WriteAll(s.rows); err != nil {
			return "", fmt.Errorf("failed to render sheet %s: %w", s.name, err)
		}

		fmt.Fprintf(&out, "\n\n=== Sheet: %s ===\n%s", s.name, strings.TrimRight(buf.String(), "\n"))
	}
	return strings.TrimSpace(out.String()), nil
}
