// Package exporter serializes query results to styled xlsx workbooks.
package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	recordsSheet = "Query Results"
	shapeSheet   = "Object Shape"

	// maxColumnWidth caps auto-sized columns.
	maxColumnWidth = 50
)

// Theme selects the header fill per platform.
type Theme struct {
	HeaderFill string
}

var (
	HubSpotTheme    = Theme{HeaderFill: "FF7A00"}
	SalesforceTheme = Theme{HeaderFill: "366092"}
)

// ColumnOrder computes the column set for a row batch: the union of all
// keys, with the id column (either "id" or "Id") first and the remainder
// in lexicographic order. The same rule applies to terminal display and
// spreadsheet export.
func ColumnOrder(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	idKey := ""
	var rest []string
	for _, row := range rows {
		for k := range row {
			if seen[k] {
				continue
			}
			seen[k] = true
			if k == "id" || k == "Id" {
				idKey = k
				continue
			}
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	if idKey == "" {
		return rest
	}
	return append([]string{idKey}, rest...)
}

// CellValue renders one cell: nil becomes blank and non-scalar values
// (nested mappings) are stringified.
func CellValue(v interface{}) interface{} {
	switch v := v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Records builds a workbook with one sheet of flattened rows under a
// styled header.
func Records(rows []map[string]interface{}, theme Theme) ([]byte, error) {
	columns := ColumnOrder(rows)

	cells := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		line := make([]interface{}, len(columns))
		for i, col := range columns {
			line[i] = CellValue(row[col])
		}
		cells = append(cells, line)
	}

	headers := make([]interface{}, len(columns))
	for i, col := range columns {
		headers[i] = col
	}
	return build(recordsSheet, headers, cells, theme)
}

// Shape builds a workbook describing an object's schema: fixed headers
// and one row per property/field.
func Shape(headers []string, rows [][]interface{}, theme Theme) ([]byte, error) {
	hs := make([]interface{}, len(headers))
	for i, h := range headers {
		hs[i] = h
	}
	return build(shapeSheet, hs, rows, theme)
}

func build(sheetTitle string, headers []interface{}, rows [][]interface{}, theme Theme) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTitle); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{theme.HeaderFill}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	widths := make([]int, len(headers))

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetTitle, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetTitle, cell, cell, headerStyle); err != nil {
			return nil, err
		}
		widths[col] = len(fmt.Sprint(h))
	}

	for r, row := range rows {
		for col := range headers {
			var v interface{} = ""
			if col < len(row) {
				v = row[col]
			}
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetTitle, cell, v); err != nil {
				return nil, err
			}
			if l := len(fmt.Sprint(v)); l > widths[col] {
				widths[col] = l
			}
		}
	}

	// Auto-size columns to content, capped at maxColumnWidth.
	for col := range headers {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		width := widths[col] + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheetTitle, name, name, float64(width)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds the timestamped export name, e.g.
// "contacts_records_20250114_153045.xlsx".
func Filename(object, kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s.xlsx", object, kind, now.Format("20060102_150405"))
}

// Save writes workbook bytes into dir and returns the full path.
func Save(dir, filename string, data []byte) (string, error) {
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	return path, nil
}
