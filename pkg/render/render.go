// Package render draws terminal tables and panels for query results.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hookline/crmq/pkg/exporter"
)

// maxDisplayRows bounds interactive tables; exports are unbounded.
const maxDisplayRows = 20

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cellStyle   = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// Table renders headers and rows with a border.
func Table(title string, headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.PaddingLeft(1).PaddingRight(1)
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	out := t.String()
	if title == "" {
		return out
	}
	return titleStyle.Render(title) + "\n" + out
}

// Panel renders a bordered box with a title line and body text.
func Panel(title, body string) string {
	content := titleStyle.Render(title) + "\n" + body
	return panelStyle.Render(content)
}

// KV renders a two-column settings table (used for the configuration
// summary shown before a run).
func KV(title string, pairs [][2]string) string {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return Table(title, []string{"Setting", "Value"}, rows)
}

// RecordsTable renders flattened rows using the shared column-order rule,
// truncated to maxDisplayRows with a "Showing X of Y" footer.
func RecordsTable(title string, rows []map[string]interface{}) string {
	if len(rows) == 0 {
		return footerStyle.Render("No records returned")
	}

	columns := exporter.ColumnOrder(rows)

	shown := len(rows)
	if shown > maxDisplayRows {
		shown = maxDisplayRows
	}

	cells := make([][]string, 0, shown)
	for _, row := range rows[:shown] {
		line := make([]string, len(columns))
		for i, col := range columns {
			line[i] = fmt.Sprint(exporter.CellValue(row[col]))
		}
		cells = append(cells, line)
	}

	out := Table(title, columns, cells)
	if len(rows) > shown {
		out += "\n" + footerStyle.Render(fmt.Sprintf("Showing %d of %d records", shown, len(rows)))
	}
	return out
}

// CredentialSummary lists which expected credential keys are present in
// the fetched secret. Key names only, never values.
func CredentialSummary(present []string, expected []string) string {
	var b strings.Builder
	for _, key := range expected {
		mark := "✗ missing"
		for _, p := range present {
			if p == key {
				mark = "✓ present"
				break
			}
		}
		fmt.Fprintf(&b, "%-16s %s\n", key, mark)
	}
	return Panel("Credentials Found", strings.TrimRight(b.String(), "\n"))
}
