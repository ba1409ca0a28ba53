package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestColumnOrderIDFirstThenLexicographic(t *testing.T) {
	rows := []map[string]interface{}{
		{"email": "a@b.c", "id": "1", "zip": "10115"},
		{"id": "2", "age": 30},
	}

	// Union of keys across rows, id first, rest sorted.
	assert.Equal(t, []string{"id", "age", "email", "zip"}, ColumnOrder(rows))
}

func TestColumnOrderSalesforceID(t *testing.T) {
	rows := []map[string]interface{}{
		{"Name": "Acme", "Id": "001A", "AnnualRevenue": 5000.0},
	}
	assert.Equal(t, []string{"Id", "AnnualRevenue", "Name"}, ColumnOrder(rows))
}

func TestColumnOrderNoID(t *testing.T) {
	rows := []map[string]interface{}{{"b": 1, "a": 2}}
	assert.Equal(t, []string{"a", "b"}, ColumnOrder(rows))
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, "", CellValue(nil))
	assert.Equal(t, "plain", CellValue("plain"))
	assert.Equal(t, 42, CellValue(42))
	assert.Equal(t, true, CellValue(true))
	// Nested structures are stringified rather than dropped.
	assert.Equal(t, "map[city:Berlin]", CellValue(map[string]interface{}{"city": "Berlin"}))
}

func TestRecordsWorkbook(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": "1", "email": "a@b.c"},
		{"id": "2", "name": "Beta"},
	}

	data, err := Records(rows, HubSpotTheme)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Query Results"}, f.GetSheetList())

	got, err := f.GetRows("Query Results")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"id", "email", "name"}, got[0])
	// Missing keys render as blank cells; excelize drops trailing empties.
	assert.Equal(t, "1", got[1][0])
	assert.Equal(t, "a@b.c", got[1][1])
	assert.Equal(t, "2", got[2][0])
}

func TestShapeWorkbook(t *testing.T) {
	headers := []string{"Field Name", "Data Type", "Label", "Length"}
	rows := [][]interface{}{
		{"Id", "id", "Account ID", 18},
		{"Name", "string", "Account Name", 255},
	}

	data, err := Shape(headers, rows, SalesforceTheme)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"Object Shape"}, f.GetSheetList())

	got, err := f.GetRows("Object Shape")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, headers, got[0])
	assert.Equal(t, "Name", got[2][0])
}

func TestColumnWidthCapped(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	rows := []map[string]interface{}{{"id": "1", "notes": string(long)}}

	data, err := Records(rows, HubSpotTheme)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	// Column B holds the 300-char value; width stays at the cap.
	width, err := f.GetColWidth("Query Results", "B")
	require.NoError(t, err)
	assert.InDelta(t, float64(maxColumnWidth), width, 1)
}

func TestFilename(t *testing.T) {
	now := time.Date(2025, 1, 14, 15, 30, 45, 0, time.UTC)
	assert.Equal(t, "contacts_records_20250114_153045.xlsx", Filename("contacts", "records", now))
	assert.Equal(t, "Account_shape_20250114_153045.xlsx", Filename("Account", "shape", now))
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(dir, "out.xlsx", []byte("payload"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}
