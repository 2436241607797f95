// Package tabular loads delimited datasets, turns a chosen column into
// source records, and writes enriched output back out as CSV.
package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a parsed dataset: a header row plus string-celled data rows.
// Rows whose every cell was empty or whitespace are dropped at load time,
// so row indices are stable from normalization through export.
type Table struct {
	Name    string // base name of the source file, without extension
	Headers []string
	Rows    [][]string
}

// NewTable builds a Table from already-decoded cells, applying the same
// empty-row discard and row padding as the file loaders.
func NewTable(name string, headers []string, rows [][]string) *Table {
	t := &Table{Name: name, Headers: headers}
	for _, row := range rows {
		if emptyRow(row) {
			continue
		}
		t.Rows = append(t.Rows, padRow(row, len(headers)))
	}
	return t
}

// Load reads a CSV file. A UTF-8 or UTF-16 byte-order mark is honored and
// stripped.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open file")
	}
	defer f.Close() //nolint:errcheck

	return Read(f, baseName(path))
}

// Read parses CSV data from r. name becomes Table.Name.
func Read(r io.Reader, name string) (*Table, error) {
	// BOMOverride switches decoding when the stream carries a UTF-8 or
	// UTF-16 byte-order mark, as spreadsheet exports commonly do.
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1 // allow variable fields

	all, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read csv")
	}
	if len(all) == 0 {
		return nil, eris.New("tabular: file is empty")
	}

	headers := all[0]
	if len(headers) == 0 {
		return nil, eris.New("tabular: no columns found")
	}

	t := &Table{Name: name, Headers: headers}
	for _, row := range all[1:] {
		if emptyRow(row) {
			continue
		}
		t.Rows = append(t.Rows, padRow(row, len(headers)))
	}

	zap.L().Info("tabular: parsed csv",
		zap.String("name", name),
		zap.Int("rows", len(t.Rows)),
		zap.Int("columns", len(headers)),
	)
	return t, nil
}

// LoadXLSX reads the first sheet of an XLSX workbook into a Table.
func LoadXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("tabular: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("tabular: sheet is empty")
	}

	headers := rowToStrings(sheet.Rows[0])
	if len(headers) == 0 {
		return nil, eris.New("tabular: no columns found")
	}

	t := &Table{Name: baseName(path), Headers: headers}
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if emptyRow(cells) {
			continue
		}
		t.Rows = append(t.Rows, padRow(cells, len(headers)))
	}

	zap.L().Info("tabular: parsed xlsx",
		zap.String("name", t.Name),
		zap.Int("rows", len(t.Rows)),
		zap.Int("columns", len(headers)),
	)
	return t, nil
}

// Cell returns the value at (row, column name), or "" when the column is
// unknown.
func (t *Table) Cell(row int, column string) string {
	idx := t.columnIndex(column)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

func (t *Table) columnIndex(column string) int {
	for i, h := range t.Headers {
		if h == column {
			return i
		}
	}
	return -1
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.String()
	}
	return cells
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// padRow extends short rows so every row indexes safely against headers.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
