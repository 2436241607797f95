package tabular

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/dh-lab/wikimatch/internal/record"
)

var (
	// ErrEmptyDataset means no data rows remained after dropping rows whose
	// every cell was empty or whitespace.
	ErrEmptyDataset = eris.New("tabular: dataset has no data rows")

	// ErrInvalidColumn means the chosen column does not exist in the header.
	ErrInvalidColumn = eris.New("tabular: column not found")
)

// Normalize turns every row into a SourceRecord whose display value comes
// from the named column. Output order matches row order and ids are
// "row_<index>" (0-based), stable across repeated runs on the same file.
func Normalize(t *Table, column string) ([]record.SourceRecord, error) {
	idx := t.columnIndex(column)
	if idx < 0 {
		return nil, eris.Wrapf(ErrInvalidColumn, "column %q", column)
	}
	if len(t.Rows) == 0 {
		return nil, ErrEmptyDataset
	}

	records := make([]record.SourceRecord, len(t.Rows))
	for i, row := range t.Rows {
		// The remaining columns ride along as review context only.
		var ctx []record.ContextField
		for j, h := range t.Headers {
			if j == idx {
				continue
			}
			ctx = append(ctx, record.ContextField{Name: h, Value: row[j]})
		}

		records[i] = record.SourceRecord{
			ID:           fmt.Sprintf("row_%d", i),
			DisplayValue: row[idx],
			Kind:         record.KindRow,
			Context:      ctx,
			Anchor:       record.Anchor{Row: i},
		}
	}

	return records, nil
}
