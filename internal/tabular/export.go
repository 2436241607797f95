package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dh-lab/wikimatch/internal/record"
)

// enrichedColumns are appended, in order, to every exported row.
var enrichedColumns = []string{"wikidata_id", "wikidata_url", "match_confidence", "match_status"}

// Enrich returns a new table with four columns appended to every row,
// carrying each row's reconciliation outcome. The input table is not
// modified. Results are matched to rows by their "row_<index>" ids; rows
// without a result export as no_match.
func Enrich(t *Table, results []record.Result) *Table {
	byID := make(map[string]*record.Result, len(results))
	for i := range results {
		byID[results[i].RecordID] = &results[i]
	}

	out := &Table{
		Name:    t.Name,
		Headers: append(append([]string(nil), t.Headers...), enrichedColumns...),
		Rows:    make([][]string, len(t.Rows)),
	}

	for i, row := range t.Rows {
		res := byID[fmt.Sprintf("row_%d", i)]
		out.Rows[i] = append(append([]string(nil), row...), annotationCells(res)...)
	}

	return out
}

// annotationCells maps one result to the four export cells.
func annotationCells(res *record.Result) []string {
	if res == nil {
		return []string{"", "", "0", record.StatusNoMatch.ExportValue()}
	}

	if res.Selected != nil {
		return []string{
			res.Selected.ID,
			res.Selected.URL,
			strconv.Itoa(res.Selected.Score),
			record.StatusMatched.ExportValue(),
		}
	}

	if res.Status == record.StatusReview {
		// Confidence of the top remaining candidate, 0 if none survived.
		score := 0
		if len(res.Candidates) > 0 {
			score = res.Candidates[0].Score
		}
		return []string{"", "", strconv.Itoa(score), record.StatusReview.ExportValue()}
	}

	return []string{"", "", "0", record.StatusNoMatch.ExportValue()}
}

// WriteCSV serializes the table as UTF-8 CSV with a leading byte-order mark
// for spreadsheet compatibility.
func WriteCSV(t *Table, w io.Writer) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return eris.Wrap(err, "tabular: write bom")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return eris.Wrap(err, "tabular: write header")
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "tabular: write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "tabular: flush csv")
	}
	return nil
}

// ExportName builds the download filename for an enriched table:
// reconciled_<base>_<timestamp>.csv with the timestamp's colons and dots
// replaced by hyphens.
func ExportName(base string, now time.Time) string {
	return fmt.Sprintf("reconciled_%s_%s.csv", base, Timestamp(now))
}

// Timestamp renders now as an ISO-8601-derived token safe for filenames.
func Timestamp(now time.Time) string {
	return now.UTC().Format("2006-01-02T15-04-05")
}
