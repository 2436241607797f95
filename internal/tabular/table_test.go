package tabular

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh-lab/wikimatch/internal/record"
)

const sampleCSV = `name,occupation,birth_year
Albert Einstein,Physicist,1879
Marie Curie,Chemist,1867

Isaac Newton,Mathematician,1643
`

func TestRead_DropsEmptyRows(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV), "people")
	require.NoError(t, err)

	assert.Equal(t, "people", table.Name)
	assert.Equal(t, []string{"name", "occupation", "birth_year"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Marie Curie", table.Cell(1, "name"))
	assert.Equal(t, "Mathematician", table.Cell(2, "occupation"))
}

func TestRead_StripsBOM(t *testing.T) {
	table, err := Read(strings.NewReader("\uFEFFname\nEinstein\n"), "bom")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, table.Headers)
	require.Len(t, table.Rows, 1)
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""), "empty")
	require.Error(t, err)
}

func TestNormalize_StableRowIDs(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV), "people")
	require.NoError(t, err)

	records, err := Normalize(table, "name")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "row_0", records[0].ID)
	assert.Equal(t, "Albert Einstein", records[0].DisplayValue)
	assert.Equal(t, record.KindRow, records[0].Kind)
	assert.Equal(t, 0, records[0].Anchor.Row)

	// Remaining columns ride along as ordered review context.
	assert.Equal(t, []record.ContextField{
		{Name: "occupation", Value: "Physicist"},
		{Name: "birth_year", Value: "1879"},
	}, records[0].Context)

	assert.Equal(t, "row_2", records[2].ID)
	assert.Equal(t, "Isaac Newton", records[2].DisplayValue)

	// Deterministic on a repeated run over the same table.
	again, err := Normalize(table, "name")
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestNormalize_InvalidColumn(t *testing.T) {
	table, err := Read(strings.NewReader(sampleCSV), "people")
	require.NoError(t, err)

	_, err = Normalize(table, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidColumn)
}

func TestNormalize_EmptyDataset(t *testing.T) {
	table, err := Read(strings.NewReader("name\n  \n\n"), "blank")
	require.NoError(t, err)
	require.Empty(t, table.Rows)

	_, err = Normalize(table, "name")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestEnrich_AppendsFourColumns(t *testing.T) {
	table := NewTable("people", []string{"name"}, [][]string{
		{"Albert Einstein"}, {"Marie Curie"}, {"Unknown Person XYZ123"},
	})

	selected := record.Candidate{ID: "Q937", URL: "https://www.wikidata.org/wiki/Q937", Score: 99}
	results := []record.Result{
		{RecordID: "row_0", Status: record.StatusMatched, Selected: &selected,
			Candidates: []record.Candidate{selected}},
		{RecordID: "row_1", Status: record.StatusReview,
			Candidates: []record.Candidate{{ID: "Q7186", Score: 82}, {ID: "Q1", Score: 60}}},
		{RecordID: "row_2", Status: record.StatusNoMatch},
	}

	enriched := Enrich(table, results)

	assert.Equal(t, []string{"name", "wikidata_id", "wikidata_url", "match_confidence", "match_status"}, enriched.Headers)
	require.Len(t, enriched.Rows, 3)

	assert.Equal(t, []string{"Albert Einstein", "Q937", "https://www.wikidata.org/wiki/Q937", "99", "matched"}, enriched.Rows[0])
	assert.Equal(t, []string{"Marie Curie", "", "", "82", "needs_review"}, enriched.Rows[1])
	assert.Equal(t, []string{"Unknown Person XYZ123", "", "", "0", "no_match"}, enriched.Rows[2])

	// Source table untouched.
	assert.Len(t, table.Headers, 1)
	assert.Len(t, table.Rows[0], 1)
}

func TestEnrich_ReviewWithoutCandidates(t *testing.T) {
	table := NewTable("t", []string{"name"}, [][]string{{"x"}})
	enriched := Enrich(table, []record.Result{
		{RecordID: "row_0", Status: record.StatusReview},
	})
	assert.Equal(t, []string{"x", "", "", "0", "needs_review"}, enriched.Rows[0])
}

func TestWriteCSV_BOMAndContent(t *testing.T) {
	table := NewTable("t", []string{"name", "id"}, [][]string{{"Einstein", "Q937"}})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(table, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\uFEFF"), "missing BOM")
	assert.Contains(t, out, "name,id\n")
	assert.Contains(t, out, "Einstein,Q937\n")
}

func TestExportName_TimestampFormat(t *testing.T) {
	ts := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "reconciled_people_2026-08-30T14-05-09.csv", ExportName("people", ts))
}
