package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/tabular"
)

var (
	runInput   string
	runColumn  string
	runTypes   []string
	runLimit   int
	runDelayMs int
	runOutput  string
	runJSON    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile a CSV or XLSX file against Wikidata",
	Long: `Reads a tabular file, reconciles the chosen column row by row, and writes
an enriched CSV with four appended columns (wikidata_id, wikidata_url,
match_confidence, match_status).

Examples:
  # Reconcile the "name" column, restrict candidates to humans (Q5)
  wikimatch run --input people.csv --column name --types Q5

  # XLSX input, custom output path plus a JSON result dump
  wikimatch run --input orgs.xlsx --column org_name --output out.csv --json results.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		table, err := loadTable(runInput)
		if err != nil {
			return eris.Wrap(err, "run: load input")
		}

		records, err := tabular.Normalize(table, runColumn)
		if err != nil {
			return eris.Wrap(err, "run: normalize")
		}
		zap.L().Info("run: records ready", zap.Int("count", len(records)))

		sess := newSession(runTypes, runLimit, runDelayMs)
		if err := sess.Run(ctx, records, logProgress); err != nil {
			return eris.Wrap(err, "run: batch")
		}
		logStats(sess.Stats())

		enriched := tabular.Enrich(table, sess.Results())

		outPath := runOutput
		if outPath == "" {
			outPath = tabular.ExportName(table.Name, time.Now())
		}
		f, err := os.Create(outPath)
		if err != nil {
			return eris.Wrap(err, "run: create output")
		}
		defer f.Close() //nolint:errcheck

		if err := tabular.WriteCSV(enriched, f); err != nil {
			return eris.Wrap(err, "run: write output")
		}
		zap.L().Info("run: enriched csv written", zap.String("path", outPath))

		if runJSON != "" {
			if err := writeResultsJSON(sess, runJSON); err != nil {
				return eris.Wrap(err, "run: write results json")
			}
		}

		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "path to CSV or XLSX file (required)")
	runCmd.Flags().StringVar(&runColumn, "column", "", "column supplying the value to reconcile (required)")
	runCmd.Flags().StringSliceVar(&runTypes, "types", nil, "Wikidata type filter, e.g. Q5 (only the first is sent upstream)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "candidates per query (default from config)")
	runCmd.Flags().IntVar(&runDelayMs, "delay-ms", 0, "delay between requests in ms (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "enriched CSV path (default: reconciled_<name>_<timestamp>.csv)")
	runCmd.Flags().StringVar(&runJSON, "json", "", "also write {items, stats} JSON to this path")
	_ = runCmd.MarkFlagRequired("input")
	_ = runCmd.MarkFlagRequired("column")
	rootCmd.AddCommand(runCmd)
}

// loadTable dispatches on file extension.
func loadTable(path string) (*tabular.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return tabular.LoadXLSX(path)
	}
	return tabular.Load(path)
}
