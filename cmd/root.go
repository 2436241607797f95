package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "wikimatch",
	Short: "Reconcile tabular and TEI records against Wikidata",
	Long:  "Loads CSV/XLSX rows or TEI XML entities, queries the Wikidata reconciliation service for each, classifies the candidates, and writes matches back as an enriched CSV or an annotated TEI document.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
