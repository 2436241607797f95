package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dh-lab/wikimatch/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml to the current directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		const path = "config.yaml"

		if !initForce {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("init: %s already exists (use --force to overwrite)", path)
			}
		}

		defaults := config.Config{
			Reconcile: config.ReconcileConfig{
				BaseURL:            "https://wikidata.reconci.link/en/api",
				Limit:              5,
				DelayMs:            1200,
				TimeoutSecs:        30,
				AutoMatchThreshold: 95,
				AutoMatchAsserted:  true,
			},
			Server: config.ServerConfig{Port: 8080},
			Log:    config.LogConfig{Level: "info", Format: "json"},
		}

		data, err := yaml.Marshal(defaults)
		if err != nil {
			return eris.Wrap(err, "init: marshal defaults")
		}

		header := []byte("# wikimatch configuration. Every key can also be set via the\n# environment with the WIKIMATCH_ prefix, e.g. WIKIMATCH_RECONCILE_DELAY_MS.\n")
		if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
			return eris.Wrap(err, "init: write config")
		}

		zap.L().Info("init: config written", zap.String("path", path))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}
