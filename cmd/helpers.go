package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/match"
	"github.com/dh-lab/wikimatch/internal/record"
	"github.com/dh-lab/wikimatch/internal/session"
	"github.com/dh-lab/wikimatch/pkg/wikidata"
)

// newSession builds a run-scoped session from config plus per-command
// overrides.
func newSession(types []string, limit, delayMs int) *session.Session {
	if limit <= 0 {
		limit = cfg.Reconcile.Limit
	}
	if delayMs <= 0 {
		delayMs = cfg.Reconcile.DelayMs
	}

	opts := []wikidata.Option{wikidata.WithBaseURL(cfg.Reconcile.BaseURL)}
	if cfg.Reconcile.TimeoutSecs > 0 {
		opts = append(opts, wikidata.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Reconcile.TimeoutSecs) * time.Second,
		}))
	}
	client := wikidata.NewClient(opts...)

	return session.New(session.Options{
		Client: client,
		Delay:  time.Duration(delayMs) * time.Millisecond,
		Limit:  limit,
		Types:  types,
		Policy: match.Policy{
			Threshold:       cfg.Reconcile.AutoMatchThreshold,
			RequireAsserted: cfg.Reconcile.AutoMatchAsserted,
		},
	})
}

// logProgress reports batch progress through the global logger.
func logProgress(p wikidata.Progress) {
	zap.L().Info("progress",
		zap.Int("current", p.Current),
		zap.Int("total", p.Total),
		zap.Float64("percentage", p.Percentage),
	)
}

// runSummary is the final collaborator payload: every record outcome plus
// the aggregate counters.
type runSummary struct {
	Items []record.Result `json:"items"`
	Stats record.RunStats `json:"stats"`
}

// writeResultsJSON writes the run summary as indented JSON to path, or
// stdout when path is empty.
func writeResultsJSON(sess *session.Session, path string) error {
	w := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "create results file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runSummary{Items: sess.Results(), Stats: sess.Stats()})
}

func logStats(stats record.RunStats) {
	zap.L().Info("reconciliation complete",
		zap.Int("matched", stats.Matched),
		zap.Int("review", stats.Review),
		zap.Int("no_match", stats.NoMatch),
		zap.Int("pending", stats.Pending),
	)
}
