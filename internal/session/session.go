// Package session wires one reconciliation run end to end: it seeds the
// match engine, drives the batch runner, and applies the results. A Session
// holds all run state explicitly; nothing is shared across runs.
package session

import (
	"context"
	"time"

	"github.com/dh-lab/wikimatch/internal/match"
	"github.com/dh-lab/wikimatch/internal/record"
	"github.com/dh-lab/wikimatch/pkg/wikidata"
)

// Options configures a run.
type Options struct {
	Client wikidata.Client
	Delay  time.Duration // inter-request delay (0 = wikidata.DefaultDelay)
	Limit  int           // candidates per query (0 = wikidata.DefaultLimit)
	Types  []string      // Wikidata type filter applied to every query
	Policy match.Policy
}

// Session owns the per-run orchestrator and decision state.
type Session struct {
	runner *wikidata.Runner
	engine *match.Engine
	limit  int
	types  []string
}

// New creates a Session for a single run.
func New(opts Options) *Session {
	return &Session{
		runner: wikidata.NewRunner(opts.Client, opts.Delay),
		engine: match.NewEngine(opts.Policy),
		limit:  opts.Limit,
		types:  opts.Types,
	}
}

// Run reconciles every record and classifies the outcomes. On cancellation
// the results already recorded keep their classification seeded state and
// the context error is returned.
func (s *Session) Run(ctx context.Context, records []record.SourceRecord, onProgress wikidata.ProgressFunc) error {
	s.engine.Seed(records)

	queries := make([]wikidata.Query, len(records))
	for i, rec := range records {
		queries[i] = wikidata.Query{
			RecordID: rec.ID,
			Query:    rec.DisplayValue,
			Options:  wikidata.QueryOptions{Limit: s.limit, Types: s.types},
		}
	}

	results, err := s.runner.RunBatch(ctx, queries, onProgress)
	if err != nil {
		return err
	}

	s.engine.Apply(results)
	return nil
}

// Select accepts a candidate for a record (operator override).
func (s *Session) Select(recordID string, candidateIndex int) error {
	return s.engine.Select(recordID, candidateIndex)
}

// Unselect reverts a matched record to review.
func (s *Session) Unselect(recordID string) error {
	return s.engine.Unselect(recordID)
}

// Results returns every record's outcome in input order.
func (s *Session) Results() []record.Result {
	return s.engine.Results()
}

// Stats returns the aggregate counters.
func (s *Session) Stats() record.RunStats {
	return s.engine.Stats()
}
