// Package match owns the per-record decision state machine: automatic
// classification of scored candidates plus operator select/unselect moves.
package match

import (
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/record"
)

// Policy is the auto-accept rule. A record is matched without operator
// action only when the service returned exactly one candidate, its score
// meets Threshold, and (if RequireAsserted) the service flagged it as an
// asserted match.
type Policy struct {
	Threshold       int
	RequireAsserted bool
}

// DefaultPolicy returns the standard auto-accept rule: one candidate,
// score >= 95, service-asserted.
func DefaultPolicy() Policy {
	return Policy{Threshold: 95, RequireAsserted: true}
}

// Engine holds every record's decision state for one run. It is the only
// component allowed to mutate Result.Status and Result.Selected.
type Engine struct {
	policy  Policy
	order   []string
	results map[string]*record.Result
	stats   record.RunStats
}

// NewEngine creates an Engine with the given auto-accept policy.
func NewEngine(policy Policy) *Engine {
	return &Engine{
		policy:  policy,
		results: make(map[string]*record.Result),
	}
}

// Seed registers records as pending before the batch starts. Input order is
// preserved for Results.
func (e *Engine) Seed(records []record.SourceRecord) {
	for _, rec := range records {
		e.order = append(e.order, rec.ID)
		e.results[rec.ID] = &record.Result{
			RecordID: rec.ID,
			Status:   record.StatusPending,
		}
		e.stats.Pending++
	}
}

// Apply classifies every seeded record from its candidate list. Records
// absent from candidates are treated as having none.
func (e *Engine) Apply(candidates map[string][]record.Candidate) {
	for _, id := range e.order {
		res := e.results[id]
		res.Candidates = candidates[id]
		res.Selected = nil

		switch {
		case len(res.Candidates) == 0:
			e.transition(res, record.StatusNoMatch)
		case e.autoMatch(res.Candidates):
			res.Selected = &res.Candidates[0]
			e.transition(res, record.StatusMatched)
		default:
			e.transition(res, record.StatusReview)
		}
	}
}

// autoMatch reports whether a candidate list satisfies the policy.
func (e *Engine) autoMatch(candidates []record.Candidate) bool {
	if len(candidates) != 1 {
		return false
	}
	top := candidates[0]
	if top.Score < e.policy.Threshold {
		return false
	}
	return !e.policy.RequireAsserted || top.Match
}

// Select marks a candidate as the accepted match for a record. Legal from
// review or no-match once candidates have been applied.
func (e *Engine) Select(recordID string, candidateIndex int) error {
	res, ok := e.results[recordID]
	if !ok {
		return eris.Errorf("match: unknown record %q", recordID)
	}
	if res.Status == record.StatusPending {
		return eris.Errorf("match: record %q has no candidates yet", recordID)
	}
	if res.Status == record.StatusMatched {
		return eris.Errorf("match: record %q already matched, unselect first", recordID)
	}
	if candidateIndex < 0 || candidateIndex >= len(res.Candidates) {
		return eris.Errorf("match: candidate index %d out of range for record %q", candidateIndex, recordID)
	}

	res.Selected = &res.Candidates[candidateIndex]
	e.transition(res, record.StatusMatched)

	zap.L().Info("match: candidate selected",
		zap.String("record", recordID),
		zap.String("candidate", res.Selected.ID),
	)
	return nil
}

// Unselect reverts a matched record to review. It never returns a record to
// no-match: matched requires at least one candidate, so the list cannot be
// empty here.
func (e *Engine) Unselect(recordID string) error {
	res, ok := e.results[recordID]
	if !ok {
		return eris.Errorf("match: unknown record %q", recordID)
	}
	if res.Status != record.StatusMatched {
		return eris.Errorf("match: record %q is %s, not matched", recordID, res.Status)
	}

	res.Selected = nil
	e.transition(res, record.StatusReview)

	zap.L().Info("match: candidate unselected", zap.String("record", recordID))
	return nil
}

// Results returns a copy of every record's outcome in input order.
func (e *Engine) Results() []record.Result {
	out := make([]record.Result, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.results[id])
	}
	return out
}

// Result returns one record's outcome.
func (e *Engine) Result(recordID string) (record.Result, bool) {
	res, ok := e.results[recordID]
	if !ok {
		return record.Result{}, false
	}
	return *res, true
}

// Stats returns the aggregate counters. They always sum to the seeded total.
func (e *Engine) Stats() record.RunStats {
	return e.stats
}

// transition moves a result between states, updating both counters in one
// step. Counters must never go negative; that would mean the state machine
// itself is broken, so it panics rather than clamping.
func (e *Engine) transition(res *record.Result, to record.Status) {
	e.bump(res.Status, -1)
	e.bump(to, +1)
	res.Status = to
}

func (e *Engine) bump(s record.Status, delta int) {
	var counter *int
	switch s {
	case record.StatusPending:
		counter = &e.stats.Pending
	case record.StatusMatched:
		counter = &e.stats.Matched
	case record.StatusReview:
		counter = &e.stats.Review
	case record.StatusNoMatch:
		counter = &e.stats.NoMatch
	default:
		panic(fmt.Sprintf("match: unknown status %v", s))
	}
	*counter += delta
	if *counter < 0 {
		panic(fmt.Sprintf("match: %s counter went negative", s))
	}
}
