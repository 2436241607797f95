package wikidata

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dh-lab/wikimatch/internal/record"
)

// DefaultDelay is the pause between successive network calls. The service
// has no published quota; 1200ms keeps a batch well under 50 requests/min.
const DefaultDelay = 1200 * time.Millisecond

// Query is one batch item: a record id plus the query to reconcile for it.
type Query struct {
	RecordID string
	Query    string
	Options  QueryOptions
}

// Progress reports batch completion after each processed record.
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"` // rounded to one decimal
}

// ProgressFunc receives a Progress after every processed record, in input
// order.
type ProgressFunc func(Progress)

// Runner drives a Client across a batch of queries, strictly sequentially.
// Sequential processing is a deliberate concession to the upstream rate
// limit, not a constraint of the matching logic. A Runner holds per-run
// state (cache, limiter) and must not be shared across concurrent runs.
type Runner struct {
	client  Client
	cache   *queryCache
	limiter *rate.Limiter
}

// NewRunner creates a Runner pausing delay between network calls.
// A non-positive delay falls back to DefaultDelay.
func NewRunner(client Client, delay time.Duration) *Runner {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Runner{
		client: client,
		cache:  newQueryCache(),
		// Burst 1: the first call goes out immediately, each later call
		// waits out the delay. Cache hits never touch the limiter, and no
		// delay trails the final record.
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// RunBatch reconciles every query in input order. A single query's failure
// is recorded as an empty candidate list and never aborts the batch. The
// returned map covers every input record id exactly once.
//
// The context is checked before each record; on cancellation the results
// recorded so far are returned together with the context error.
func (r *Runner) RunBatch(ctx context.Context, queries []Query, onProgress ProgressFunc) (map[string][]record.Candidate, error) {
	zap.L().Info("wikidata: starting batch", zap.Int("total", len(queries)))

	results := make(map[string][]record.Candidate, len(queries))
	total := len(queries)

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return results, eris.Wrap(err, "wikidata: batch cancelled")
		}

		candidates, err := r.reconcileCached(ctx, q)
		if err != nil {
			// Per-record failure isolation: record no candidates and
			// keep going.
			zap.L().Warn("wikidata: query failed",
				zap.String("record", q.RecordID),
				zap.String("query", truncate(q.Query)),
				zap.Error(err),
			)
			candidates = nil
		}
		results[q.RecordID] = candidates

		if onProgress != nil {
			onProgress(Progress{
				Current:    i + 1,
				Total:      total,
				Percentage: math.Round(float64(i+1)/float64(total)*1000) / 10,
			})
		}
	}

	zap.L().Info("wikidata: batch complete",
		zap.Int("processed", len(results)),
		zap.Int("total", total),
	)
	return results, nil
}

// reconcileCached consults the cache before paying for a network call.
// Only successful responses are cached.
func (r *Runner) reconcileCached(ctx context.Context, q Query) ([]record.Candidate, error) {
	if strings.TrimSpace(q.Query) == "" {
		return nil, nil
	}

	key := cacheKey(q.Query, q.Options)
	if candidates, ok := r.cache.get(key); ok {
		zap.L().Debug("wikidata: cache hit", zap.String("query", truncate(q.Query)))
		return candidates, nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "wikidata: rate limit")
	}

	candidates, err := r.client.Reconcile(ctx, q.Query, q.Options)
	if err != nil {
		return nil, err
	}

	r.cache.put(key, candidates)
	return candidates, nil
}
