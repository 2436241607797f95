package wikidata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dh-lab/wikimatch/internal/record"
)

// fakeClient returns canned candidates per query and counts calls.
type fakeClient struct {
	responses map[string][]record.Candidate
	errs      map[string]error
	calls     []string
}

func (f *fakeClient) Reconcile(_ context.Context, query string, _ QueryOptions) ([]record.Candidate, error) {
	f.calls = append(f.calls, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.responses[query], nil
}

func testRunner(c Client) *Runner {
	return NewRunner(c, time.Millisecond)
}

func TestRunBatch_CoversEveryRecordDespiteFailures(t *testing.T) {
	fake := &fakeClient{
		responses: map[string][]record.Candidate{
			"Albert Einstein": {{ID: "Q937", Score: 99}},
		},
		errs: map[string]error{
			"Marie Curie": &ServiceError{StatusCode: 500},
		},
	}

	r := testRunner(fake)
	results, err := r.RunBatch(context.Background(), []Query{
		{RecordID: "row_0", Query: "Albert Einstein"},
		{RecordID: "row_1", Query: "Marie Curie"},
		{RecordID: "row_2", Query: ""},
	}, nil)
	require.NoError(t, err)

	// One entry per input record, failures recorded as empty.
	require.Len(t, results, 3)
	assert.Len(t, results["row_0"], 1)
	assert.Empty(t, results["row_1"])
	assert.Empty(t, results["row_2"])

	// The empty query never reached the client.
	assert.Equal(t, []string{"Albert Einstein", "Marie Curie"}, fake.calls)
}

func TestRunBatch_CacheShortCircuitsDuplicates(t *testing.T) {
	fake := &fakeClient{
		responses: map[string][]record.Candidate{
			"Einstein": {{ID: "Q937", Score: 99}},
		},
	}

	r := testRunner(fake)
	results, err := r.RunBatch(context.Background(), []Query{
		{RecordID: "a", Query: "Einstein"},
		{RecordID: "b", Query: " einstein "},
		{RecordID: "c", Query: "EINSTEIN"},
	}, nil)
	require.NoError(t, err)

	// Only the first variant hit the network; the rest were cache hits on
	// the normalized key.
	assert.Len(t, fake.calls, 1)
	assert.Len(t, results["a"], 1)
	assert.Len(t, results["b"], 1)
	assert.Len(t, results["c"], 1)
}

func TestRunBatch_TypeFilterSplitsCacheKeys(t *testing.T) {
	fake := &fakeClient{responses: map[string][]record.Candidate{}}

	r := testRunner(fake)
	_, err := r.RunBatch(context.Background(), []Query{
		{RecordID: "a", Query: "Paris", Options: QueryOptions{Types: []string{"Q515"}}},
		{RecordID: "b", Query: "Paris", Options: QueryOptions{Types: []string{"Q5"}}},
		{RecordID: "c", Query: "Paris", Options: QueryOptions{Types: []string{"Q515"}}},
	}, nil)
	require.NoError(t, err)

	// Distinct type filters are distinct cache entries.
	assert.Len(t, fake.calls, 2)
}

func TestRunBatch_ProgressOrderAndRounding(t *testing.T) {
	fake := &fakeClient{responses: map[string][]record.Candidate{}}

	var progress []Progress
	r := testRunner(fake)
	_, err := r.RunBatch(context.Background(), []Query{
		{RecordID: "a", Query: "one"},
		{RecordID: "b", Query: "two"},
		{RecordID: "c", Query: "three"},
	}, func(p Progress) { progress = append(progress, p) })
	require.NoError(t, err)

	require.Len(t, progress, 3)
	assert.Equal(t, Progress{Current: 1, Total: 3, Percentage: 33.3}, progress[0])
	assert.Equal(t, Progress{Current: 2, Total: 3, Percentage: 66.7}, progress[1])
	assert.Equal(t, Progress{Current: 3, Total: 3, Percentage: 100}, progress[2])
}

func TestRunBatch_CancellationRetainsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fake := &fakeClient{
		responses: map[string][]record.Candidate{
			"one": {{ID: "Q1", Score: 90}},
		},
	}

	r := testRunner(fake)
	results, err := r.RunBatch(ctx, []Query{
		{RecordID: "a", Query: "one"},
		{RecordID: "b", Query: "two"},
	}, func(p Progress) {
		if p.Current == 1 {
			cancel()
		}
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The record processed before cancellation is retained.
	require.Len(t, results, 1)
	assert.Len(t, results["a"], 1)
}

func TestCacheKey_Normalization(t *testing.T) {
	assert.Equal(t,
		cacheKey("Einstein", QueryOptions{Types: []string{"Q5"}}),
		cacheKey(" einstein ", QueryOptions{Types: []string{"Q5"}}),
	)

	// Type order does not matter.
	assert.Equal(t,
		cacheKey("x", QueryOptions{Types: []string{"Q5", "Q43229"}}),
		cacheKey("x", QueryOptions{Types: []string{"Q43229", "Q5"}}),
	)

	// Different filters are different keys.
	assert.NotEqual(t,
		cacheKey("x", QueryOptions{Types: []string{"Q5"}}),
		cacheKey("x", QueryOptions{}),
	)
}

func TestNewRunner_DefaultDelay(t *testing.T) {
	r := NewRunner(&fakeClient{}, 0)
	require.NotNil(t, r.limiter)
	assert.InDelta(t, 1, float64(r.limiter.Limit())*DefaultDelay.Seconds(), 1e-9)
}
