// Package wikidata queries the Wikidata Reconciliation API and drives
// rate-limited, cache-backed batch reconciliation over it.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/record"
)

const (
	// DefaultBaseURL is the public Wikidata reconciliation endpoint.
	DefaultBaseURL = "https://wikidata.reconci.link/en/api"

	// DefaultLimit is the number of candidates requested per query.
	DefaultLimit = 5

	entityPageURL = "https://www.wikidata.org/wiki/"

	// noDescription replaces a missing description so candidates are never
	// rendered with an empty field.
	noDescription = "No description available"
)

// Client reconciles a single query string against the service.
type Client interface {
	// Reconcile returns candidates for query sorted by descending score.
	// An empty or whitespace-only query returns no candidates and performs
	// no network call.
	Reconcile(ctx context.Context, query string, opts QueryOptions) ([]record.Candidate, error)
}

// QueryOptions narrows a reconciliation query.
type QueryOptions struct {
	// Limit caps the number of candidates returned (default DefaultLimit).
	Limit int
	// Types restricts candidates to Wikidata classes (e.g. "Q5"). The
	// upstream API accepts a single type token, so only the first entry is
	// forwarded; callers needing multi-type filtering must issue one query
	// per type.
	Types []string
}

// ServiceError is a non-2xx response from the reconciliation service.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("wikidata: service returned status %d", e.StatusCode)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the service endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a reconciliation Client with the given options.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// queryPayload is the single-query body sent under key "q0".
type queryPayload struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	Type  string `json:"type,omitempty"`
}

type queryResponse struct {
	Q0 struct {
		Result []resultItem `json:"result"`
	} `json:"q0"`
}

type resultItem struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Score       float64      `json:"score"`
	Match       bool         `json:"match"`
	Type        []resultType `json:"type"`
}

type resultType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *client) Reconcile(ctx context.Context, query string, opts QueryOptions) ([]record.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]queryPayload{"q0": buildQuery(query, opts)})
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: marshal query")
	}

	// The API expects form-encoded data with the JSON under a single
	// "queries" field.
	form := url.Values{"queries": {string(payload)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded queryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, eris.Wrap(err, "wikidata: parse response")
	}

	// A missing result container is how the service reports no matches,
	// not an error.
	candidates := parseCandidates(decoded.Q0.Result)
	zap.L().Debug("wikidata: query complete",
		zap.String("query", truncate(query)),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// buildQuery builds the q0 payload, forwarding only the first type token.
func buildQuery(query string, opts QueryOptions) queryPayload {
	p := queryPayload{Query: query, Limit: opts.Limit}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if len(opts.Types) > 0 {
		p.Type = opts.Types[0]
	}
	return p
}

// parseCandidates normalizes raw result items and sorts by descending score,
// keeping the service's order on ties.
func parseCandidates(items []resultItem) []record.Candidate {
	if len(items) == 0 {
		return nil
	}

	candidates := make([]record.Candidate, len(items))
	for i, item := range items {
		desc := item.Description
		if desc == "" {
			desc = noDescription
		}
		var types []string
		for _, t := range item.Type {
			types = append(types, t.ID)
		}
		candidates[i] = record.Candidate{
			ID:          item.ID,
			Label:       item.Name,
			Description: desc,
			Score:       int(math.Round(item.Score)),
			Match:       item.Match,
			URL:         entityPageURL + item.ID,
			Types:       types,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// truncate shortens long query strings for log output.
func truncate(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
