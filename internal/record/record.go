// Package record defines the shared data model for one reconciliation run:
// the records extracted from a source file, the candidates proposed for them,
// and the per-record decision state.
package record

import "fmt"

// Kind identifies where a record came from and what it represents.
type Kind int

const (
	KindRow Kind = iota // tabular data row
	KindPerson
	KindPlace
	KindOrg
	KindConcept
)

func (k Kind) String() string {
	switch k {
	case KindRow:
		return "row"
	case KindPerson:
		return "person"
	case KindPlace:
		return "place"
	case KindOrg:
		return "org"
	case KindConcept:
		return "concept"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ContextField is one label/value pair shown to the operator during review.
// Values may be empty when the source carried no data for the attribute.
// Context is never sent to the reconciliation service.
type ContextField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExternalRef is a Wikidata identity the source already carried.
type ExternalRef struct {
	ID  string `json:"id"` // normalized upper-case QID, e.g. "Q937"
	URL string `json:"url"`
}

// Anchor locates the element or row a record was extracted from, so accepted
// matches can be written back. It is opaque to the matching layer.
type Anchor struct {
	XMLID string `json:"xml_id,omitempty"` // TEI xml:id, empty for tabular rows
	Row   int    `json:"row"`              // 0-based row index for tabular input
	// RefOnTerm marks concept records whose ref attribute belongs on the
	// nested term element rather than the category container.
	RefOnTerm bool `json:"ref_on_term,omitempty"`
}

// SourceRecord is one unit to reconcile. Records are created once during
// extraction and immutable afterwards.
type SourceRecord struct {
	ID           string         `json:"id"`
	DisplayValue string         `json:"display_value"`
	Kind         Kind           `json:"kind"`
	Context      []ContextField `json:"context,omitempty"`
	ExistingRef  *ExternalRef   `json:"existing_ref,omitempty"`
	Anchor       Anchor         `json:"anchor"`
}

// Candidate is one entity the reconciliation service proposed for a record.
type Candidate struct {
	ID          string   `json:"id"`
	Label       string   `json:"name"`
	Description string   `json:"description"`
	Score       int      `json:"score"` // 0-100
	Match       bool     `json:"match"` // the service's own equality assertion
	URL         string   `json:"url"`
	Types       []string `json:"types,omitempty"`
}

// Status is the decision state of one record.
type Status int

const (
	StatusPending Status = iota
	StatusMatched
	StatusReview
	StatusNoMatch
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusMatched:
		return "matched"
	case StatusReview:
		return "review"
	case StatusNoMatch:
		return "no-match"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ExportValue is the status literal written into enriched CSV output.
func (s Status) ExportValue() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusReview:
		return "needs_review"
	default:
		return "no_match"
	}
}

// MarshalText lets Status render as its string form in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the string form produced by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = StatusPending
	case "matched":
		*s = StatusMatched
	case "review":
		*s = StatusReview
	case "no-match":
		*s = StatusNoMatch
	default:
		return fmt.Errorf("record: unknown status %q", text)
	}
	return nil
}

// Result is the per-record outcome of a reconciliation run. Candidates are
// ordered by descending score, ties keeping the service's original order.
// Selected, when non-nil, is one of Candidates and implies StatusMatched.
type Result struct {
	RecordID   string      `json:"record_id"`
	Candidates []Candidate `json:"candidates"`
	Status     Status      `json:"status"`
	Selected   *Candidate  `json:"selected,omitempty"`
}

// RunStats aggregates decision states across a run. The four counters always
// sum to the total record count.
type RunStats struct {
	Matched int `json:"matched"`
	Review  int `json:"review"`
	NoMatch int `json:"no_match"`
	Pending int `json:"pending"`
}

// Total returns the number of records the stats cover.
func (s RunStats) Total() int {
	return s.Matched + s.Review + s.NoMatch + s.Pending
}
