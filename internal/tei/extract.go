package tei

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/record"
)

// Entities groups extracted records by kind.
type Entities struct {
	Persons  []record.SourceRecord
	Places   []record.SourceRecord
	Orgs     []record.SourceRecord
	Concepts []record.SourceRecord
}

// Total is the record count across all four buckets.
func (e *Entities) Total() int {
	return len(e.Persons) + len(e.Places) + len(e.Orgs) + len(e.Concepts)
}

// All returns every record in bucket order: persons, places, orgs, concepts.
func (e *Entities) All() []record.SourceRecord {
	out := make([]record.SourceRecord, 0, e.Total())
	out = append(out, e.Persons...)
	out = append(out, e.Places...)
	out = append(out, e.Orgs...)
	out = append(out, e.Concepts...)
	return out
}

// ByKind returns one bucket.
func (e *Entities) ByKind(k record.Kind) []record.SourceRecord {
	switch k {
	case record.KindPerson:
		return e.Persons
	case record.KindPlace:
		return e.Places
	case record.KindOrg:
		return e.Orgs
	case record.KindConcept:
		return e.Concepts
	default:
		return nil
	}
}

// Extract walks the document and collects person, place, org, and category
// entities. An entity with no resolvable name is skipped with a warning;
// extraction never fails the whole file for one bad entity.
func Extract(doc *Document) *Entities {
	root := doc.tree.Root()
	entities := &Entities{}

	for i, el := range elementsByTag(root, "person") {
		if rec, ok := extractPerson(el, i); ok {
			entities.Persons = append(entities.Persons, rec)
		}
	}
	for i, el := range elementsByTag(root, "place") {
		if rec, ok := extractPlace(el, i); ok {
			entities.Places = append(entities.Places, rec)
		}
	}
	for i, el := range elementsByTag(root, "org") {
		if rec, ok := extractOrg(el, i); ok {
			entities.Orgs = append(entities.Orgs, rec)
		}
	}
	for i, el := range elementsByTag(root, "category") {
		if rec, ok := extractCategory(el, i); ok {
			entities.Concepts = append(entities.Concepts, rec)
		}
	}

	zap.L().Info("tei: extracted entities",
		zap.Int("persons", len(entities.Persons)),
		zap.Int("places", len(entities.Places)),
		zap.Int("orgs", len(entities.Orgs)),
		zap.Int("concepts", len(entities.Concepts)),
		zap.Int("total", entities.Total()),
	)
	return entities
}

func extractPerson(el *etree.Element, index int) (record.SourceRecord, bool) {
	xmlID := anchorID(el, "person", index)

	// Prefer structured forename/surname, fall back to the flattened
	// persName text.
	var name string
	if persName := firstByTag(el, "persName"); persName != nil {
		forename := childText(persName, "forename")
		surname := childText(persName, "surname")
		name = joinNonEmpty(forename, surname)
		if name == "" {
			name = strings.TrimSpace(textContent(persName))
		}
	}
	if name == "" {
		zap.L().Warn("tei: person has no name, skipping", zap.String("xml_id", xmlID))
		return record.SourceRecord{}, false
	}

	return record.SourceRecord{
		ID:           uuid.NewString(),
		DisplayValue: name,
		Kind:         record.KindPerson,
		Context: []record.ContextField{
			{Name: "birth", Value: childText(el, "birth")},
			{Name: "death", Value: childText(el, "death")},
			{Name: "sex", Value: childText(el, "sex")},
		},
		ExistingRef: parseRef(el.SelectAttrValue("ref", "")),
		Anchor:      record.Anchor{XMLID: xmlID},
	}, true
}

func extractPlace(el *etree.Element, index int) (record.SourceRecord, bool) {
	xmlID := anchorID(el, "place", index)

	name := childText(el, "placeName")
	if name == "" {
		zap.L().Warn("tei: place has no name, skipping", zap.String("xml_id", xmlID))
		return record.SourceRecord{}, false
	}

	return record.SourceRecord{
		ID:           uuid.NewString(),
		DisplayValue: name,
		Kind:         record.KindPlace,
		Context: []record.ContextField{
			{Name: "settlement", Value: childText(el, "settlement")},
			{Name: "region", Value: childText(el, "region")},
			{Name: "country", Value: childText(el, "country")},
		},
		ExistingRef: parseRef(el.SelectAttrValue("ref", "")),
		Anchor:      record.Anchor{XMLID: xmlID},
	}, true
}

func extractOrg(el *etree.Element, index int) (record.SourceRecord, bool) {
	xmlID := anchorID(el, "org", index)

	name := childText(el, "orgName")
	if name == "" {
		zap.L().Warn("tei: org has no name, skipping", zap.String("xml_id", xmlID))
		return record.SourceRecord{}, false
	}

	return record.SourceRecord{
		ID:           uuid.NewString(),
		DisplayValue: name,
		Kind:         record.KindOrg,
		Context: []record.ContextField{
			{Name: "settlement", Value: childText(el, "settlement")},
			{Name: "region", Value: childText(el, "region")},
			{Name: "desc", Value: childText(el, "desc")},
		},
		ExistingRef: parseRef(el.SelectAttrValue("ref", "")),
		Anchor:      record.Anchor{XMLID: xmlID},
	}, true
}

// extractCategory extracts a taxonomy category as a concept record. The name
// comes from catDesc > term, falling back to the catDesc text. When the
// category element itself carries no ref, the nested term is checked too;
// a ref found there marks the term as the write-back target.
func extractCategory(el *etree.Element, index int) (record.SourceRecord, bool) {
	xmlID := anchorID(el, "category", index)

	var name string
	var term *etree.Element
	if catDesc := firstByTag(el, "catDesc"); catDesc != nil {
		term = firstByTag(catDesc, "term")
		if term != nil {
			name = strings.TrimSpace(textContent(term))
		} else {
			name = strings.TrimSpace(textContent(catDesc))
		}
	}
	if name == "" {
		zap.L().Warn("tei: category has no term, skipping", zap.String("xml_id", xmlID))
		return record.SourceRecord{}, false
	}

	rec := record.SourceRecord{
		ID:           uuid.NewString(),
		DisplayValue: name,
		Kind:         record.KindConcept,
		ExistingRef:  parseRef(el.SelectAttrValue("ref", "")),
		Anchor:       record.Anchor{XMLID: xmlID},
	}

	if rec.ExistingRef == nil && term != nil {
		if termRef := parseRef(term.SelectAttrValue("ref", "")); termRef != nil {
			rec.ExistingRef = termRef
			rec.Anchor.RefOnTerm = true
		}
	}

	return rec, true
}

var (
	wdPrefixRe = regexp.MustCompile(`(?i)^wd:(q\d+)$`)
	qidRe      = regexp.MustCompile(`[Qq]\d+`)
)

// parseRef recognizes pre-existing Wikidata references in either the
// prefixed form "wd:Q123" (case-insensitive) or a full entity URL, and
// normalizes both to an upper-case QID plus canonical URL.
func parseRef(ref string) *record.ExternalRef {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	if m := wdPrefixRe.FindStringSubmatch(ref); m != nil {
		qid := strings.ToUpper(m[1])
		return &record.ExternalRef{
			ID:  qid,
			URL: "http://www.wikidata.org/entity/" + qid,
		}
	}

	if strings.Contains(ref, "wikidata.org/entity/") {
		if qid := qidRe.FindString(ref); qid != "" {
			return &record.ExternalRef{
				ID:  strings.ToUpper(qid),
				URL: ref,
			}
		}
	}

	return nil
}

// anchorID returns the element's xml:id, or a positional fallback for
// elements without one.
func anchorID(el *etree.Element, kind string, index int) string {
	if id := el.SelectAttrValue("xml:id", ""); id != "" {
		return id
	}
	return fmt.Sprintf("%s_%d", kind, index)
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
