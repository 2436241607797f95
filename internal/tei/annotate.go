package tei

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dh-lab/wikimatch/internal/record"
)

// Annotate writes accepted matches into a clone of doc and returns the
// clone; the source document is never touched. For each record with a
// selected candidate the anchored element gets ref="wd:<QID>"; concept
// records flagged RefOnTerm receive it on the nested term element instead
// of the category container. Anchors that no longer resolve (the document
// may have been edited since extraction) are skipped silently.
func Annotate(doc *Document, records []record.SourceRecord, results []record.Result) *Document {
	byID := make(map[string]*record.Result, len(results))
	for i := range results {
		byID[results[i].RecordID] = &results[i]
	}

	clone := doc.Clone()
	annotated := 0

	for _, rec := range records {
		res := byID[rec.ID]
		if res == nil || res.Selected == nil || rec.Anchor.XMLID == "" {
			continue
		}

		el := clone.ResolveAnchor(rec.Anchor.XMLID)
		if el == nil {
			zap.L().Debug("tei: anchor not found, skipping",
				zap.String("xml_id", rec.Anchor.XMLID),
			)
			continue
		}

		target := el
		if rec.Anchor.RefOnTerm {
			catDesc := firstByTag(el, "catDesc")
			if catDesc == nil {
				continue
			}
			term := firstByTag(catDesc, "term")
			if term == nil {
				continue
			}
			target = term
		}

		target.CreateAttr("ref", "wd:"+res.Selected.ID)
		annotated++
	}

	zap.L().Info("tei: annotation complete", zap.Int("annotated", annotated))
	return clone
}

// ExportName builds the download filename for an annotated document.
func ExportName(now time.Time) string {
	return fmt.Sprintf("enriched_tei_%s.xml", now.UTC().Format("2006-01-02T15-04-05"))
}
