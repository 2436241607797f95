// Package tei parses TEI XML documents, extracts reconcilable entities from
// their person/place/org/category lists, and writes accepted matches back as
// ref attributes on a cloned tree.
package tei

import (
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
	"github.com/rotisserie/eris"
)

// Namespace is the TEI namespace URI. Lookups match on local tag name so
// documents with or without the namespace declaration both work.
const Namespace = "http://www.tei-c.org/ns/1.0"

// Document wraps a parsed TEI tree.
type Document struct {
	tree *etree.Document
}

// Parse reads a TEI XML document from r.
func Parse(r io.Reader) (*Document, error) {
	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, eris.Wrap(err, "tei: parse xml")
	}
	if tree.Root() == nil {
		return nil, eris.New("tei: document has no root element")
	}
	return &Document{tree: tree}, nil
}

// ParseFile reads a TEI XML document from a file.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "tei: open file")
	}
	defer f.Close() //nolint:errcheck
	return Parse(f)
}

// Clone returns a deep structural copy. Annotation always operates on a
// clone so the source document is never mutated.
func (d *Document) Clone() *Document {
	return &Document{tree: d.tree.Copy()}
}

// WriteTo serializes the document, implementing io.WriterTo.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := d.tree.WriteTo(w)
	if err != nil {
		return n, eris.Wrap(err, "tei: serialize xml")
	}
	return n, nil
}

// String returns the serialized document.
func (d *Document) String() (string, error) {
	return d.tree.WriteToString()
}

// ResolveAnchor finds the element carrying the given xml:id, or nil when the
// document (possibly edited since extraction) no longer contains it.
func (d *Document) ResolveAnchor(xmlID string) *etree.Element {
	if xmlID == "" {
		return nil
	}
	var found *etree.Element
	walk(d.tree.Root(), func(e *etree.Element) bool {
		if e.SelectAttrValue("xml:id", "") == xmlID {
			found = e
			return false
		}
		return true
	})
	return found
}

// walk visits el and its descendants in document order until fn returns
// false.
func walk(el *etree.Element, fn func(*etree.Element) bool) bool {
	if el == nil {
		return true
	}
	if !fn(el) {
		return false
	}
	for _, child := range el.ChildElements() {
		if !walk(child, fn) {
			return false
		}
	}
	return true
}

// elementsByTag returns all descendants of root with the given local tag
// name, in document order.
func elementsByTag(root *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range root.ChildElements() {
		walk(child, func(e *etree.Element) bool {
			if e.Tag == tag {
				out = append(out, e)
			}
			return true
		})
	}
	return out
}

// firstByTag returns the first descendant with the given local tag name.
func firstByTag(root *etree.Element, tag string) *etree.Element {
	var found *etree.Element
	for _, child := range root.ChildElements() {
		walk(child, func(e *etree.Element) bool {
			if e.Tag == tag {
				found = e
				return false
			}
			return true
		})
		if found != nil {
			break
		}
	}
	return found
}

// textContent flattens all character data beneath el, like DOM textContent.
func textContent(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	for _, child := range el.Child {
		switch n := child.(type) {
		case *etree.CharData:
			b.WriteString(n.Data)
		case *etree.Element:
			b.WriteString(textContent(n))
		}
	}
	return b.String()
}

// childText returns the trimmed text of the first descendant with the given
// tag, or "".
func childText(el *etree.Element, tag string) string {
	return strings.TrimSpace(textContent(firstByTag(el, tag)))
}
