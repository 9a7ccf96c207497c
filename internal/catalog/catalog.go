// Package catalog builds and versions the Element Catalog: a position-ordered enumeration of
// visible, interactable elements on the current page, each carrying a stable index, a primary
// robust selector, and backup selectors.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

// Section classifies where an entry sits on the page, for display. Build sets it on each entry;
// entries are not grouped or reordered by section.
type Section string

const (
	SectionNav     Section = "nav"
	SectionForm    Section = "form"
	SectionAction  Section = "action"
	SectionContent Section = "content"
)

// BBox is an element's viewport-relative bounding box in CSS pixels.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// State captures the subset of element state the planner needs to reason about affordances.
type State struct {
	Disabled bool `json:"disabled"`
	Selected bool `json:"selected"`
	Expanded bool `json:"expanded"`
	Visible  bool `json:"visible"`
}

// CatalogEntry is one row of the catalog: a stable index plus enough selector redundancy that
// the resolver can recover the element even after minor DOM churn.
type CatalogEntry struct {
	Index     int           `json:"index"`
	Role      string        `json:"role"`
	Label     string        `json:"label"`
	Tag       string        `json:"tag"`
	Section   Section       `json:"section"`
	Primary   dsl.Selector  `json:"primary"`
	Fallbacks []dsl.Selector `json:"fallbacks"`
	BBox      BBox          `json:"bbox"`
	State     State         `json:"state"`
	NearText  string        `json:"near_text"`
}

// Catalog is the immutable snapshot returned by Build: a version identifying the page state it
// was built from and the ordered entries themselves. A Catalog is a pure value; rebuilding
// produces a new one rather than mutating an existing one, so callers can compare versions
// without worrying about a rebuild clobbering a catalog still in use.
type Catalog struct {
	Version string         `json:"version"`
	URL     string         `json:"url"`
	Entries []CatalogEntry `json:"entries"`
}

// EntryAt returns the entry with the given stable index, or false if it is out of range. The
// catalog is dense and 0-based by construction, so this is a simple bounds check today, but the
// lookup is expressed as a search rather than direct indexing in case a future revision makes
// indices sparse (e.g. to survive partial incremental rebuilds).
func (c Catalog) EntryAt(index int) (CatalogEntry, bool) {
	for _, e := range c.Entries {
		if e.Index == index {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// computeVersion hashes the page URL, a structural digest of the DOM, and the viewport
// dimensions into the catalog Version. Two builds from the same page state (no navigation, no
// structural DOM change, same viewport) must produce the same version so that a redundant
// catalog refresh is a no-op.
func computeVersion(url, structuralDigest, viewport string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(structuralDigest))
	h.Write([]byte{0})
	h.Write([]byte(viewport))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// structuralDigest summarizes the shape of the catalog (tag+role+section per entry, in paint
// order) so that cosmetic text-only changes (e.g. a clock widget ticking) don't spuriously
// invalidate the catalog, while structural changes (elements added/removed/reordered) do.
func structuralDigest(entries []CatalogEntry) string {
	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s|%s|%s;", e.Tag, e.Role, e.Section)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// sortByPaintOrder orders entries top-to-bottom, left-to-right, which is also the order stable
// indices are assigned in.
func sortByPaintOrder(entries []CatalogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].BBox, entries[j].BBox
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}
