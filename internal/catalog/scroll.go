package catalog

import "strings"

// FindByText implements scroll_to_text(substring): the first entry (in paint order, which is
// also index order) whose near-text or label contains substring, case-insensitively. Callers
// are expected to scroll the returned entry into view and then rebuild the catalog, since
// scrolling itself changes paint order.
func FindByText(c Catalog, substring string) (CatalogEntry, bool) {
	needle := strings.ToLower(strings.TrimSpace(substring))
	if needle == "" {
		return CatalogEntry{}, false
	}
	for _, e := range c.Entries {
		if strings.Contains(strings.ToLower(e.NearText), needle) || strings.Contains(strings.ToLower(e.Label), needle) {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
