package catalog

import (
	"fmt"
	"strings"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

// RawNode is the browser-agnostic description of one DOM node, as reported by whichever
// internal/browsercap backend is active. It carries everything the build procedure needs to
// decide visibility, section, selector generation, and paint order, without the catalog package
// depending on Playwright or chromedp types directly.
type RawNode struct {
	Tag         string
	Role        string
	Label       string
	Text        string
	NearText    string
	ID          string
	TestID      string
	AriaLabel   string
	XPath       string
	CSSPath     string
	NthOfType   int
	Interactive bool
	Decorative  bool
	Disabled    bool
	Selected    bool
	Expanded    bool
	Visible     bool
	OnScreen    bool
	BBox        BBox
	FormGroup   string
}

// section classifies a raw node using its tag/role, matching the taxonomy catalog entries
// expose to the planner.
func section(n RawNode) Section {
	switch {
	case n.FormGroup != "" || n.Tag == "input" || n.Tag == "select" || n.Tag == "textarea":
		return SectionForm
	case n.Tag == "nav" || n.Role == "navigation":
		return SectionNav
	case n.Tag == "button" || n.Role == "button" || n.Tag == "a":
		return SectionAction
	default:
		return SectionContent
	}
}

// Build constructs a Catalog from the raw nodes a browsercap backend reports for the current
// page. It filters to visible, on-screen, interactable elements, drops nodes marked decorative
// (they are not merged into a parent), orders the result in stable paint order, assigns 0-based indices, and
// computes a version over the result.
func Build(url, viewport string, nodes []RawNode) Catalog {
	filtered := make([]RawNode, 0, len(nodes))
	for _, n := range nodes {
		if !n.Visible || !n.OnScreen || n.Decorative {
			continue
		}
		if !n.Interactive {
			continue
		}
		filtered = append(filtered, n)
	}

	entries := make([]CatalogEntry, 0, len(filtered))
	for i, n := range filtered {
		primary, fallbacks := selectorsFor(n)
		entries = append(entries, CatalogEntry{
			Role:      n.Role,
			Label:     n.Label,
			Tag:       n.Tag,
			Section:   section(n),
			Primary:   primary,
			Fallbacks: fallbacks,
			BBox:      n.BBox,
			State: State{
				Disabled: n.Disabled,
				Selected: n.Selected,
				Expanded: n.Expanded,
				Visible:  n.Visible,
			},
			NearText: n.NearText,
		})
		_ = i
	}

	sortByPaintOrder(entries)
	for i := range entries {
		entries[i].Index = i
	}

	digest := structuralDigest(entries)
	return Catalog{
		Version: computeVersion(url, digest, viewport),
		URL:     url,
		Entries: entries,
	}
}

// selectorsFor picks the primary selector and an ordered list of fallbacks for a raw node,
// trying strategies from strongest to weakest: id, testid, role+name, aria-label, text,
// nth-of-type CSS, absolute XPath. The primary is the strongest available strategy; every
// weaker-but-available strategy is kept as a fallback for the selector resolver's escalation
// ladder.
func selectorsFor(n RawNode) (dsl.Selector, []dsl.Selector) {
	var candidates []dsl.Selector

	if n.ID != "" {
		candidates = append(candidates, dsl.Selector{Strategy: dsl.StrategyCSS, Value: "#" + n.ID})
	}
	if n.TestID != "" {
		candidates = append(candidates, dsl.Selector{Strategy: dsl.StrategyTestID, Value: n.TestID})
	}
	if n.Role != "" && n.Label != "" {
		candidates = append(candidates, dsl.Selector{Strategy: dsl.StrategyRole, Value: n.Role, RoleName: n.Label})
	}
	if n.AriaLabel != "" {
		candidates = append(candidates, dsl.Selector{Strategy: dsl.StrategyAriaLabel, Value: n.AriaLabel})
	}
	if n.Text != "" {
		candidates = append(candidates, dsl.Selector{Strategy: dsl.StrategyText, Value: n.Text})
	}
	if n.CSSPath != "" {
		value := n.CSSPath
		if n.NthOfType > 0 {
			value = fmt.Sprintf("%s:nth-of-type(%d)", n.CSSPath, n.NthOfType)
		}
		candidates = append(candidates, dsl.Selector{Strategy: dsl.StrategyCSS, Value: value})
	}
	if n.XPath != "" {
		candidates = append(candidates, dsl.Selector{Strategy: dsl.StrategyXPath, Value: n.XPath})
	}

	if len(candidates) == 0 {
		// No identifying attribute at all: fall back to a text-match on whatever label we have,
		// even if empty, so callers always get a usable (if weak) primary selector.
		return dsl.Selector{Strategy: dsl.StrategyText, Value: strings.TrimSpace(n.Label)}, nil
	}

	return candidates[0], candidates[1:]
}
