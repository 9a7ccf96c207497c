package browsercap

import (
	"encoding/json"
	"fmt"

	"github.com/kestrelbrowse/webagent/internal/catalog"
)

// domWalkerScript enumerates visible, interactable elements and their catalog-relevant
// attributes: visibility, paint order, and a decorative flag that catalog.Build uses to drop the
// node. It is evaluated in-page by both backends and its JSON result is decoded into
// []catalog.RawNode by decodeRawNodes.
const domWalkerScript = `(() => {
  const isVisible = (el) => {
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') return false;
    const rect = el.getBoundingClientRect();
    return rect.width > 0 && rect.height > 0;
  };
  const interactiveTags = new Set(['A', 'BUTTON', 'INPUT', 'SELECT', 'TEXTAREA']);
  const isInteractive = (el) => {
    if (interactiveTags.has(el.tagName)) return true;
    const role = el.getAttribute('role');
    if (role && ['button', 'link', 'checkbox', 'radio', 'tab', 'menuitem'].includes(role)) return true;
    return el.hasAttribute('onclick') || el.tabIndex >= 0;
  };
  const nodes = [];
  const all = document.querySelectorAll('body, body *');
  for (const el of all) {
    if (!isInteractive(el)) continue;
    const visible = isVisible(el);
    const rect = el.getBoundingClientRect();
    nodes.push({
      tag: el.tagName.toLowerCase(),
      role: el.getAttribute('role') || '',
      label: (el.getAttribute('aria-label') || el.innerText || el.value || '').slice(0, 200),
      text: (el.innerText || '').trim().slice(0, 200),
      near_text: (el.closest('label') ? el.closest('label').innerText : '').slice(0, 200),
      id: el.id || '',
      test_id: el.getAttribute('data-testid') || '',
      aria_label: el.getAttribute('aria-label') || '',
      disabled: !!el.disabled,
      selected: !!el.selected || el.getAttribute('aria-selected') === 'true',
      expanded: el.getAttribute('aria-expanded') === 'true',
      visible: visible,
      on_screen: rect.bottom > 0 && rect.top < window.innerHeight,
      interactive: true,
      decorative: el.getAttribute('aria-hidden') === 'true',
      bbox: { x: rect.x, y: rect.y, w: rect.width, h: rect.height },
    });
  }
  return JSON.stringify(nodes);
})()`

// wireRawNode is the JSON shape domWalkerScript produces; decodeRawNodes converts it to the
// backend-agnostic catalog.RawNode.
type wireRawNode struct {
	Tag        string  `json:"tag"`
	Role       string  `json:"role"`
	Label      string  `json:"label"`
	Text       string  `json:"text"`
	NearText   string  `json:"near_text"`
	ID         string  `json:"id"`
	TestID     string  `json:"test_id"`
	AriaLabel  string  `json:"aria_label"`
	Disabled   bool    `json:"disabled"`
	Selected   bool    `json:"selected"`
	Expanded   bool    `json:"expanded"`
	Visible    bool    `json:"visible"`
	OnScreen   bool    `json:"on_screen"`
	Interactive bool   `json:"interactive"`
	Decorative bool    `json:"decorative"`
	BBox       struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	} `json:"bbox"`
}

// decodeRawNodes accepts either the raw JSON string domWalkerScript returns (Playwright) or a
// value already unmarshaled by the CDP runtime evaluator (chromedp), normalizing both into
// []catalog.RawNode.
func decodeRawNodes(result interface{}) ([]catalog.RawNode, error) {
	var raw []byte
	switch v := result.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("browsercap: unexpected node enumeration result type %T: %w", result, err)
		}
		raw = encoded
	}

	var wire []wireRawNode
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("browsercap: failed to decode node enumeration result: %w", err)
	}

	nodes := make([]catalog.RawNode, 0, len(wire))
	for _, w := range wire {
		nodes = append(nodes, catalog.RawNode{
			Tag:         w.Tag,
			Role:        w.Role,
			Label:       w.Label,
			Text:        w.Text,
			NearText:    w.NearText,
			ID:          w.ID,
			TestID:      w.TestID,
			AriaLabel:   w.AriaLabel,
			Disabled:    w.Disabled,
			Selected:    w.Selected,
			Expanded:    w.Expanded,
			Visible:     w.Visible,
			OnScreen:    w.OnScreen,
			Interactive: w.Interactive,
			Decorative:  w.Decorative,
			BBox:        catalog.BBox{X: w.BBox.X, Y: w.BBox.Y, W: w.BBox.W, H: w.BBox.H},
		})
	}
	return nodes, nil
}
