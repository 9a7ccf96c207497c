package catalog

import (
	"testing"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

func node(tag string, x, y float64, opts ...func(*RawNode)) RawNode {
	n := RawNode{Tag: tag, Visible: true, OnScreen: true, Interactive: true, BBox: BBox{X: x, Y: y, W: 10, H: 10}}
	for _, o := range opts {
		o(&n)
	}
	return n
}

func withID(id string) func(*RawNode)       { return func(n *RawNode) { n.ID = id } }
func withLabel(l string) func(*RawNode)     { return func(n *RawNode) { n.Label = l } }
func withText(t string) func(*RawNode)      { return func(n *RawNode) { n.Text = t } }
func notInteractive() func(*RawNode)        { return func(n *RawNode) { n.Interactive = false } }
func notVisible() func(*RawNode)            { return func(n *RawNode) { n.Visible = false } }
func decorative() func(*RawNode)            { return func(n *RawNode) { n.Decorative = true } }

func TestBuild_FiltersNonInteractiveAndInvisible(t *testing.T) {
	nodes := []RawNode{
		node("button", 0, 0, withID("go")),
		node("div", 0, 10, notInteractive()),
		node("button", 0, 20, notVisible()),
		node("span", 0, 30, decorative()),
	}
	c := Build("https://example.com", "1280x720", nodes)
	if len(c.Entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d: %+v", len(c.Entries), c.Entries)
	}
}

func TestBuild_OrdersByPaintPosition(t *testing.T) {
	nodes := []RawNode{
		node("button", 50, 100, withID("bottom")),
		node("button", 10, 10, withID("top-left")),
		node("button", 60, 10, withID("top-right")),
	}
	c := Build("https://example.com", "1280x720", nodes)
	if len(c.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(c.Entries))
	}
	if c.Entries[0].Primary.Value != "#top-left" || c.Entries[1].Primary.Value != "#top-right" {
		t.Fatalf("unexpected paint order: %+v", c.Entries)
	}
	for i, e := range c.Entries {
		if e.Index != i {
			t.Fatalf("entry %d has index %d, want %d", i, e.Index, i)
		}
	}
}

func TestBuild_SelectorPriority(t *testing.T) {
	n := node("button", 0, 0, withID("submit"))
	n.TestID = "submit-btn"
	n.Text = "Submit"
	primary, fallbacks := selectorsFor(n)
	if primary.Strategy != dsl.StrategyCSS || primary.Value != "#submit" {
		t.Fatalf("expected id to win priority, got %+v", primary)
	}
	if len(fallbacks) == 0 || fallbacks[0].Strategy != dsl.StrategyTestID {
		t.Fatalf("expected testid as first fallback, got %+v", fallbacks)
	}
}

func TestBuild_NoIdentifyingAttributeFallsBackToText(t *testing.T) {
	n := node("div", 0, 0, withLabel("mystery"))
	primary, fallbacks := selectorsFor(n)
	if primary.Strategy != dsl.StrategyText || primary.Value != "mystery" {
		t.Fatalf("expected text fallback, got %+v", primary)
	}
	if len(fallbacks) != 0 {
		t.Fatalf("expected no fallbacks, got %+v", fallbacks)
	}
}

func TestBuild_VersionStableAcrossIdenticalRebuild(t *testing.T) {
	nodes := []RawNode{node("button", 0, 0, withID("go"))}
	c1 := Build("https://example.com", "1280x720", nodes)
	c2 := Build("https://example.com", "1280x720", nodes)
	if c1.Version != c2.Version {
		t.Fatalf("expected stable version across identical rebuilds, got %q != %q", c1.Version, c2.Version)
	}
}

func TestBuild_VersionChangesOnStructuralChange(t *testing.T) {
	c1 := Build("https://example.com", "1280x720", []RawNode{node("button", 0, 0, withID("go"))})
	c2 := Build("https://example.com", "1280x720", []RawNode{
		node("button", 0, 0, withID("go")),
		node("button", 0, 20, withID("cancel")),
	})
	if c1.Version == c2.Version {
		t.Fatalf("expected version to change when an element is added")
	}
}

func TestEntryAt(t *testing.T) {
	c := Build("https://example.com", "1280x720", []RawNode{
		node("button", 0, 0, withID("a")),
		node("button", 0, 10, withID("b")),
	})
	e, ok := c.EntryAt(1)
	if !ok || e.Primary.Value != "#b" {
		t.Fatalf("expected entry 1 to be #b, got %+v ok=%v", e, ok)
	}
	if _, ok := c.EntryAt(99); ok {
		t.Fatalf("expected out-of-range index to report not found")
	}
}

func TestFindByText(t *testing.T) {
	nodes := []RawNode{
		node("a", 0, 0, withText("Home")),
		node("a", 0, 10, withText("Contact Us")),
	}
	c := Build("https://example.com", "1280x720", nodes)
	for i := range c.Entries {
		c.Entries[i].NearText = c.Entries[i].Primary.Value
	}
	c.Entries[1].NearText = "Contact Us"
	e, ok := FindByText(c, "contact")
	if !ok || e.NearText != "Contact Us" {
		t.Fatalf("expected to find Contact Us entry, got %+v ok=%v", e, ok)
	}
}

func TestIsStale(t *testing.T) {
	c := Build("https://example.com", "1280x720", []RawNode{node("button", 0, 0, withID("a"))})
	if IsStale(c, c.Version) {
		t.Fatalf("matching version should not be stale")
	}
	if !IsStale(c, "different") {
		t.Fatalf("mismatched version should be stale")
	}
}
