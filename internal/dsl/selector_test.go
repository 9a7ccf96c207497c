package dsl

import "testing"

func TestParseSelector(t *testing.T) {
	tests := []struct {
		raw      string
		strategy Strategy
		value    string
		name     string
	}{
		{"css=#submit", StrategyCSS, "#submit", ""},
		{"#submit", StrategyCSS, "#submit", ""},
		{"xpath=//button", StrategyXPath, "//button", ""},
		{"text=Sign in", StrategyText, "Sign in", ""},
		{"aria-label=Close", StrategyAriaLabel, "Close", ""},
		{"testid=submit-btn", StrategyTestID, "submit-btn", ""},
		{"index=3", StrategyIndex, "3", ""},
		{"role=button[name=Submit]", StrategyRole, "button", "Submit"},
		{"role=button", StrategyRole, "button", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			sel, err := ParseSelector(tt.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sel.Strategy != tt.strategy || sel.Value != tt.value || sel.RoleName != tt.name {
				t.Fatalf("got %+v, want strategy=%s value=%s name=%s", sel, tt.strategy, tt.value, tt.name)
			}
		})
	}
}

func TestParseSelector_Errors(t *testing.T) {
	for _, raw := range []string{"", "index=abc", "role=[name=x]"} {
		if _, err := ParseSelector(raw); err == nil {
			t.Fatalf("expected error parsing %q", raw)
		}
	}
}

func TestSelectorString_RoundTrip(t *testing.T) {
	for _, raw := range []string{"css=#submit", "xpath=//div", "index=7", "role=button[name=Go]", "testid=x"} {
		sel, err := ParseSelector(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		again, err := ParseSelector(sel.String())
		if err != nil {
			t.Fatalf("reparse %q: %v", sel.String(), err)
		}
		if again != sel {
			t.Fatalf("round trip mismatch: %+v != %+v", again, sel)
		}
	}
}

func TestSelectorIndex(t *testing.T) {
	sel, _ := ParseSelector("index=12")
	n, ok := sel.Index()
	if !ok || n != 12 {
		t.Fatalf("expected index 12, got %d ok=%v", n, ok)
	}

	sel, _ = ParseSelector("css=#x")
	if _, ok := sel.Index(); ok {
		t.Fatalf("expected css selector to not report an index")
	}
}
