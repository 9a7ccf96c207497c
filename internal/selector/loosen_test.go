package selector

import (
	"testing"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

func TestLooserVariants_DropsOneTermAtATime(t *testing.T) {
	sel := dsl.Selector{Strategy: dsl.StrategyCSS, Value: "button.primary.large[data-id=1]"}
	variants := LooserVariants(sel)
	if len(variants) == 0 {
		t.Fatalf("expected at least one looser variant")
	}
	for _, v := range variants {
		if v.Value == sel.Value {
			t.Fatalf("variant should differ from the original: %q", v.Value)
		}
	}
}

func TestLooserVariants_NoOpForSimpleSelector(t *testing.T) {
	sel := dsl.Selector{Strategy: dsl.StrategyCSS, Value: "#submit"}
	if variants := LooserVariants(sel); len(variants) != 0 {
		t.Fatalf("expected no looser variants for a single-term selector, got %v", variants)
	}
}

func TestLooserVariants_InputTypeLooseForm(t *testing.T) {
	sel := dsl.Selector{Strategy: dsl.StrategyCSS, Value: "input.form-check[type=checkbox]"}
	variants := LooserVariants(sel)
	found := false
	for _, v := range variants {
		if v.Value == "input[type=checkbox]" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an input[type=checkbox] loose variant, got %v", variants)
	}
}

func TestLooserVariants_NotAppliedToNonCSS(t *testing.T) {
	sel := dsl.Selector{Strategy: dsl.StrategyXPath, Value: "//button"}
	if variants := LooserVariants(sel); variants != nil {
		t.Fatalf("expected nil for non-css selector, got %v", variants)
	}
}

func TestAccessibleTextFallback(t *testing.T) {
	sel, ok := AccessibleTextFallback(dsl.Selector{Strategy: dsl.StrategyAriaLabel, Value: "Close"})
	if !ok || sel.Strategy != dsl.StrategyText || sel.Value != "Close" {
		t.Fatalf("unexpected fallback: %+v ok=%v", sel, ok)
	}

	sel, ok = AccessibleTextFallback(dsl.Selector{Strategy: dsl.StrategyRole, Value: "button", RoleName: "Submit"})
	if !ok || sel.Value != "Submit" {
		t.Fatalf("unexpected role fallback: %+v ok=%v", sel, ok)
	}

	if _, ok := AccessibleTextFallback(dsl.Selector{Strategy: dsl.StrategyCSS, Value: "#x"}); ok {
		t.Fatalf("expected no fallback for css selector")
	}
}
