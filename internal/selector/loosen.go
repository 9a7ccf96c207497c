package selector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

// classOrAttrTerm matches one class (".foo") or attribute ("[bar=baz]") term in a compound CSS
// selector, so LooserVariants can drop them one at a time.
var classOrAttrTerm = regexp.MustCompile(`(\.[\w-]+|\[[^\]]*\])`)

// LooserVariants generates progressively looser selector candidates from an overly specific
// CSS selector (multiple class/attribute terms) by dropping one term at a time until one
// matches or the ladder is exhausted. For checkboxes, radios, and text inputs it also falls
// back to an attribute-loose form.
func LooserVariants(sel dsl.Selector) []dsl.Selector {
	if sel.Strategy != dsl.StrategyCSS {
		return nil
	}

	terms := classOrAttrTerm.FindAllStringIndex(sel.Value, -1)
	if len(terms) < 2 {
		return inputTypeLooseVariant(sel)
	}

	var variants []dsl.Selector
	for dropIdx := range terms {
		loosened := dropTerm(sel.Value, terms, dropIdx)
		if loosened != "" && loosened != sel.Value {
			variants = append(variants, dsl.Selector{Strategy: dsl.StrategyCSS, Value: loosened})
		}
	}
	variants = append(variants, inputTypeLooseVariant(sel)...)
	return variants
}

// dropTerm reconstructs the selector string with the term at dropIdx removed.
func dropTerm(value string, terms [][]int, dropIdx int) string {
	var b strings.Builder
	prev := 0
	for i, t := range terms {
		if i == dropIdx {
			b.WriteString(value[prev:t[0]])
			prev = t[1]
			continue
		}
		b.WriteString(value[prev:t[0]])
		prev = t[0]
	}
	b.WriteString(value[prev:])
	return b.String()
}

// inputTypeLooseVariant generates the `input[type=checkbox]`-style attribute-loose form for
// checkbox, radio, and text inputs named in a compound selector.
func inputTypeLooseVariant(sel dsl.Selector) []dsl.Selector {
	for _, kind := range []string{"checkbox", "radio", "text"} {
		if strings.Contains(sel.Value, fmt.Sprintf("type=%s", kind)) || strings.Contains(sel.Value, fmt.Sprintf("type=\"%s\"", kind)) {
			return []dsl.Selector{{Strategy: dsl.StrategyCSS, Value: fmt.Sprintf("input[type=%s]", kind)}}
		}
	}
	return nil
}

// AccessibleTextFallback derives a text-match candidate from an aria-label or role+name
// selector, used as the last rung of the ladder for those two strategies.
func AccessibleTextFallback(sel dsl.Selector) (dsl.Selector, bool) {
	switch sel.Strategy {
	case dsl.StrategyAriaLabel:
		if sel.Value == "" {
			return dsl.Selector{}, false
		}
		return dsl.Selector{Strategy: dsl.StrategyText, Value: sel.Value}, true
	case dsl.StrategyRole:
		if sel.RoleName == "" {
			return dsl.Selector{}, false
		}
		return dsl.Selector{Strategy: dsl.StrategyText, Value: sel.RoleName}, true
	default:
		return dsl.Selector{}, false
	}
}
