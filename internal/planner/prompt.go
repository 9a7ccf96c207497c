package planner

import (
	"fmt"
	"strings"
)

// systemPrompt describes the DSL action vocabulary to the model and the response contract it
// must follow: a short explanation plus a plan emitted through the emit_plan tool call, never
// as free text.
const systemPrompt = `You are a browser-automation planner. You are given a natural-language
goal, the conversation so far, and a snapshot of the current page (its element catalog and/or
HTML). Respond by calling the emit_plan tool exactly once with an ordered list of actions drawn
from this vocabulary: navigate, click, type, select, press_key, hover, wait, wait_for_selector,
scroll, scroll_to_text, switch_tab, focus_iframe, screenshot, extract, assert, refresh_catalog,
eval_js, go_back, go_forward, close_popup, click_blank_area.

Prefer targeting elements by their catalog index (target: {"strategy":"index","value":"<N>"})
when the element appears in the provided catalog; fall back to a css/xpath/text/role selector
only when no catalog entry fits. For navigate actions, put the destination URL in the action's
value field, not target. Keep plans short: only the actions needed to make progress toward the
goal from the current page state. If the goal already appears satisfied by the current page,
return an empty actions list and set complete to true.`

// emitPlanSchema is the JSON Schema both providers' tool definitions share, describing the
// structured output the model must produce.
const emitPlanSchema = `{
  "type": "object",
  "properties": {
    "explanation": {"type": "string", "description": "one or two sentences describing what this plan will do"},
    "complete": {"type": "boolean", "description": "true if the goal is already satisfied and no actions are needed"},
    "actions": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "kind": {"type": "string"},
          "target": {
            "type": "object",
            "properties": {
              "strategy": {"type": "string"},
              "value": {"type": "string"}
            }
          },
          "value": {"type": "string"},
          "options": {
            "type": "object",
            "properties": {
              "ms": {"type": "integer"},
              "clear": {"type": "boolean"},
              "button": {"type": "string"},
              "count": {"type": "integer"},
              "force": {"type": "boolean"},
              "until": {"type": "string"},
              "key": {"type": "string"}
            }
          }
        },
        "required": ["kind"]
      }
    }
  },
  "required": ["explanation", "actions"]
}`

const emitPlanToolName = "emit_plan"

// buildUserPrompt renders the page snapshot and command into the final user-turn text; both
// backends share this so the two providers see the same framing of page state.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", req.Command)
	if req.CatalogText != "" {
		b.WriteString("Current element catalog:\n")
		b.WriteString(req.CatalogText)
		b.WriteString("\n\n")
	}
	if req.HTML != "" {
		html := req.HTML
		const maxHTML = 20000
		if len(html) > maxHTML {
			html = html[:maxHTML] + "... (truncated)"
		}
		fmt.Fprintf(&b, "Current page HTML:\n%s\n\n", html)
	}
	if len(req.ScreenshotPNG) > 0 {
		b.WriteString("A screenshot of the current page is attached.\n\n")
	}
	return b.String()
}
