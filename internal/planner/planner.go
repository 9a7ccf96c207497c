// Package planner wraps the opaque `plan(context) → structured_plan` external collaborator:
// given the current turn's command, conversation history, and a snapshot of the page (HTML
// and/or screenshot), it asks a large language model to emit a structured dsl.Plan plus a
// short natural-language explanation the orchestrator returns to the client immediately,
// before the plan has even started executing.
//
// Two backends are provided, selected by Config.Provider: Anthropic's Claude (via
// anthropic-sdk-go) and OpenAI's GPT family (via go-openai), behind a common multi-provider
// Planner abstraction.
package planner

import (
	"context"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

// Turn is one message in the conversation history the planner is given for context, matching
// the orchestrator's `history` field.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request carries everything the planner needs to produce the next plan: the user's
// natural-language command, prior turns, and the current page snapshot.
type Request struct {
	Command      string
	History      []Turn
	HTML         string
	ScreenshotPNG []byte
	CatalogText  string // human-readable element catalog ("[0] button 'Submit'", ...)
	Model        string
}

// Response is the structured plan the orchestrator forwards to the Async Task Manager, plus the
// explanation returned to the client right away, alongside a task handle.
type Response struct {
	Explanation string
	Plan        dsl.Plan
	Complete    bool // true when the planner believes the goal is already satisfied
}

// Planner is the interface the orchestrator drives; everything about the concrete LLM backend
// is opaque behind it.
type Planner interface {
	Plan(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Provider selects which concrete Planner New constructs.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Config is the union of both backends' settings; New reads only the fields relevant to the
// selected Provider.
type Config struct {
	Provider     Provider
	Anthropic    AnthropicConfig
	OpenAI       OpenAIConfig
}

// New constructs the configured Planner backend.
func New(cfg Config) (Planner, error) {
	switch cfg.Provider {
	case "", ProviderAnthropic:
		return NewAnthropicPlanner(cfg.Anthropic), nil
	case ProviderOpenAI:
		return NewOpenAIPlanner(cfg.OpenAI), nil
	default:
		return nil, &PlannerError{Reason: ReasonInvalidRequest, Message: "unknown planner provider: " + string(cfg.Provider)}
	}
}
