package planner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

// AnthropicConfig holds an API key plus optional retry and default-model overrides, all
// defaulted in NewAnthropicPlanner.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// AnthropicPlanner implements Planner against Claude's Messages API, forcing a single
// emit_plan tool call rather than streaming free text, since the planner's whole job is to
// produce one structured value per turn.
type AnthropicPlanner struct {
	client       anthropic.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// NewAnthropicPlanner constructs an AnthropicPlanner, applying default settings (3 attempts in
// total, 1s base delay, claude-sonnet-4 default model) for any field left unset.
func NewAnthropicPlanner(cfg AnthropicConfig) *AnthropicPlanner {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicPlanner{
		client:       anthropic.NewClient(opts...),
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}
}

func (p *AnthropicPlanner) Name() string { return "anthropic" }

func (p *AnthropicPlanner) Plan(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var schema anthropic.ToolInputSchemaParam
	if err := json.Unmarshal([]byte(emitPlanSchema), &schema); err != nil {
		return Response{}, NewPlannerError("anthropic", model, fmt.Errorf("invalid emit_plan schema: %w", err))
	}
	toolParam := anthropic.ToolUnionParamOfTool(schema, emitPlanToolName)
	toolParam.OfTool.Description = anthropic.String("Emit the next browser-automation plan")

	content := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(buildUserPrompt(req))}
	if len(req.ScreenshotPNG) > 0 {
		content = append(content, anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(req.ScreenshotPNG)))
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 2048,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  append(historyMessages(req.History), anthropic.NewUserMessage(content...)),
		Tools:     []anthropic.ToolUnionParam{toolParam},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: emitPlanToolName},
		},
	}

	var msg *anthropic.Message
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}
		msg, lastErr = p.client.Messages.New(ctx, params)
		if lastErr == nil {
			break
		}
		if !IsRetryable(lastErr) {
			return Response{}, NewPlannerError("anthropic", model, lastErr)
		}
	}
	if lastErr != nil {
		return Response{}, NewPlannerError("anthropic", model, fmt.Errorf("max retries exceeded: %w", lastErr))
	}

	return parseEmitPlanCall(msg.Content, model)
}

func historyMessages(turns []Turn) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}
	return msgs
}

// planPayload is the JSON shape emit_plan's Input carries; it mirrors emitPlanSchema.
type planPayload struct {
	Explanation string      `json:"explanation"`
	Complete    bool        `json:"complete"`
	Actions     []dsl.Action `json:"actions"`
}

func parseEmitPlanCall(blocks []anthropic.ContentBlockUnion, model string) (Response, error) {
	for _, block := range blocks {
		toolUse := block.AsToolUse()
		if toolUse.Name != emitPlanToolName {
			continue
		}
		var payload planPayload
		if err := json.Unmarshal(toolUse.Input, &payload); err != nil {
			return Response{}, &PlannerError{Reason: ReasonParseFailed, Provider: "anthropic", Model: model,
				Message: fmt.Sprintf("emit_plan payload did not match the expected shape: %v", err)}
		}
		return Response{
			Explanation: payload.Explanation,
			Complete:    payload.Complete,
			Plan:        dsl.Plan{Actions: payload.Actions},
		}, nil
	}
	return Response{}, &PlannerError{Reason: ReasonParseFailed, Provider: "anthropic", Model: model,
		Message: "model response did not include an emit_plan tool call"}
}
