package planner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kestrelbrowse/webagent/internal/dsl"
)

// OpenAIConfig holds the settings needed to construct an OpenAIPlanner.
type OpenAIConfig struct {
	APIKey       string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// OpenAIPlanner implements Planner against the Chat Completions API, forcing a single
// emit_plan function call and waiting for the complete response rather than streaming, since
// the planner needs one complete value, not incremental tokens.
type OpenAIPlanner struct {
	client       *openai.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

func NewOpenAIPlanner(cfg OpenAIConfig) *OpenAIPlanner {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4o"
	}

	var client *openai.Client
	if cfg.APIKey != "" {
		client = openai.NewClient(cfg.APIKey)
	}

	return &OpenAIPlanner{
		client:       client,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		defaultModel: cfg.DefaultModel,
	}
}

func (p *OpenAIPlanner) Name() string { return "openai" }

func (p *OpenAIPlanner) Plan(ctx context.Context, req Request) (Response, error) {
	if p.client == nil {
		return Response{}, &PlannerError{Reason: ReasonAuth, Provider: "openai", Message: "OpenAI API key not configured"}
	}

	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(emitPlanSchema), &schema); err != nil {
		return Response{}, NewPlannerError("openai", model, fmt.Errorf("invalid emit_plan schema: %w", err))
	}

	messages := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: systemPrompt}}
	for _, t := range req.History {
		role := openai.ChatMessageRoleUser
		if t.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.ScreenshotPNG) > 0 {
		userMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: buildUserPrompt(req)},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.ScreenshotPNG),
				Detail: openai.ImageURLDetailAuto,
			}},
		}
	} else {
		userMsg.Content = buildUserPrompt(req)
	}
	messages = append(messages, userMsg)

	chatReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        emitPlanToolName,
				Description: "Emit the next browser-automation plan",
				Parameters:  schema,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: emitPlanToolName},
		},
	}

	var resp openai.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt < p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(p.retryDelay * time.Duration(attempt)):
			}
		}
		resp, lastErr = p.client.CreateChatCompletion(ctx, chatReq)
		if lastErr == nil {
			break
		}
		if !IsRetryable(lastErr) {
			return Response{}, NewPlannerError("openai", model, lastErr)
		}
	}
	if lastErr != nil {
		return Response{}, NewPlannerError("openai", model, fmt.Errorf("max retries exceeded: %w", lastErr))
	}

	return parseToolCall(resp, model)
}

func parseToolCall(resp openai.ChatCompletionResponse, model string) (Response, error) {
	if len(resp.Choices) == 0 {
		return Response{}, &PlannerError{Reason: ReasonParseFailed, Provider: "openai", Model: model, Message: "empty completion"}
	}
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name != emitPlanToolName {
			continue
		}
		var payload planPayload
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &payload); err != nil {
			return Response{}, &PlannerError{Reason: ReasonParseFailed, Provider: "openai", Model: model,
				Message: fmt.Sprintf("emit_plan payload did not match the expected shape: %v", err)}
		}
		return Response{
			Explanation: payload.Explanation,
			Complete:    payload.Complete,
			Plan:        dsl.Plan{Actions: payload.Actions},
		}, nil
	}
	return Response{}, &PlannerError{Reason: ReasonParseFailed, Provider: "openai", Model: model,
		Message: "model response did not include an emit_plan tool call"}
}
