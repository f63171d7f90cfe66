package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"launchdock/internal/domain"
	"launchdock/internal/infra/tracer"
)

// Request timeouts. Model listing is a cheap metadata call; chat completion
// can legitimately take minutes of generation latency and must not be
// mistaken for a network fault.
const (
	modelsTimeout = 30 * time.Second
	chatTimeout   = 5 * time.Minute
)

// Store provides the settings read on every call and the model-registry
// write performed after a successful fetch.
type Store interface {
	AISettings(ctx context.Context) (domain.AISettings, error)
	SaveModels(ctx context.Context, models []domain.Model) error
}

// Client is a stateless wrapper around an OpenAI-compatible chat-completion
// and models-list endpoint. Settings are re-read from the store on every
// call; nothing is cached.
type Client struct {
	store        Store
	logger       *slog.Logger
	modelsClient *http.Client
	chatClient   *http.Client
}

// NewClient creates a chat client with configured timeouts.
func NewClient(store Store, logger *slog.Logger) *Client {
	return &Client{
		store:        store,
		logger:       logger,
		modelsClient: &http.Client{Timeout: modelsTimeout},
		chatClient:   &http.Client{Timeout: chatTimeout},
	}
}

// FetchModels lists the backend's models and persists them to the model
// registry before returning.
func (c *Client) FetchModels(ctx context.Context) ([]domain.Model, error) {
	settings, err := c.store.AISettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.Enabled {
		return nil, domain.ErrAIDisabled
	}
	return c.FetchModelsFrom(ctx, settings.EndpointURL, settings.APIKey)
}

// FetchModelsFrom lists models from a specific endpoint regardless of the
// master switch. Used when validating a new endpoint before enabling it.
func (c *Client) FetchModelsFrom(ctx context.Context, endpointURL, apiKey string) ([]domain.Model, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.fetch_models")
	defer span.End()

	url := strings.TrimRight(endpointURL, "/") + "/v1/models"
	body, err := doGetRequest(ctx, c.modelsClient, url, authHeaders(apiKey))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var resp modelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: %s", domain.ErrDecode, err)
	}

	models := make([]domain.Model, 0, len(resp.Data))
	for _, m := range resp.Data {
		models = append(models, domain.Model{ID: m.ID, Created: m.Created})
	}

	if err := c.store.SaveModels(ctx, models); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("save models: %w", err)
	}

	span.SetAttributes(tracer.IntAttr("llm.models", len(models)))
	tracer.SetOK(span)
	c.logger.Debug("models fetched", "count", len(models))
	return models, nil
}

// ChatCompletion sends one chat-completion request. Tools may be nil to
// disable function calling for the call.
func (c *Client) ChatCompletion(ctx context.Context, model string, messages []domain.Message, tools []domain.ToolSchema) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.chat",
		trace.WithAttributes(
			tracer.StringAttr("llm.model", model),
			tracer.IntAttr("llm.messages", len(messages)),
			tracer.IntAttr("llm.tools", len(tools)),
		),
	)
	defer span.End()

	settings, err := c.store.AISettings(ctx)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.Enabled {
		tracer.RecordError(span, domain.ErrAIDisabled)
		return nil, domain.ErrAIDisabled
	}

	body, err := json.Marshal(toWireRequest(model, messages, tools))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(settings.EndpointURL, "/") + "/v1/chat/completions"
	respBody, err := doJSONRequest(ctx, c.chatClient, url, body, authHeaders(settings.APIKey))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var wireResp wireResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: %s", domain.ErrDecode, err)
	}

	result := fromWireResponse(wireResp)
	span.SetAttributes(
		tracer.IntAttr("llm.prompt_tokens", result.Usage.PromptTokens),
		tracer.IntAttr("llm.completion_tokens", result.Usage.CompletionTokens),
	)
	tracer.SetOK(span)
	c.logger.Debug("llm chat completed",
		"model", result.Model,
		"choices", len(result.Choices),
		"tokens", result.Usage.TotalTokens,
	)
	return result, nil
}

// --- OpenAI API wire types ---

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
}

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type wireToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function wireToolCallFunction `json:"function"`
}

type wireToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
	Created int64        `json:"created"`
}

type wireChoice struct {
	Index        int             `json:"index"`
	Message      wireRespMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type wireRespMessage struct {
	Role      string         `json:"role"`
	Content   *string        `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type modelsResponse struct {
	Data []modelData `json:"data"`
}

type modelData struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
}

func toWireRequest(model string, messages []domain.Message, tools []domain.ToolSchema) wireRequest {
	msgs := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, wireMessage{Role: m.Role, Content: m.Content})
	}

	req := wireRequest{Model: model, Messages: msgs}
	if len(tools) > 0 {
		req.Tools = make([]wireTool, len(tools))
		for i, t := range tools {
			req.Tools[i] = wireTool{
				Type: "function",
				Function: wireToolFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			}
		}
	}
	return req
}

func fromWireResponse(resp wireResponse) *domain.ChatResponse {
	result := &domain.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		CreatedAt: time.Unix(resp.Created, 0),
	}

	result.Choices = make([]domain.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		msg := domain.Message{Role: c.Message.Role}
		if c.Message.Content != nil {
			msg.Content = *c.Message.Content
		}
		if len(c.Message.ToolCalls) > 0 {
			msg.ToolCalls = make([]domain.ToolCall, len(c.Message.ToolCalls))
			for i, tc := range c.Message.ToolCalls {
				msg.ToolCalls[i] = domain.ToolCall{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				}
			}
		}
		result.Choices = append(result.Choices, domain.Choice{
			Index:        c.Index,
			Message:      msg,
			FinishReason: c.FinishReason,
		})
	}
	return result
}
