// Package llm adapts internal/model.Client to concrete language-model
// backends and wraps them with the resilience behavior §4.E/§5 requires:
// an adaptive rate limiter and a bounded per-call timeout, so a slow or
// throttled provider degrades into a classified error (ModelTimeout,
// ModelUnreachable) instead of stalling the pipeline indefinitely.
package llm

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nzcrisisline/safetypipeline/internal/model"
)

// MessagesClient captures the subset of the Anthropic SDK client the
// adapter depends on, so tests can substitute a fake without an API key.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic-backed client.
type Options struct {
	// DefaultModel is used when Request.Model and Request.ModelClass are
	// both unset or unrecognized.
	DefaultModel string
	// SmallModel is used when Request.ModelClass is model.ModelClassSmall.
	SmallModel string
	// MaxTokens is the default completion cap when Request.MaxTokens is
	// zero.
	MaxTokens int
	// Temperature is the default sampling temperature when
	// Request.Temperature is zero.
	Temperature float64
}

// Client implements model.Client on top of Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	smallModel   string
	maxTokens    int
	temperature  float64
}

// New builds an Anthropic-backed model.Client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("llm: anthropic client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("llm: default model identifier is required")
	}
	return &Client{
		msg:          msg,
		defaultModel: opts.DefaultModel,
		smallModel:   opts.SmallModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a Client using the Anthropic SDK's default HTTP
// transport, configured directly from apiKey rather than the ambient
// ANTHROPIC_API_KEY environment variable.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, opts)
}

// Complete issues a non-streaming Messages.New request and translates the
// response into model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return nil, classifyError(err)
	}
	return translateResponse(msg), nil
}

func (c *Client) prepareRequest(req *model.Request) (*sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("llm: messages are required")
	}
	modelID := c.resolveModelID(req)

	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		switch m.Role {
		case model.ConversationRoleSystem:
			system = append(system, sdk.TextBlockParam{Text: m.Content})
		case model.ConversationRoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case model.ConversationRoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			return nil, fmt.Errorf("llm: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, errors.New("llm: at least one user/assistant message is required")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		return nil, errors.New("llm: max_tokens must be positive")
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
		Model:     sdk.Model(modelID),
	}
	if len(system) > 0 {
		params.System = system
	}
	temp := float64(req.Temperature)
	if temp <= 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}
	return &params, nil
}

func (c *Client) resolveModelID(req *model.Request) string {
	if req.Model != "" {
		return req.Model
	}
	if req.ModelClass == model.ModelClassSmall && c.smallModel != "" {
		return c.smallModel
	}
	return c.defaultModel
}

func translateResponse(msg *sdk.Message) *model.Response {
	resp := &model.Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		if block.Type == "text" {
			resp.Text += block.Text
		}
	}
	if u := msg.Usage; u.InputTokens != 0 || u.OutputTokens != 0 {
		resp.Usage = model.TokenUsage{
			InputTokens:  int(u.InputTokens),
			OutputTokens: int(u.OutputTokens),
			TotalTokens:  int(u.InputTokens + u.OutputTokens),
		}
	}
	return resp
}

// classifyError maps SDK errors onto the pipeline's provider error taxonomy
// (§7): an HTTP 429 becomes model.ErrRateLimited; every other error,
// including an API error response with any other status, is wrapped as
// model.ErrUnreachable. The original error stays in the chain.
func classifyError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return fmt.Errorf("%w: %w", model.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", model.ErrUnreachable, err)
}
