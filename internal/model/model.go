// Package model defines the provider-agnostic message and completion types
// used between the inference orchestrator and language-model backends.
// Unlike a general agent framework, every model call in this pipeline
// produces a single flat text response: tool use here is a textual
// grammar the composed response embeds (internal/toolcall), not a
// provider-native structured tool-call protocol, so this package carries
// none of that machinery — only what §4.E's single-turn, text-in/text-out
// collaboration needs.
package model

import (
	"context"
	"errors"
)

// ConversationRole is the role for a message in a conversation.
type ConversationRole string

const (
	ConversationRoleSystem    ConversationRole = "system"
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
)

// Message is a single chat message. Content is always plain text; the
// orchestrator composes tool-call directives as literal text inside it
// (and the model echoes them back the same way) rather than via a
// provider-native tool-use channel.
type Message struct {
	Role    ConversationRole
	Content string
}

// ModelClass identifies a model family so callers can request "the
// capable one" or "the cheap one" without naming a concrete model
// identifier.
type ModelClass string

const (
	ModelClassDefault ModelClass = "default"
	ModelClassSmall   ModelClass = "small"
)

// TokenUsage tracks token counts for a model call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Request captures inputs for a single model invocation.
type Request struct {
	// Model is the provider-specific model identifier when specified.
	Model string
	// ModelClass selects a model family when Model is not specified.
	ModelClass ModelClass
	// Messages is the ordered transcript provided to the model.
	Messages []Message
	// Temperature controls sampling when supported by the provider.
	Temperature float32
	// MaxTokens caps the number of output tokens when supported.
	MaxTokens int
}

// Response is the result of a model invocation.
type Response struct {
	// Text is the assistant's full text output, potentially containing
	// embedded [TOOL_CALL: ...] directives for internal/toolcall to parse.
	Text string
	// Usage reports token consumption for the request.
	Usage TokenUsage
	// StopReason records why generation stopped (provider-specific).
	StopReason string
}

// Client is the provider-agnostic model client consumed by the
// orchestrator. A single, synchronous Complete call is all §4.E's per-turn
// flow needs; this pipeline has no use for response streaming since the
// full text must be scanned by the classifier and executor before any of
// it reaches the user.
type Client interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ErrRateLimited indicates the provider rejected the request due to rate
// limiting after exhausting any configured retries.
var ErrRateLimited = errors.New("model: rate limited")

// ErrUnreachable indicates the provider call failed for any reason other
// than rate limiting: a connection failure, or an error response with a
// status other than 429 (§7: ModelUnreachable vs ModelTimeout).
var ErrUnreachable = errors.New("model: unreachable")
