package providers

import (
	"context"
	"fmt"
	"strings"
)

// ID identifies one upstream generation backend. The set is closed: adding a
// provider means adding a constant here, an adapter package, and an entry in
// KnownIDs.
type ID string

const (
	// OpenAI is the HTTP chat-completions backend.
	OpenAI ID = "openai"

	// Gemini is the Google generative-language HTTP backend.
	Gemini ID = "gemini"

	// Claude is the process-backed adapter around the local CLI helper.
	Claude ID = "claude"
)

// KnownIDs lists every provider in a fixed order. The failover chain appends
// these after the primary and fallback, so this order is part of the engine's
// deterministic behavior.
var KnownIDs = []ID{OpenAI, Gemini, Claude}

// ParseID converts a string to a known provider ID.
func ParseID(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownIDs {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Message is a single role-tagged unit in the canonical conversation format.
// Order within a slice of messages is the conversation turn order.
type Message struct {
	// Role is "system", "user", or "assistant"
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// Valid message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidateMessages checks that the sequence is non-empty and every role is
// one of the canonical three.
func ValidateMessages(messages []Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("message list must not be empty")
	}
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("message %d has unsupported role %q", i, msg.Role)
		}
	}
	return nil
}

// GenerationOptions carries per-call overrides. Every field is optional;
// absent fields fall back through: explicit option, cached store config,
// builtin default.
type GenerationOptions struct {
	// Provider overrides the configured primary for this call
	Provider ID `json:"provider,omitempty"`

	// Model overrides the provider's configured default model
	Model string `json:"model,omitempty"`

	// Temperature is nil when the configured default should apply
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens caps the response length; 0 means the configured default
	MaxTokens int `json:"max_tokens,omitempty"`
}

// GenerationResult is the canonical outcome of one successful call.
type GenerationResult struct {
	// Text is the full generated output
	Text string `json:"text"`

	// TokensUsed is provider-reported usage, or an estimate when the
	// provider omits usage metadata
	TokensUsed int `json:"tokens_used"`

	// Model is provider-qualified, e.g. "openai/gpt-4o-mini"
	Model string `json:"model"`

	// Provider that produced the result
	Provider ID `json:"provider"`

	// FailedOver is true when the result came from any provider other than
	// the first attempted in the chain
	FailedOver bool `json:"failed_over"`
}

// StreamSink receives incremental text chunks during a streaming call. Write
// may be called many times; there is no explicit close — end of stream is
// the generation call returning.
type StreamSink interface {
	Write(chunk string) error
}

// SinkFunc adapts a plain function to a StreamSink.
type SinkFunc func(chunk string) error

func (f SinkFunc) Write(chunk string) error { return f(chunk) }

// Provider is the uniform adapter contract every upstream backend satisfies.
type Provider interface {
	// ID returns the provider identifier
	ID() ID

	// Generate performs one unary call and returns the canonical result
	Generate(ctx context.Context, messages []Message, opts GenerationOptions) (*GenerationResult, error)

	// GenerateStream forwards incremental text to the sink as it arrives
	// and returns the canonical result at completion. Chunk delivery
	// preserves upstream emission order.
	GenerateStream(ctx context.Context, messages []Message, opts GenerationOptions, sink StreamSink) (*GenerationResult, error)
}

// ConfigSource resolves per-provider configuration at call time. Implemented
// by the settings resolver; adapters consult it on every call so that
// administrative updates take effect without restarts.
type ConfigSource interface {
	// APICredential returns the provider's key, or "" when unconfigured
	APICredential(ctx context.Context, id ID) string

	// ModelName returns the configured default model, or "" to use the
	// adapter's builtin default
	ModelName(ctx context.Context, id ID) string

	// Temperature returns the default sampling temperature
	Temperature(ctx context.Context) float64

	// MaxTokens returns the default response token ceiling
	MaxTokens(ctx context.Context) int
}

// EstimatedCharsPerToken is the fallback ratio used to approximate token
// usage when a provider omits usage metadata. A rough average for English
// text; kept as a named constant rather than buried in adapters.
const EstimatedCharsPerToken = 4

// EstimateTokens approximates the token count of text using
// EstimatedCharsPerToken. Never returns less than 1 for non-empty text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / EstimatedCharsPerToken
	if n < 1 {
		n = 1
	}
	return n
}

// QualifiedModel renders the provider-qualified model identifier used in
// GenerationResult.Model.
func QualifiedModel(id ID, model string) string {
	return string(id) + "/" + model
}
