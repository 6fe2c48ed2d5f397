// Package openai adapts the OpenAI chat-completions API to the canonical
// provider contract. The system message passes through unchanged: the wire
// format accepts a "system" role directly, so no merging is needed.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paintdesk/ai-engine/services/providers"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"

	ssePrefix = "data: "
	sseDone   = "[DONE]"
)

// Config holds adapter construction parameters.
type Config struct {
	// BaseURL overrides the API endpoint (used by tests and proxies)
	BaseURL string

	// Timeout bounds each HTTP round trip; the engine additionally imposes
	// its own per-attempt deadline
	Timeout time.Duration
}

// Adapter implements providers.Provider for OpenAI.
type Adapter struct {
	config     Config
	source     providers.ConfigSource
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates an OpenAI adapter.
func NewAdapter(cfg Config, source providers.ConfigSource, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Adapter{
		config:     cfg,
		source:     source,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// ID returns the provider identifier.
func (a *Adapter) ID() providers.ID {
	return providers.OpenAI
}

// Generate performs one unary chat-completions call.
func (a *Adapter) Generate(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.GenerationResult, error) {
	resp, model, err := a.roundTrip(ctx, messages, opts, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.NewError(a.ID(), providers.CodeUpstream, "failed to read response body", resp.StatusCode, err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, providers.NewError(a.ID(), providers.CodeParse, "failed to decode response: "+providers.TruncateBody(body), resp.StatusCode, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, providers.NewError(a.ID(), providers.CodeParse, "response contained no choices", resp.StatusCode, nil)
	}

	text := chatResp.Choices[0].Message.Content
	tokens := chatResp.Usage.TotalTokens
	if tokens == 0 {
		tokens = providers.EstimateTokens(text)
	}

	return &providers.GenerationResult{
		Text:       text,
		TokensUsed: tokens,
		Model:      providers.QualifiedModel(a.ID(), model),
		Provider:   a.ID(),
	}, nil
}

// GenerateStream opens a streaming completion and forwards each content delta
// to the sink as it is decoded from the SSE frames.
func (a *Adapter) GenerateStream(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	resp, model, err := a.roundTrip(ctx, messages, opts, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var full strings.Builder
	tokens := 0

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, ssePrefix)
		if payload == sseDone {
			break
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, providers.NewError(a.ID(), providers.CodeParse, "failed to decode stream event: "+providers.TruncateBody([]byte(payload)), 0, err)
		}

		// Some deployments attach usage to a trailing choiceless event.
		if event.Usage != nil {
			tokens = event.Usage.TotalTokens
		}
		if len(event.Choices) == 0 {
			continue
		}
		delta := event.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := sink.Write(delta); err != nil {
			return nil, providers.NewError(a.ID(), providers.CodeUpstream, "stream sink write failed", 0, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, providers.ClassifyTransportError(a.ID(), err)
	}

	text := full.String()
	if tokens == 0 {
		tokens = providers.EstimateTokens(text)
	}

	return &providers.GenerationResult{
		Text:       text,
		TokensUsed: tokens,
		Model:      providers.QualifiedModel(a.ID(), model),
		Provider:   a.ID(),
	}, nil
}

// roundTrip builds and executes the HTTP request shared by both modes,
// returning an open response on 2xx. Callers own closing the body.
func (a *Adapter) roundTrip(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions, stream bool) (*http.Response, string, error) {
	if err := providers.ValidateMessages(messages); err != nil {
		return nil, "", providers.NewError(a.ID(), providers.CodeParse, err.Error(), 0, err)
	}

	apiKey := a.source.APICredential(ctx, a.ID())
	if apiKey == "" {
		return nil, "", providers.MissingCredentialError(a.ID())
	}

	model := opts.Model
	if model == "" {
		model = a.source.ModelName(ctx, a.ID())
	}
	if model == "" {
		model = defaultModel
	}

	temperature := a.source.Temperature(ctx)
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.source.MaxTokens(ctx)
	}

	wireMessages := make([]wireMessage, len(messages))
	for i, msg := range messages {
		wireMessages[i] = wireMessage{Role: msg.Role, Content: msg.Content}
	}

	payload := chatRequest{
		Model:       model,
		Messages:    wireMessages,
		Temperature: &temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", providers.NewError(a.ID(), providers.CodeParse, "failed to marshal request", 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, "", providers.NewError(a.ID(), providers.CodeUpstream, "failed to build request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", providers.ClassifyTransportError(a.ID(), err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		a.logger.Warn("openai upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model))
		return nil, "", providers.NewError(a.ID(), providers.CodeUpstream, providers.TruncateBody(errBody), resp.StatusCode, nil)
	}

	return resp, model, nil
}

// Wire types.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type streamEvent struct {
	Choices []streamChoice `json:"choices"`
	Usage   *usage         `json:"usage,omitempty"`
}

type streamChoice struct {
	Delta        streamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type streamDelta struct {
	Content string `json:"content"`
}
