// Package gemini adapts the Google generative-language API to the canonical
// provider contract. Unlike OpenAI, the wire format has no "system" role: a
// leading system message is lifted into the systemInstruction field, and
// assistant turns map to role "model".
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paintdesk/ai-engine/services/providers"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"

	ssePrefix = "data: "
)

// Config holds adapter construction parameters.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Adapter implements providers.Provider for Gemini.
type Adapter struct {
	config     Config
	source     providers.ConfigSource
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates a Gemini adapter.
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
	return providers.Gemini
}

// Generate performs one unary generateContent call.
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

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, providers.NewError(a.ID(), providers.CodeParse, "failed to decode response: "+providers.TruncateBody(body), resp.StatusCode, err)
	}

	text, err := genResp.text()
	if err != nil {
		return nil, providers.NewError(a.ID(), providers.CodeParse, err.Error(), resp.StatusCode, nil)
	}

	tokens := genResp.UsageMetadata.TotalTokenCount
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

// GenerateStream opens a streamGenerateContent call with SSE framing and
// forwards each text part to the sink.
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

		var event generateResponse
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, providers.NewError(a.ID(), providers.CodeParse, "failed to decode stream event: "+providers.TruncateBody([]byte(payload)), 0, err)
		}

		if event.UsageMetadata.TotalTokenCount > 0 {
			tokens = event.UsageMetadata.TotalTokenCount
		}
		delta, err := event.text()
		if err != nil {
			// Candidate-less keepalive events are expected mid-stream.
			continue
		}
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

	payload, err := buildPayload(messages, temperature, maxTokens)
	if err != nil {
		return nil, "", providers.NewError(a.ID(), providers.CodeParse, err.Error(), 0, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", providers.NewError(a.ID(), providers.CodeParse, "failed to marshal request", 0, err)
	}

	verb := "generateContent"
	query := ""
	if stream {
		verb = "streamGenerateContent"
		query = "&alt=sse"
	}
	url := fmt.Sprintf("%s/models/%s:%s?key=%s%s", a.config.BaseURL, model, verb, apiKey, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", providers.NewError(a.ID(), providers.CodeUpstream, "failed to build request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", providers.ClassifyTransportError(a.ID(), err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		a.logger.Warn("gemini upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("model", model))
		return nil, "", providers.NewError(a.ID(), providers.CodeUpstream, providers.TruncateBody(errBody), resp.StatusCode, nil)
	}

	return resp, model, nil
}

// buildPayload converts canonical messages to the Gemini wire shape. A
// leading system message becomes systemInstruction; any further system
// messages are folded into it.
func buildPayload(messages []providers.Message, temperature float64, maxTokens int) (*generateRequest, error) {
	var systemParts []string
	contents := make([]content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case providers.RoleSystem:
			if strings.TrimSpace(msg.Content) != "" {
				systemParts = append(systemParts, msg.Content)
			}
		case providers.RoleUser:
			contents = append(contents, content{Role: "user", Parts: []part{{Text: msg.Content}}})
		case providers.RoleAssistant:
			contents = append(contents, content{Role: "model", Parts: []part{{Text: msg.Content}}})
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini request requires at least one user or assistant message")
	}

	req := &generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if len(systemParts) > 0 {
		req.SystemInstruction = &content{Parts: []part{{Text: strings.Join(systemParts, "\n\n")}}}
	}
	return req, nil
}

// Wire types.

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func (r *generateResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		return "", fmt.Errorf("response contained no candidates")
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}
