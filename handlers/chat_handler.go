package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/paintdesk/ai-engine/app"
	"github.com/paintdesk/ai-engine/services/providers"
	"github.com/paintdesk/ai-engine/utils"
	"go.uber.org/zap"
)

// ChatRequest is the request body for both chat endpoints.
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Provider    string        `json:"provider,omitempty"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty" validate:"gte=0"`
}

// ChatMessage mirrors the canonical message for JSON binding.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// decodeChatRequest parses, validates, and converts the request body.
func decodeChatRequest(r *http.Request) ([]providers.Message, providers.GenerationOptions, error) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, providers.GenerationOptions{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, providers.GenerationOptions{}, err
	}

	opts := providers.GenerationOptions{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.Provider != "" {
		id, err := providers.ParseID(req.Provider)
		if err != nil {
			return nil, providers.GenerationOptions{}, err
		}
		opts.Provider = id
	}

	messages := make([]providers.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = providers.Message{Role: m.Role, Content: m.Content}
	}
	return messages, opts, nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var validationErr *utils.ValidationError
	if errors.As(err, &validationErr) {
		_ = utils.WriteBadRequest(w, validationErr.Message, validationErr.Details())
		return
	}
	_ = utils.WriteBadRequest(w, err.Error(), nil)
}

// ChatHandler handles unary chat generation.
func ChatHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, opts, err := decodeChatRequest(r)
		if err != nil {
			writeDecodeError(w, err)
			return
		}

		result, err := deps.ChatService.Chat(r.Context(), messages, opts)
		if err != nil {
			deps.Logger.Warn("chat generation failed", zap.Error(err))
			writeGenerationError(w, err)
			return
		}
		_ = utils.WriteOK(w, result)
	}
}

// streamEvent is one SSE payload on the streaming endpoint.
type streamEvent struct {
	Delta  string                      `json:"delta,omitempty"`
	Done   bool                        `json:"done,omitempty"`
	Result *providers.GenerationResult `json:"result,omitempty"`
	Error  string                      `json:"error,omitempty"`
}

// sseSink adapts the HTTP response to providers.StreamSink, flushing each
// delta as its own server-sent event.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	wrote   bool
}

func (s *sseSink) Write(chunk string) error {
	if err := s.writeEvent(streamEvent{Delta: chunk}); err != nil {
		return err
	}
	s.wrote = true
	return nil
}

func (s *sseSink) writeEvent(event streamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ChatStreamHandler handles streaming chat generation over SSE. Because the
// engine preserves at-least-partial delivery, a terminal failure after some
// deltas is reported as an error footer event rather than an HTTP error
// status — by then the status line is long gone.
func ChatStreamHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, opts, err := decodeChatRequest(r)
		if err != nil {
			writeDecodeError(w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			_ = utils.WriteInternalError(w, "streaming unsupported by server")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sink := &sseSink{w: w, flusher: flusher}
		result, err := deps.ChatService.ChatStream(r.Context(), messages, opts, sink)
		if err != nil {
			deps.Logger.Warn("streaming generation failed",
				zap.Bool("partial_output", sink.wrote),
				zap.Error(err))
			_ = sink.writeEvent(streamEvent{Done: true, Error: err.Error()})
			return
		}
		_ = sink.writeEvent(streamEvent{Done: true, Result: result})
	}
}
