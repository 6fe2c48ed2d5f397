package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationRecord is the stored audit row for one AI generation, successful
// or not.
type GenerationRecord struct {
	ID             uuid.UUID `json:"id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	Prompt         string    `json:"prompt"`
	Response       string    `json:"response"`
	TokensUsed     int       `json:"tokens_used"`
	FailedOver     bool      `json:"failed_over"`
	Streamed       bool      `json:"streamed"`
	ContextSummary string    `json:"context_summary,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	LatencyMs      int       `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewGenerationRecord creates a record with a fresh ID and timestamp.
func NewGenerationRecord(prompt string) *GenerationRecord {
	return &GenerationRecord{
		ID:        uuid.New(),
		Prompt:    prompt,
		CreatedAt: time.Now(),
	}
}
