// Package chat wires the generation engine to its collaborators: context
// assembly on the way in, the generation audit log on the way out.
package chat

import (
	"context"
	"time"

	"github.com/paintdesk/ai-engine/models"
	"github.com/paintdesk/ai-engine/repositories"
	"github.com/paintdesk/ai-engine/services/assembly"
	"github.com/paintdesk/ai-engine/services/engine"
	"github.com/paintdesk/ai-engine/services/providers"
	"go.uber.org/zap"
)

// Service orchestrates one chat generation end to end.
type Service struct {
	engine      *engine.Engine
	builder     assembly.ContextBuilder
	generations repositories.GenerationRepository
	logger      *zap.Logger
}

// NewService creates a chat service. builder may be assembly.Noop{};
// generations may be nil to disable persistence.
func NewService(eng *engine.Engine, builder assembly.ContextBuilder, generations repositories.GenerationRepository, logger *zap.Logger) *Service {
	if builder == nil {
		builder = assembly.Noop{}
	}
	return &Service{
		engine:      eng,
		builder:     builder,
		generations: generations,
		logger:      logger,
	}
}

// Chat performs unary generation with context enrichment and auditing.
func (s *Service) Chat(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.GenerationResult, error) {
	return s.generate(ctx, messages, opts, nil)
}

// ChatStream performs streaming generation; chunks go to sink as they
// arrive.
func (s *Service) ChatStream(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	return s.generate(ctx, messages, opts, sink)
}

func (s *Service) generate(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	start := time.Now()

	enriched, summary := s.applyContext(ctx, messages)

	var result *providers.GenerationResult
	var err error
	if sink == nil {
		result, err = s.engine.GenerateWithFailover(ctx, enriched, opts)
	} else {
		result, err = s.engine.StreamWithFailover(ctx, enriched, opts, sink)
	}

	s.persist(ctx, messages, result, err, summary, sink != nil, time.Since(start))
	return result, err
}

// applyContext enriches the conversation with business context. Best-effort:
// a builder error or empty context leaves the messages untouched. The input
// slice is never mutated; enrichment returns a copy.
func (s *Service) applyContext(ctx context.Context, messages []providers.Message) ([]providers.Message, string) {
	userMessage := lastUserContent(messages)
	if userMessage == "" {
		return messages, ""
	}

	built, err := s.builder.BuildContext(ctx, userMessage)
	if err != nil {
		s.logger.Warn("context assembly failed, generating without enrichment", zap.Error(err))
		return messages, ""
	}
	if built.ContextText == "" {
		return messages, built.ContextSummary
	}

	enriched := make([]providers.Message, len(messages))
	copy(enriched, messages)

	if len(enriched) > 0 && enriched[0].Role == providers.RoleSystem {
		enriched[0] = providers.Message{
			Role:    providers.RoleSystem,
			Content: built.ContextText + "\n\n" + enriched[0].Content,
		}
		return enriched, built.ContextSummary
	}

	withSystem := make([]providers.Message, 0, len(enriched)+1)
	withSystem = append(withSystem, providers.Message{Role: providers.RoleSystem, Content: built.ContextText})
	withSystem = append(withSystem, enriched...)
	return withSystem, built.ContextSummary
}

// persist stores the audit record. Failures are logged, never surfaced: the
// generation outcome already belongs to the caller.
func (s *Service) persist(ctx context.Context, messages []providers.Message, result *providers.GenerationResult, genErr error, summary string, streamed bool, latency time.Duration) {
	if s.generations == nil {
		return
	}

	record := models.NewGenerationRecord(lastUserContent(messages))
	record.ContextSummary = summary
	record.Streamed = streamed
	record.LatencyMs = int(latency.Milliseconds())

	if result != nil {
		record.Provider = string(result.Provider)
		record.Model = result.Model
		record.Response = result.Text
		record.TokensUsed = result.TokensUsed
		record.FailedOver = result.FailedOver
	}
	if genErr != nil {
		record.ErrorMessage = genErr.Error()
	}

	if err := s.generations.Insert(ctx, record); err != nil {
		s.logger.Error("failed to store generation record",
			zap.String("id", record.ID.String()),
			zap.Error(err))
	}
}

func lastUserContent(messages []providers.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == providers.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
