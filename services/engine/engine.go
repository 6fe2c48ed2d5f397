// Package engine orchestrates generation across the provider chain. One call
// tries providers strictly in order — never concurrently, never the same
// provider twice — and fails only when every enabled provider has failed.
package engine

import (
	"context"
	"time"

	"github.com/paintdesk/ai-engine/services/providers"
	"github.com/paintdesk/ai-engine/services/settings"
	"go.uber.org/zap"
)

// DefaultCallTimeout is the hard deadline imposed on each provider attempt.
const DefaultCallTimeout = 120 * time.Second

// Engine is the failover orchestrator.
type Engine struct {
	registry    *providers.Registry
	resolver    *settings.Resolver
	callTimeout time.Duration
	logger      *zap.Logger
}

// New creates an engine. callTimeout <= 0 selects DefaultCallTimeout.
func New(registry *providers.Registry, resolver *settings.Resolver, callTimeout time.Duration, logger *zap.Logger) *Engine {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Engine{
		registry:    registry,
		resolver:    resolver,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// BuildProviderChain produces the ordered, deduplicated, enabled-only
// sequence of providers for one call: [primary, fallback, ...KnownIDs],
// first occurrence wins. Deterministic for fixed config and options. An
// empty result after filtering means every known provider is explicitly
// disabled; callers must fail fast without attempting any call.
func (e *Engine) BuildProviderChain(ctx context.Context, opts providers.GenerationOptions) []providers.ID {
	primary := opts.Provider
	if primary == "" {
		primary = e.resolver.PrimaryProvider(ctx)
	}
	fallback := e.resolver.FallbackProvider(ctx, primary)

	candidates := make([]providers.ID, 0, len(providers.KnownIDs)+2)
	candidates = append(candidates, primary, fallback)
	candidates = append(candidates, providers.KnownIDs...)

	seen := make(map[providers.ID]bool, len(candidates))
	chain := make([]providers.ID, 0, len(candidates))
	for _, id := range candidates {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !e.resolver.IsProviderEnabled(ctx, id) {
			continue
		}
		chain = append(chain, id)
	}
	return chain
}

// GenerateWithFailover performs unary generation, advancing through the
// chain on every adapter failure. Returns the first success (with FailedOver
// set when any earlier provider failed), ErrNoProvidersEnabled when the
// filtered chain is empty, or a *FailoverError aggregating every attempt.
func (e *Engine) GenerateWithFailover(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.GenerationResult, error) {
	return e.run(ctx, messages, opts, nil)
}

// StreamWithFailover performs streaming generation with the same failure
// policy as GenerateWithFailover.
//
// Chunks are forwarded to the sink as they arrive, so a provider that fails
// mid-stream may already have delivered partial output before the next
// provider is attempted. This at-least-partial delivery is deliberate:
// buffering until a provider proves reliable would add full-response latency
// to every streaming call. Callers that need clean output on failure must
// buffer themselves.
func (e *Engine) StreamWithFailover(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	return e.run(ctx, messages, opts, sink)
}

// run is the shared failover loop; sink == nil selects unary mode.
func (e *Engine) run(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	if err := providers.ValidateMessages(messages); err != nil {
		return nil, err
	}

	chain := e.BuildProviderChain(ctx, opts)
	if len(chain) == 0 {
		e.logger.Warn("generation rejected: every provider disabled")
		return nil, ErrNoProvidersEnabled
	}

	attempts := make([]Attempt, 0, len(chain))
	for i, id := range chain {
		adapter, err := e.registry.Get(id)
		if err != nil {
			// Configured but not wired; record and move on like any
			// other provider failure.
			attempts = append(attempts, Attempt{Provider: id, Err: err})
			continue
		}

		result, err := e.attempt(ctx, adapter, messages, opts, sink)
		if err != nil {
			e.logger.Warn("provider attempt failed",
				zap.String("provider", string(id)),
				zap.Int("attempt", i+1),
				zap.Int("chain_len", len(chain)),
				zap.Error(err))
			attempts = append(attempts, Attempt{Provider: id, Err: err})
			continue
		}

		result.FailedOver = len(attempts) > 0
		if result.FailedOver {
			e.logger.Info("generation succeeded after failover",
				zap.String("provider", string(id)),
				zap.Int("failed_attempts", len(attempts)))
		}
		return result, nil
	}

	return nil, &FailoverError{Attempts: attempts}
}

// attempt runs one provider under the hard per-call deadline.
func (e *Engine) attempt(ctx context.Context, adapter providers.Provider, messages []providers.Message, opts providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	if sink == nil {
		return adapter.Generate(attemptCtx, messages, opts)
	}
	return adapter.GenerateStream(attemptCtx, messages, opts, sink)
}
