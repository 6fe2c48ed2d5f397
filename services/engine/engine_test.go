package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paintdesk/ai-engine/services/providers"
	"github.com/paintdesk/ai-engine/services/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mapStore is a static settings.Store for engine tests.
type mapStore struct{ values map[string]string }

func (s *mapStore) Load(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *mapStore) Upsert(_ context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

// scriptedProvider fails a fixed number of times, then succeeds, counting
// every call.
type scriptedProvider struct {
	mu       sync.Mutex
	id       providers.ID
	calls    int
	failWith error
	chunks   []string
}

func (p *scriptedProvider) ID() providers.ID { return p.id }

func (p *scriptedProvider) Generate(context.Context, []providers.Message, providers.GenerationOptions) (*providers.GenerationResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failWith != nil {
		return nil, p.failWith
	}
	return &providers.GenerationResult{
		Text:     "response from " + string(p.id),
		Provider: p.id,
		Model:    providers.QualifiedModel(p.id, "test-model"),
	}, nil
}

func (p *scriptedProvider) GenerateStream(_ context.Context, _ []providers.Message, _ providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	p.mu.Lock()
	p.calls++
	fail := p.failWith
	chunks := p.chunks
	p.mu.Unlock()

	for _, c := range chunks {
		if err := sink.Write(c); err != nil {
			return nil, err
		}
	}
	if fail != nil {
		return nil, fail
	}
	return &providers.GenerationResult{
		Text:     "response from " + string(p.id),
		Provider: p.id,
	}, nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fixture struct {
	engine *Engine
	openai *scriptedProvider
	gemini *scriptedProvider
	claude *scriptedProvider
}

func newFixture(t *testing.T, storeValues map[string]string) *fixture {
	t.Helper()

	f := &fixture{
		openai: &scriptedProvider{id: providers.OpenAI},
		gemini: &scriptedProvider{id: providers.Gemini},
		claude: &scriptedProvider{id: providers.Claude},
	}

	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(f.openai))
	require.NoError(t, registry.Register(f.gemini))
	require.NoError(t, registry.Register(f.claude))

	resolver := settings.NewResolver(&mapStore{values: storeValues}, time.Minute, zap.NewNop())
	f.engine = New(registry, resolver, time.Second, zap.NewNop())
	return f
}

func userMessages() []providers.Message {
	return []providers.Message{{Role: providers.RoleUser, Content: "hi"}}
}

func TestBuildProviderChain(t *testing.T) {
	ctx := context.Background()

	t.Run("default chain is deterministic", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		chain := f.engine.BuildProviderChain(ctx, providers.GenerationOptions{})
		assert.Equal(t, []providers.ID{providers.OpenAI, providers.Gemini, providers.Claude}, chain)
	})

	t.Run("configured primary and fallback lead the chain", func(t *testing.T) {
		f := newFixture(t, map[string]string{
			settings.KeyPrimaryProvider:  "claude",
			settings.KeyFallbackProvider: "gemini",
		})
		chain := f.engine.BuildProviderChain(ctx, providers.GenerationOptions{})
		assert.Equal(t, []providers.ID{providers.Claude, providers.Gemini, providers.OpenAI}, chain)
	})

	t.Run("per-call provider override beats configured primary", func(t *testing.T) {
		f := newFixture(t, map[string]string{settings.KeyPrimaryProvider: "openai"})
		chain := f.engine.BuildProviderChain(ctx, providers.GenerationOptions{Provider: providers.Gemini})
		assert.Equal(t, providers.Gemini, chain[0])
	})

	t.Run("no provider appears twice", func(t *testing.T) {
		f := newFixture(t, map[string]string{
			settings.KeyPrimaryProvider:  "openai",
			settings.KeyFallbackProvider: "openai",
		})
		chain := f.engine.BuildProviderChain(ctx, providers.GenerationOptions{})
		seen := map[providers.ID]bool{}
		for _, id := range chain {
			assert.False(t, seen[id], "provider %s appears twice", id)
			seen[id] = true
		}
		assert.Len(t, chain, 3)
	})

	t.Run("disabled providers filtered out", func(t *testing.T) {
		f := newFixture(t, map[string]string{"gemini_enabled": "false"})
		chain := f.engine.BuildProviderChain(ctx, providers.GenerationOptions{})
		assert.Equal(t, []providers.ID{providers.OpenAI, providers.Claude}, chain)
	})

	t.Run("all disabled yields empty chain", func(t *testing.T) {
		f := newFixture(t, map[string]string{
			"openai_enabled": "false",
			"gemini_enabled": "false",
			"claude_enabled": "false",
		})
		assert.Empty(t, f.engine.BuildProviderChain(ctx, providers.GenerationOptions{}))
	})
}

func TestGenerateWithFailover(t *testing.T) {
	ctx := context.Background()

	t.Run("first provider succeeds without failover", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		result, err := f.engine.GenerateWithFailover(ctx, userMessages(), providers.GenerationOptions{})
		require.NoError(t, err)

		assert.Equal(t, providers.OpenAI, result.Provider)
		assert.False(t, result.FailedOver)
		assert.Equal(t, 1, f.openai.callCount())
		assert.Equal(t, 0, f.gemini.callCount())
		assert.Equal(t, 0, f.claude.callCount())
	})

	t.Run("failure advances to the next provider and marks failover", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		f.openai.failWith = providers.NewError(providers.OpenAI, providers.CodeUpstream, "boom", 500, nil)

		result, err := f.engine.GenerateWithFailover(ctx, userMessages(), providers.GenerationOptions{})
		require.NoError(t, err)

		assert.Equal(t, providers.Gemini, result.Provider)
		assert.True(t, result.FailedOver)
		assert.Equal(t, 1, f.openai.callCount())
		assert.Equal(t, 1, f.gemini.callCount())
	})

	t.Run("missing credential is just another failure", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		f.openai.failWith = providers.MissingCredentialError(providers.OpenAI)
		f.gemini.failWith = providers.MissingCredentialError(providers.Gemini)

		result, err := f.engine.GenerateWithFailover(ctx, userMessages(), providers.GenerationOptions{})
		require.NoError(t, err)
		assert.Equal(t, providers.Claude, result.Provider)
		assert.True(t, result.FailedOver)
	})

	t.Run("no provider attempted twice on exhaustion", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		f.openai.failWith = fmt.Errorf("a down")
		f.gemini.failWith = fmt.Errorf("b down")
		f.claude.failWith = fmt.Errorf("c down")

		_, err := f.engine.GenerateWithFailover(ctx, userMessages(), providers.GenerationOptions{})
		require.Error(t, err)

		assert.Equal(t, 1, f.openai.callCount())
		assert.Equal(t, 1, f.gemini.callCount())
		assert.Equal(t, 1, f.claude.callCount())
	})

	t.Run("exhaustion aggregates every attempt in order", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		f.openai.failWith = fmt.Errorf("quota exceeded")
		f.gemini.failWith = fmt.Errorf("connection refused")
		f.claude.failWith = fmt.Errorf("binary not found")

		_, err := f.engine.GenerateWithFailover(ctx, userMessages(), providers.GenerationOptions{})
		var failover *FailoverError
		require.ErrorAs(t, err, &failover)

		require.Len(t, failover.Attempts, 3)
		assert.Equal(t, providers.OpenAI, failover.Attempts[0].Provider)
		assert.Equal(t, providers.Gemini, failover.Attempts[1].Provider)
		assert.Equal(t, providers.Claude, failover.Attempts[2].Provider)

		msg := err.Error()
		assert.Contains(t, msg, "openai: quota exceeded")
		assert.Contains(t, msg, "gemini: connection refused")
		assert.Contains(t, msg, "claude: binary not found")
	})

	t.Run("all disabled fails fast with zero adapter calls", func(t *testing.T) {
		f := newFixture(t, map[string]string{
			"openai_enabled": "false",
			"gemini_enabled": "false",
			"claude_enabled": "false",
		})

		_, err := f.engine.GenerateWithFailover(ctx, userMessages(), providers.GenerationOptions{})
		assert.ErrorIs(t, err, ErrNoProvidersEnabled)
		assert.Equal(t, 0, f.openai.callCount())
		assert.Equal(t, 0, f.gemini.callCount())
		assert.Equal(t, 0, f.claude.callCount())
	})

	t.Run("disabled provider skipped during failover", func(t *testing.T) {
		f := newFixture(t, map[string]string{"gemini_enabled": "false"})
		f.openai.failWith = fmt.Errorf("down")

		result, err := f.engine.GenerateWithFailover(ctx, userMessages(), providers.GenerationOptions{})
		require.NoError(t, err)
		assert.Equal(t, providers.Claude, result.Provider)
		assert.Equal(t, 0, f.gemini.callCount())
	})

	t.Run("invalid messages rejected before chain resolution", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		_, err := f.engine.GenerateWithFailover(ctx, nil, providers.GenerationOptions{})
		require.Error(t, err)
		assert.Equal(t, 0, f.openai.callCount())
	})
}

func TestStreamWithFailover(t *testing.T) {
	ctx := context.Background()

	t.Run("chunks forwarded from the succeeding provider", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		f.openai.chunks = []string{"hel", "lo"}

		var got []string
		result, err := f.engine.StreamWithFailover(ctx, userMessages(), providers.GenerationOptions{}, providers.SinkFunc(func(chunk string) error {
			got = append(got, chunk)
			return nil
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"hel", "lo"}, got)
		assert.False(t, result.FailedOver)
	})

	t.Run("partial output precedes failover", func(t *testing.T) {
		f := newFixture(t, map[string]string{})
		f.openai.chunks = []string{"partial "}
		f.openai.failWith = fmt.Errorf("connection reset")
		f.gemini.chunks = []string{"full answer"}

		var got []string
		result, err := f.engine.StreamWithFailover(ctx, userMessages(), providers.GenerationOptions{}, providers.SinkFunc(func(chunk string) error {
			got = append(got, chunk)
			return nil
		}))
		require.NoError(t, err)

		// The failed provider's chunks were already delivered.
		assert.Equal(t, []string{"partial ", "full answer"}, got)
		assert.True(t, result.FailedOver)
		assert.Equal(t, providers.Gemini, result.Provider)
	})
}

func TestRegistryGapRecordedAsAttempt(t *testing.T) {
	// Claude configured as primary but never registered.
	f := &fixture{
		openai: &scriptedProvider{id: providers.OpenAI},
	}
	registry := providers.NewRegistry()
	require.NoError(t, registry.Register(f.openai))

	resolver := settings.NewResolver(&mapStore{values: map[string]string{
		settings.KeyPrimaryProvider: "claude",
	}}, time.Minute, zap.NewNop())
	eng := New(registry, resolver, time.Second, zap.NewNop())

	result, err := eng.GenerateWithFailover(context.Background(), userMessages(), providers.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, providers.OpenAI, result.Provider)
	assert.True(t, result.FailedOver)
}
