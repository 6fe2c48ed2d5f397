package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct{ id ID }

func (s *stubProvider) ID() ID { return s.id }

func (s *stubProvider) Generate(context.Context, []Message, GenerationOptions) (*GenerationResult, error) {
	return &GenerationResult{Provider: s.id}, nil
}

func (s *stubProvider) GenerateStream(context.Context, []Message, GenerationOptions, StreamSink) (*GenerationResult, error) {
	return &GenerationResult{Provider: s.id}, nil
}

func TestRegistryRegister(t *testing.T) {
	t.Run("known provider", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&stubProvider{id: OpenAI}))
		assert.Equal(t, 1, r.Count())
	})

	t.Run("nil provider rejected", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.Register(nil))
	})

	t.Run("unknown id rejected", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.Register(&stubProvider{id: "mistral"}))
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(&stubProvider{id: Gemini}))
		err := r.Register(&stubProvider{id: Gemini})
		assert.ErrorIs(t, err, ErrProviderAlreadyRegistered)
	})
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	adapter := &stubProvider{id: Claude}
	require.NoError(t, r.Register(adapter))

	got, err := r.Get(Claude)
	require.NoError(t, err)
	assert.Same(t, adapter, got)

	_, err = r.Get(OpenAI)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistryIDsOrder(t *testing.T) {
	r := NewRegistry()
	// Register out of canonical order; IDs must still come back in it.
	require.NoError(t, r.Register(&stubProvider{id: Claude}))
	require.NoError(t, r.Register(&stubProvider{id: OpenAI}))
	require.NoError(t, r.Register(&stubProvider{id: Gemini}))

	assert.Equal(t, []ID{OpenAI, Gemini, Claude}, r.IDs())
}
