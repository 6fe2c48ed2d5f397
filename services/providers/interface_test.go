package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{"openai", "openai", OpenAI, false},
		{"gemini", "gemini", Gemini, false},
		{"claude", "claude", Claude, false},
		{"uppercase", "OpenAI", OpenAI, false},
		{"whitespace", "  gemini  ", Gemini, false},
		{"unknown", "mistral", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateMessages(t *testing.T) {
	t.Run("empty list rejected", func(t *testing.T) {
		assert.Error(t, ValidateMessages(nil))
		assert.Error(t, ValidateMessages([]Message{}))
	})

	t.Run("canonical roles accepted", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleSystem, Content: "be terse"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
			{Role: RoleUser, Content: "bye"},
		}
		assert.NoError(t, ValidateMessages(msgs))
	})

	t.Run("unknown role rejected with position", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: "tool", Content: "output"},
		}
		err := ValidateMessages(msgs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "message 1")
		assert.Contains(t, err.Error(), "tool")
	})
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"shorter than one token rounds up", "ab", 1},
		{"exact multiple", "abcdefgh", 2},
		{"remainder truncated", "abcdefghi", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.text))
		})
	}
}

func TestQualifiedModel(t *testing.T) {
	assert.Equal(t, "openai/gpt-4o-mini", QualifiedModel(OpenAI, "gpt-4o-mini"))
	assert.Equal(t, "claude/claude-sonnet-4-20250514", QualifiedModel(Claude, "claude-sonnet-4-20250514"))
}

func TestSinkFunc(t *testing.T) {
	var got []string
	sink := SinkFunc(func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	require.NoError(t, sink.Write("a"))
	require.NoError(t, sink.Write("b"))
	assert.Equal(t, []string{"a", "b"}, got)
}
