// Package claudecli adapts a local CLI helper process to the canonical
// provider contract. The conversation is written to a transient JSON file
// (process argument lists have size limits; prompts do not), the helper is
// invoked with the file path, and its single JSON response is parsed from
// stdout. The transient file is removed on every exit path.
//
// The helper has no incremental output mode, so GenerateStream simulates
// streaming: the complete response text is replayed to the sink in fixed-size
// chunks. Callers see the same interface shape as a native streaming adapter;
// only the latency profile differs (all chunks arrive after the full call
// completes).
package claudecli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/paintdesk/ai-engine/services/providers"
	"go.uber.org/zap"
)

const (
	defaultBinary = "claude"
	defaultModel  = "claude-sonnet-4-20250514"

	// simulatedChunkSize is the size of the pieces the simulated stream is
	// cut into.
	simulatedChunkSize = 100

	// promptFilePrefix names the transient payload files. Tests assert that
	// no files matching this prefix survive a call.
	promptFilePrefix = "ai-prompt-"
)

// Config holds adapter construction parameters.
type Config struct {
	// Binary is the helper executable; resolved via PATH when not absolute
	Binary string

	// TempDir overrides where transient payload files are written
	TempDir string

	// Timeout bounds the helper process run
	Timeout time.Duration
}

// Adapter implements providers.Provider by shelling out to the CLI helper.
type Adapter struct {
	config Config
	source providers.ConfigSource
	logger *zap.Logger
}

// NewAdapter creates a process-backed adapter.
func NewAdapter(cfg Config, source providers.ConfigSource, logger *zap.Logger) *Adapter {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Adapter{config: cfg, source: source, logger: logger}
}

// ID returns the provider identifier.
func (a *Adapter) ID() providers.ID {
	return providers.Claude
}

// Generate runs the helper once and returns its parsed response.
func (a *Adapter) Generate(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.GenerationResult, error) {
	return a.run(ctx, messages, opts)
}

// GenerateStream runs the full call, then replays the response text to the
// sink in pieces of at most simulatedChunkSize bytes. Boundaries are pulled
// back to rune starts so every chunk is valid UTF-8 on its own; concatenating
// all chunks reproduces the response exactly.
func (a *Adapter) GenerateStream(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions, sink providers.StreamSink) (*providers.GenerationResult, error) {
	result, err := a.run(ctx, messages, opts)
	if err != nil {
		return nil, err
	}

	text := result.Text
	for start := 0; start < len(text); {
		end := start + simulatedChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			for end > start && !utf8.RuneStart(text[end]) {
				end--
			}
			if end == start {
				// Not valid UTF-8 at this point; fall back to the raw cut.
				end = start + simulatedChunkSize
			}
		}
		if err := sink.Write(text[start:end]); err != nil {
			return nil, providers.NewError(a.ID(), providers.CodeUpstream, "stream sink write failed", 0, err)
		}
		start = end
	}
	return result, nil
}

func (a *Adapter) run(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.GenerationResult, error) {
	if err := providers.ValidateMessages(messages); err != nil {
		return nil, providers.NewError(a.ID(), providers.CodeParse, err.Error(), 0, err)
	}

	apiKey := a.source.APICredential(ctx, a.ID())
	if apiKey == "" {
		return nil, providers.MissingCredentialError(a.ID())
	}

	model := opts.Model
	if model == "" {
		model = a.source.ModelName(ctx, a.ID())
	}
	if model == "" {
		model = defaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = a.source.MaxTokens(ctx)
	}

	promptPath, err := a.writePromptFile(messages, model, maxTokens)
	if err != nil {
		return nil, providers.NewError(a.ID(), providers.CodeUpstream, "failed to write prompt file", 0, err)
	}
	// Scoped cleanup: the file must not outlive the call on any path.
	defer func() {
		if rmErr := os.Remove(promptPath); rmErr != nil && !os.IsNotExist(rmErr) {
			a.logger.Warn("failed to remove prompt file",
				zap.String("path", promptPath),
				zap.Error(rmErr))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, a.config.Binary,
		"--input-file", promptPath,
		"--output-format", "json")
	cmd.Env = append(os.Environ(), "ANTHROPIC_API_KEY="+apiKey)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, providers.NewError(a.ID(), providers.CodeTimeout, "helper process deadline exceeded", 0, runCtx.Err())
		}
		exitCode := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return nil, providers.NewError(a.ID(), providers.CodeUpstream,
			"helper process failed: "+providers.TruncateBody(stderr.Bytes()), exitCode, err)
	}

	var resp cliResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, providers.NewError(a.ID(), providers.CodeParse,
			"failed to decode helper output: "+providers.TruncateBody(stdout.Bytes()), 0, err)
	}
	if resp.IsError {
		return nil, providers.NewError(a.ID(), providers.CodeUpstream,
			"helper reported error: "+providers.TruncateBody([]byte(resp.Result)), 0, nil)
	}
	if strings.TrimSpace(resp.Result) == "" {
		return nil, providers.NewError(a.ID(), providers.CodeParse, "helper returned empty result", 0, nil)
	}

	tokens := resp.Usage.InputTokens + resp.Usage.OutputTokens
	if tokens == 0 {
		tokens = providers.EstimateTokens(resp.Result)
	}

	return &providers.GenerationResult{
		Text:       resp.Result,
		TokensUsed: tokens,
		Model:      providers.QualifiedModel(a.ID(), model),
		Provider:   a.ID(),
	}, nil
}

// writePromptFile marshals the payload to a collision-resistant transient
// file. Concurrent calls share the directory, so the name carries both a
// timestamp and a random suffix.
func (a *Adapter) writePromptFile(messages []providers.Message, model string, maxTokens int) (string, error) {
	payload := cliRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal prompt payload: %w", err)
	}

	name := fmt.Sprintf("%s%d-%s.json", promptFilePrefix, time.Now().UnixNano(), uuid.NewString())
	path := filepath.Join(a.config.TempDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write prompt file: %w", err)
	}
	return path, nil
}

// Wire types for the helper's file input and JSON output.

type cliRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
	Messages  []providers.Message `json:"messages"`
}

type cliResponse struct {
	Result  string   `json:"result"`
	IsError bool     `json:"is_error"`
	Usage   cliUsage `json:"usage"`
}

type cliUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
