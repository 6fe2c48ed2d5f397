// Package settings resolves engine configuration from a mutable external
// store with a short-lived in-memory cache. Administrative updates call
// Invalidate so the next read refetches; everything else tolerates staleness
// up to the TTL.
package settings

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/paintdesk/ai-engine/services/providers"
	"go.uber.org/zap"
)

// Store is the flat key→value backing store. Load returns the complete
// mapping; a refresh always replaces the whole snapshot.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
}

// Store keys consumed by the resolver. Missing keys silently fall back to
// environment variables and builtin defaults.
const (
	KeyPrimaryProvider  = "ai_primary_provider"
	KeyFallbackProvider = "ai_fallback_provider"
	KeyTemperature      = "ai_temperature"
	KeyMaxTokens        = "ai_max_tokens"

	enabledSuffix    = "_enabled"
	apiKeySuffix     = "_api_key"
	modelSuffix      = "_model"
	disabledSentinel = "false"
)

// Builtin defaults, the last stop of every fallback chain.
const (
	DefaultTTL         = 30 * time.Second
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
)

var defaultPrimary = providers.OpenAI

// envCredentialKeys maps each provider to its environment fallback for
// credentials, per the documented naming convention.
var envCredentialKeys = map[providers.ID]string{
	providers.OpenAI: "OPENAI_API_KEY",
	providers.Gemini: "GEMINI_API_KEY",
	providers.Claude: "ANTHROPIC_API_KEY",
}

// Snapshot is one immutable view of the store. Never mutated after
// construction; a refresh swaps the whole pointer.
type Snapshot struct {
	values    map[string]string
	fetchedAt time.Time
}

// Get returns a raw value and whether it was present.
func (s *Snapshot) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Age reports how long ago the snapshot was fetched.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.fetchedAt)
}

// Resolver caches store snapshots and answers typed configuration lookups.
// Safe for concurrent use; reads are mutex-guarded and the snapshot is
// replaced atomically.
type Resolver struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	snap *Snapshot
}

// NewResolver creates a resolver over store. ttl <= 0 selects DefaultTTL.
func NewResolver(store Store, ttl time.Duration, logger *zap.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{store: store, ttl: ttl, logger: logger}
}

// Snapshot returns the cached snapshot, refetching when the TTL has lapsed.
// On fetch failure the previous snapshot is returned stale rather than
// failing the caller; with no previous snapshot an empty, uncached one is
// returned so lookups degrade to env/builtin defaults and the next read
// retries the store.
func (r *Resolver) Snapshot(ctx context.Context) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snap != nil && r.snap.Age() < r.ttl {
		return r.snap
	}

	values, err := r.store.Load(ctx)
	if err != nil {
		if r.snap == nil {
			r.logger.Warn("settings fetch failed with no cached snapshot", zap.Error(err))
			return &Snapshot{values: map[string]string{}}
		}
		r.logger.Warn("settings refresh failed, serving stale snapshot", zap.Error(err))
		return r.snap
	}

	r.snap = &Snapshot{values: values, fetchedAt: time.Now()}
	return r.snap
}

// Invalidate drops the cached snapshot so the next read refetches.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = nil
}

// IsProviderEnabled reports whether a provider may be attempted. A provider
// is enabled unless its flag is present and exactly the "false" sentinel —
// absence means enabled. This fail-open default is deliberate.
func (r *Resolver) IsProviderEnabled(ctx context.Context, id providers.ID) bool {
	if v, ok := r.Snapshot(ctx).Get(string(id) + enabledSuffix); ok {
		return v != disabledSentinel
	}
	return true
}

// APICredential resolves a provider's key: store value, then environment,
// then empty.
func (r *Resolver) APICredential(ctx context.Context, id providers.ID) string {
	if v, ok := r.Snapshot(ctx).Get(string(id) + apiKeySuffix); ok && v != "" {
		return v
	}
	if envKey, ok := envCredentialKeys[id]; ok {
		return os.Getenv(envKey)
	}
	return ""
}

// ModelName resolves a provider's configured default model; "" lets the
// adapter apply its builtin default.
func (r *Resolver) ModelName(ctx context.Context, id providers.ID) string {
	v, _ := r.Snapshot(ctx).Get(string(id) + modelSuffix)
	return v
}

// Temperature resolves the default sampling temperature.
func (r *Resolver) Temperature(ctx context.Context) float64 {
	if v, ok := r.Snapshot(ctx).Get(KeyTemperature); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return DefaultTemperature
}

// MaxTokens resolves the default response token ceiling.
func (r *Resolver) MaxTokens(ctx context.Context) int {
	if v, ok := r.Snapshot(ctx).Get(KeyMaxTokens); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxTokens
}

// PrimaryProvider resolves the configured primary, defaulting to openai.
func (r *Resolver) PrimaryProvider(ctx context.Context) providers.ID {
	if v, ok := r.Snapshot(ctx).Get(KeyPrimaryProvider); ok {
		if id, err := providers.ParseID(v); err == nil {
			return id
		}
		r.logger.Warn("ignoring invalid primary provider setting", zap.String("value", v))
	}
	return defaultPrimary
}

// FallbackProvider resolves the configured fallback. When unset or invalid,
// it picks the first known provider distinct from primary, so the result is
// deterministic and never equal to primary.
func (r *Resolver) FallbackProvider(ctx context.Context, primary providers.ID) providers.ID {
	if v, ok := r.Snapshot(ctx).Get(KeyFallbackProvider); ok {
		if id, err := providers.ParseID(v); err == nil && id != primary {
			return id
		}
	}
	for _, id := range providers.KnownIDs {
		if id != primary {
			return id
		}
	}
	return primary
}
