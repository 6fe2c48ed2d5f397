// Package assembly defines the boundary to the business-context builder.
// The engine treats the produced context as an opaque string; how it is
// derived (SQL aggregation, external services) lives behind the interface.
package assembly

import "context"

// Result is the outcome of one context build.
type Result struct {
	// ContextText is prepended to the system message when non-empty
	ContextText string

	// ContextSummary is persisted alongside the stored generation for
	// auditing
	ContextSummary string
}

// ContextBuilder derives business context for a user message. Callers must
// treat it best-effort: an error or empty result never blocks generation.
type ContextBuilder interface {
	BuildContext(ctx context.Context, userMessage string) (Result, error)
}

// Noop is a ContextBuilder that contributes nothing, for deployments without
// a business-context source.
type Noop struct{}

func (Noop) BuildContext(context.Context, string) (Result, error) {
	return Result{}, nil
}
