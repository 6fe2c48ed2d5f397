package engine

import (
	"errors"
	"strings"

	"github.com/paintdesk/ai-engine/services/providers"
)

// ErrNoProvidersEnabled is returned when configuration disables every known
// provider. The call fails fast; no network or process call is attempted.
var ErrNoProvidersEnabled = errors.New("no providers enabled")

// Attempt records one failed provider try within a failover call.
type Attempt struct {
	Provider providers.ID
	Err      error
}

// FailoverError is the terminal failure after the whole chain is exhausted.
// Its message concatenates every attempt's provider and reason in attempt
// order.
type FailoverError struct {
	Attempts []Attempt
}

func (e *FailoverError) Error() string {
	var b strings.Builder
	b.WriteString("all providers failed: ")
	for i, a := range e.Attempts {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(string(a.Provider))
		b.WriteString(": ")
		b.WriteString(a.Err.Error())
	}
	return b.String()
}
