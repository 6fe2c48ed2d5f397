package handlers

import (
	"errors"
	"net/http"

	"github.com/paintdesk/ai-engine/services/engine"
	"github.com/paintdesk/ai-engine/utils"
)

// writeGenerationError maps engine failures to HTTP responses: disabled
// configuration is a 503, an exhausted provider chain is a 502, anything
// else a 500.
func writeGenerationError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrNoProvidersEnabled) {
		_ = utils.WriteServiceUnavailable(w, "No AI providers are enabled")
		return
	}
	var failover *engine.FailoverError
	if errors.As(err, &failover) {
		_ = utils.WriteBadGateway(w, failover.Error())
		return
	}
	_ = utils.WriteInternalError(w, err.Error())
}
