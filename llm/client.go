// Package llm is the boundary between the deterministic pipeline and the
// generative model. Every call is JSON-in, JSON-out: the caller supplies a
// system prompt and a payload, and gets back the parsed top-level object.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrMissingAPIKey  = errors.New("generation API key is not configured")
	ErrPromptBlocked  = errors.New("prompt blocked by safety filters")
	ErrNoCandidates   = errors.New("generation API returned no candidates")
	ErrEmptyResponse  = errors.New("generation API returned empty content")
	ErrInvalidJSON    = errors.New("model output is not a JSON object")
	ErrCircuitOpen    = errors.New("generation API circuit breaker is open")
	ErrGenerationCall = errors.New("generation API call failed")
)

// Client issues a single JSON-mode model call. Implementations must be safe
// for concurrent use.
type Client interface {
	CompleteJSON(ctx context.Context, systemPrompt string, payload any) (map[string]json.RawMessage, error)
}
