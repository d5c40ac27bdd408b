// Package perception is the model gateway: it sends assembled prompts to the
// generative backend, constrains the output to a schema and turns the raw
// text back into validated council and simulation records.
package perception

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"timefold/internal/types"
)

var (
	// ErrBackendUnavailable wraps transport and API failures from the backend.
	ErrBackendUnavailable = errors.New("model backend unavailable")
	// ErrEmptyResponse means the backend answered without any text.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// GenerateRequest is the single external protocol: prompt parts, an optional
// image and the schema the output must conform to.
type GenerateRequest struct {
	Parts  []string
	Image  *types.Image
	Schema *genai.Schema
}

// Backend produces JSON text for a request. Implementations are single-shot.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}
