package perception

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"timefold/internal/logging"
	"timefold/internal/prompt"
	"timefold/internal/types"
)

// Op names the gateway operation that failed.
type Op string

const (
	OpRecruit  Op = "recruit"
	OpSimulate Op = "simulate"
)

// CallError reports a failed gateway call. It unwraps to the cause so
// errors.Is works against ErrBackendUnavailable, types.ErrSchemaMismatch, etc.
type CallError struct {
	Op  Op
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// DefaultSlowCall is the duration after which a model call is logged as slow.
const DefaultSlowCall = 60 * time.Second

// Gateway wraps a Backend and decodes its output into typed records.
// Every call is single-shot: there are no retries at this layer.
type Gateway struct {
	backend  Backend
	slowCall time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithSlowCallThreshold sets the duration after which a call is logged as a warning.
func WithSlowCallThreshold(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.slowCall = d
		}
	}
}

// NewGateway creates a gateway over backend.
func NewGateway(backend Backend, opts ...GatewayOption) *Gateway {
	g := &Gateway{backend: backend, slowCall: DefaultSlowCall}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// call sends req and returns the raw JSON text.
func (g *Gateway) call(ctx context.Context, req prompt.Request, image *types.Image) ([]byte, error) {
	timer := logging.StartTimer(logging.CategoryAPI, string(req.Kind))
	defer timer.StopWithThreshold(g.slowCall)

	logging.APIDebug("[Gateway] %s: parts=%d prompt_len=%d image=%v", req.Kind, len(req.Parts), len(req.Text()), image != nil)

	raw, err := g.backend.Generate(ctx, GenerateRequest{
		Parts:  req.Parts,
		Image:  image,
		Schema: req.Schema,
	})
	if err != nil {
		if !errors.Is(err, ErrBackendUnavailable) {
			err = fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		return nil, err
	}

	body := stripCodeFence(raw)
	if body == "" {
		return nil, ErrEmptyResponse
	}
	logging.APIDebug("[Gateway] %s: response_len=%d", req.Kind, len(body))
	return []byte(body), nil
}

// Recruit asks the backend for a council. Any failure is returned; the
// caller must not advance without a valid council.
func (g *Gateway) Recruit(ctx context.Context, situation string, image *types.Image) (types.Council, error) {
	req := prompt.BuildRecruitmentPrompt(situation, image != nil)

	raw, err := g.call(ctx, req, image)
	if err != nil {
		logging.APIError("[Gateway] recruitment failed: %v", err)
		return types.Council{}, &CallError{Op: OpRecruit, Err: err}
	}

	council, err := types.DecodeCouncil(raw)
	if err != nil {
		logging.APIError("[Gateway] recruitment response rejected: %v", err)
		return types.Council{}, &CallError{Op: OpRecruit, Err: err}
	}

	logging.API("[Gateway] council assembled: %s", personaNames(council))
	return council, nil
}

// Simulate asks the council to debate the situation into a scenario batch.
// On failure the batch is nil and the error describes why; the session
// keeps running and the caller may retry.
func (g *Gateway) Simulate(ctx context.Context, situation string, council types.Council, image *types.Image, injectChaos bool) (*types.SimulationBatch, error) {
	req := prompt.BuildSimulationPrompt(situation, council, image != nil, injectChaos)

	raw, err := g.call(ctx, req, image)
	if err != nil {
		logging.APIError("[Gateway] simulation failed: %v", err)
		return nil, &CallError{Op: OpSimulate, Err: err}
	}

	batch, err := types.DecodeSimulation(raw)
	if err != nil {
		logging.APIError("[Gateway] simulation response rejected: %v", err)
		return nil, &CallError{Op: OpSimulate, Err: err}
	}

	logging.API("[Gateway] simulation produced %d scenarios (chaos=%v, alert=%v)", len(batch.Scenarios), injectChaos, batch.HasAlert())
	return &batch, nil
}

func personaNames(c types.Council) string {
	names := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// UserMessage converts a gateway error into a one-line message for the UI.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	prefix := "Model call failed"
	var ce *CallError
	if errors.As(err, &ce) {
		switch ce.Op {
		case OpRecruit:
			prefix = "Recruitment failed"
		case OpSimulate:
			prefix = "Simulation Error"
		}
	}

	var se *types.SchemaError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("%s: response did not match the expected shape (%s: %s)", prefix, se.Field, se.Reason)
	case errors.Is(err, types.ErrMalformedResponse):
		return prefix + ": model returned malformed JSON"
	case errors.Is(err, ErrEmptyResponse):
		return prefix + ": model returned an empty response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return prefix + ": request cancelled or timed out"
	}
	return prefix + ": " + err.Error()
}
