package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/logger"
)

// Shape is the top-level JSON type a completion must have
type Shape string

// Expected response shapes
const (
	ShapeObject Shape = "object"
	ShapeArray  Shape = "array"
)

// Request is one completion call. Payload is marshaled to JSON and appended
// to the system instructions.
type Request struct {
	Name    string
	System  string
	Payload any
	Shape   Shape
	Tier    ModelTier
}

// Gateway turns (instructions, payload) into a JSON document of the requested shape
type Gateway interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// GatewayFunc adapts a function to the Gateway interface
type GatewayFunc func(ctx context.Context, req Request) (json.RawMessage, error)

// Complete calls f
func (f GatewayFunc) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// ClientGateway implements Gateway on top of a Client
type ClientGateway struct {
	client  Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewGateway wraps client. A non-positive timeout selects DefaultTimeout.
func NewGateway(client Client, timeout time.Duration, log *zap.Logger) *ClientGateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ClientGateway{client: client, timeout: timeout, logger: logger.OrNop(log)}
}

// Complete runs one bounded completion. It never retries.
func (g *ClientGateway) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, &GatewayError{Kind: KindMalformed, Request: req.Name, Message: "payload is not serializable", Cause: err}
	}
	prompt := BuildPrompt(req.System, req.Shape, payload)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.client.GenerateJSON(callCtx, prompt, req.Tier)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &GatewayError{Kind: KindTimeout, Request: req.Name, Message: fmt.Sprintf("no response within %s", g.timeout), Cause: err}
		}
		return nil, &GatewayError{Kind: KindTransport, Request: req.Name, Message: "completion failed", Cause: err}
	}

	raw, err := ParseShape(text, req.Shape)
	if err != nil {
		g.logger.Debug("malformed completion",
			zap.String("request", req.Name),
			zap.String("response", logger.Truncate(text, 200)))
		return nil, &GatewayError{Kind: KindMalformed, Request: req.Name, Message: "response is not the expected JSON", Cause: err}
	}

	g.logger.Debug("completion finished",
		zap.String("request", req.Name),
		zap.String("model", g.client.GetModel(req.Tier)),
		zap.Duration("elapsed", elapsed))
	return raw, nil
}

// ParseShape cleans a model response and checks it is valid JSON of the given shape
func ParseShape(text string, shape Shape) (json.RawMessage, error) {
	cleaned := CleanJSONBlock(text)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}
	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("invalid JSON")
	}
	switch shape {
	case ShapeObject:
		if cleaned[0] != '{' {
			return nil, fmt.Errorf("expected a JSON object")
		}
	case ShapeArray:
		if cleaned[0] != '[' {
			return nil, fmt.Errorf("expected a JSON array")
		}
	}
	return json.RawMessage(cleaned), nil
}

// BuildPrompt joins the instructions, the output contract and the payload
func BuildPrompt(system string, shape Shape, payload []byte) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(system))
	sb.WriteString("\n\nIMPORTANT:\n")
	switch shape {
	case ShapeArray:
		sb.WriteString("- Return ONLY a JSON array, no markdown, no explanation, no code blocks.\n")
	default:
		sb.WriteString("- Return ONLY a JSON object, no markdown, no explanation, no code blocks.\n")
	}
	sb.WriteString("- Quote the input verbatim wherever a source quote is requested.\n\n")
	sb.WriteString("INPUT:\n")
	sb.Write(payload)
	sb.WriteString("\n")
	return sb.String()
}
