package llm

import "fmt"

// GatewayErrorKind classifies a failed completion
type GatewayErrorKind string

// Gateway failure kinds
const (
	KindTimeout   GatewayErrorKind = "timeout"
	KindMalformed GatewayErrorKind = "malformed"
	KindTransport GatewayErrorKind = "transport"
)

// GatewayError is returned by Gateway.Complete for any failed call
type GatewayError struct {
	Kind    GatewayErrorKind
	Request string // request name, for logging
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	prefix := fmt.Sprintf("gateway %s", e.Kind)
	if e.Request != "" {
		prefix = fmt.Sprintf("%s (%s)", prefix, e.Request)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}
