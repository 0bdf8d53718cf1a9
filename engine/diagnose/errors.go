package diagnose

import (
	"errors"
	"fmt"
)

// Failure classes surfaced by the pipeline. Rate-limit and quota exhaustion
// get their own sentinels so callers can show distinct messages; everything
// else is a generic retriable failure.
var (
	// ErrNotConfigured means the gateway API key is missing. It is raised
	// before any request is attempted.
	ErrNotConfigured = errors.New("diagnose: API key is not configured")
	// ErrRateLimited maps HTTP 429 from the AI gateway.
	ErrRateLimited = errors.New("rate limit exceeded, try again in a moment")
	// ErrQuotaExhausted maps HTTP 402 from the AI gateway.
	ErrQuotaExhausted = errors.New("AI credits exhausted")
	// ErrNoResponseText means the gateway answered without usable content.
	ErrNoResponseText = errors.New("no response text from AI")
)

// GatewayError is a non-2xx response outside the classified statuses.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("diagnose: AI gateway error: status %d", e.Status)
}

// ParseError is a response the gateway delivered but the pipeline could not
// turn into a valid analysis. Raw carries the offending text for logging.
type ParseError struct {
	Raw     string
	Wrapped error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("diagnose: unparseable AI response: %v", e.Wrapped)
}

func (e *ParseError) Unwrap() error { return e.Wrapped }
