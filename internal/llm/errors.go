package llm

import (
	"errors"
	"fmt"
)

// Common LLM client errors
var (
	// ErrTimeout is returned when a completion call exceeds its
	// wall-clock timeout.
	ErrTimeout = errors.New("LLM request timed out")

	// ErrEmptyCompletion is returned when the provider responds without
	// any choices.
	ErrEmptyCompletion = errors.New("LLM returned no completion choices")

	// ErrRequestRejected is returned on HTTP 4xx responses. These are
	// not retried.
	ErrRequestRejected = errors.New("LLM request rejected by provider")

	// ErrUnavailable is returned when all retry attempts are exhausted
	// on transient failures.
	ErrUnavailable = errors.New("LLM provider unavailable")
)

// ClientError wraps errors with additional context about the failed call.
type ClientError struct {
	// Op is the operation that failed (e.g., "Complete").
	Op string

	// Err is the underlying error.
	Err error

	// Model is the model label used for the call.
	Model string

	// Attempts is the number of attempts made before giving up.
	Attempts int
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("llm: %s failed (model: %s, attempts: %d): %v", e.Op, e.Model, e.Attempts, e.Err)
	}
	return fmt.Sprintf("llm: %s failed (model: %s): %v", e.Op, e.Model, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ClientError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// BadJSONError is returned when no JSON document could be recovered
// from a completion, even after cleanup. Raw preserves the full reply
// for manual recovery.
type BadJSONError struct {
	Raw    string
	Reason string
}

// Error implements the error interface.
func (e *BadJSONError) Error() string {
	return fmt.Sprintf("llm: unparseable JSON in completion: %s", e.Reason)
}

// IsBadJSON reports whether err carries a BadJSONError.
func IsBadJSON(err error) bool {
	var bad *BadJSONError
	return errors.As(err, &bad)
}
