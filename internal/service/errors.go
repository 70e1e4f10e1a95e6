package service

import (
	"errors"
	"fmt"
)

// Error codes returned to clients for failed turns
const (
	CodeValidation          = "validation_error"
	CodeNotFound            = "not_found"
	CodeInsufficientCredits = "insufficient_credits"
	CodeNoResponse          = "no_response_generated"
	CodeAPIError            = "api_error"
)

// ErrConversationNotFound covers both missing conversations and ones owned by someone else
var ErrConversationNotFound = errors.New("conversation not found")

// ValidationError is malformed user input; the user can correct and resubmit
type ValidationError struct {
	Reason string // empty, too_long, conversation_ended
}

func (e *ValidationError) Error() string {
	return "invalid message: " + e.Reason
}

// InsufficientCreditsError means the balance is below the turn cost
type InsufficientCreditsError struct {
	Balance  int
	Required int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: have %d, need %d", e.Balance, e.Required)
}

// TransientGenerationError is a retryable generation failure. It surfaces
// only once retries are exhausted.
type TransientGenerationError struct {
	Attempts int
	Err      error
}

func (e *TransientGenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientGenerationError) Unwrap() error { return e.Err }

// PermanentGenerationError is a generation failure that retrying cannot fix
type PermanentGenerationError struct {
	Attempt int
	Err     error
}

func (e *PermanentGenerationError) Error() string {
	return fmt.Sprintf("generation failed permanently on attempt %d: %v", e.Attempt, e.Err)
}

func (e *PermanentGenerationError) Unwrap() error { return e.Err }

// ErrorCode maps a turn error to its client-facing code
func ErrorCode(err error) string {
	var (
		validation *ValidationError
		credits    *InsufficientCreditsError
		transient  *TransientGenerationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return CodeValidation
	case errors.Is(err, ErrConversationNotFound):
		return CodeNotFound
	case errors.As(err, &credits):
		return CodeInsufficientCredits
	case errors.As(err, &transient):
		if transient.Attempts > 0 && isEmptyResponse(transient.Err) {
			return CodeNoResponse
		}
		return CodeAPIError
	default:
		return CodeAPIError
	}
}
