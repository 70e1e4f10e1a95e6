// Package ai talks to the external text generation API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"emotion-character-demo/backend/pkg/resilience"
)

// Generator produces one character reply for a prompt
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single generation call. SystemInstruction carries the
// character sheet and recent history, UserMessage the current turn.
type Request struct {
	SystemInstruction string
	UserMessage       string
}

// Response is the generated reply
type Response struct {
	Text    string
	Model   string
	Latency time.Duration
}

var (
	// ErrEmptyResponse means the API answered without usable text
	ErrEmptyResponse = errors.New("empty response from generation API")
	// ErrNotConfigured means no API key could be resolved
	ErrNotConfigured = errors.New("generation API key not configured")
	// ErrCircuitOpen is returned while the breaker short-circuits calls
	ErrCircuitOpen = resilience.ErrCircuitOpen
)

// StatusError is an API failure carrying the upstream HTTP status
type StatusError struct {
	Code   int
	Status string
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini api error %d %s: %v", e.Code, e.Status, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Transient is true for 408, 429 and 5xx
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests ||
		e.Code >= http.StatusInternalServerError
}

// phrases matched only when no status code is available
var transientMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"quota",
	"resource_exhausted",
	"timeout",
	"timed out",
	"deadline exceeded",
	"unavailable",
	"overloaded",
}

var serverErrorCode = regexp.MustCompile(`\b(?:error|status|code|returned)[: ]+5\d\d\b`)

// IsTransient reports whether a failed generation call is worth retrying.
// Blank responses are transient; an open breaker and caller cancellation are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}

	text := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return serverErrorCode.MatchString(text)
}
