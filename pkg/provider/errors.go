package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// ErrorClass separates failures the orchestrator may retry from failures
// that advance the fallback plan immediately.
type ErrorClass string

const (
	// ErrorClassTransient covers timeouts, connection failures, rate
	// limits and 5xx-class backend errors. Eligible for retry with backoff.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent covers bad requests, auth failures and
	// unsupported input modes. Never retried on the same target.
	ErrorClassPermanent ErrorClass = "permanent"
)

// Error is a structured provider failure with its origin, HTTP status
// (0 for network-level errors) and retry class.
type Error struct {
	Provider string
	Status   int
	Class    ErrorClass
	Message  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d, %s)", e.Provider, e.Message, e.Status, e.Class)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Class)
}

// Transient reports whether the failure is eligible for retry.
func (e *Error) Transient() bool {
	return e.Class == ErrorClassTransient
}

// NewTransientError creates a retryable provider Error.
func NewTransientError(providerName, message string) *Error {
	return &Error{
		Provider: providerName,
		Class:    ErrorClassTransient,
		Message:  message,
	}
}

// NewPermanentError creates a non-retryable provider Error.
func NewPermanentError(providerName, message string) *Error {
	return &Error{
		Provider: providerName,
		Class:    ErrorClassPermanent,
		Message:  message,
	}
}

// MapHTTPError converts an HTTP response with a non-2xx status code into a
// provider Error. It attempts to parse the response body for a descriptive
// upstream message. Rate limits and 5xx-class statuses are transient;
// everything else in the 4xx range is permanent.
func MapHTTPError(providerName string, resp *http.Response) *Error {
	message := ExtractErrorMessage(resp.Body)

	class := ErrorClassPermanent
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		class = ErrorClassTransient
	}

	if message == "" {
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			message = "backend authentication failed"
		case resp.StatusCode == http.StatusTooManyRequests:
			message = "backend rate limit exceeded"
		case resp.StatusCode >= http.StatusInternalServerError:
			message = fmt.Sprintf("backend server error (HTTP %d)", resp.StatusCode)
		default:
			message = fmt.Sprintf("backend rejected request (HTTP %d)", resp.StatusCode)
		}
	}

	return &Error{
		Provider: providerName,
		Status:   resp.StatusCode,
		Class:    class,
		Message:  message,
	}
}

// MapNetworkError converts a network-level error (connection refused, timeout,
// DNS resolution failure) into a provider Error. Timeouts and connection
// failures are transient; a cancelled context is permanent because retrying
// a cancelled call is pointless.
func MapNetworkError(providerName string, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return NewPermanentError(providerName, "call cancelled")
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewTransientError(providerName, fmt.Sprintf("backend call timed out: %s", err.Error()))
	}

	return NewTransientError(providerName, fmt.Sprintf("backend connection error: %s", err.Error()))
}

// ExtractErrorMessage tries to parse an error response body and returns the
// upstream message if found. It understands both the nested object form
// {"error": {"message": "..."}} used by Gemini, OpenAI and Anthropic, and
// the bare string form {"error": "..."} used by Ollama.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var probe struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || len(probe.Error) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(probe.Error, &asString); err == nil {
		return asString
	}

	var asObject struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(probe.Error, &asObject); err == nil {
		return asObject.Message
	}

	return ""
}
