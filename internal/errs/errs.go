// Package errs defines the failure taxonomy shared by every component.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is to classify a failure.
var (
	ErrValidation = errors.New("validation error")
	ErrHTTP       = errors.New("http error")
	ErrNetwork    = errors.New("network error")
	ErrExtraction = errors.New("extraction error")
)

// ValidationError is raised before any network call when input is unusable
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation creates a validation error for a field
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// HTTPError is a non-2xx response from the backend
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

// HTTP creates an HTTP error. An empty message falls back to the generic status text.
func HTTP(status int, message string) *HTTPError {
	if message == "" {
		message = fmt.Sprintf("HTTP error, status=%d", status)
	}
	return &HTTPError{Status: status, Message: message}
}

// NetworkError is a transport failure (no connectivity, timeout, cancelled request)
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// ExtractionError reports that a document could not be turned into an analysis.
// A nil Err means the transport succeeded but the response carried no usable
// analysis; that case is soft and reported as zero findings.
type ExtractionError struct {
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	return e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

// Soft reports whether the failure is the "no usable analysis" case
func (e *ExtractionError) Soft() bool {
	return e.Err == nil
}

// Extraction wraps a lower-level failure. A nil cause produces a soft error.
func Extraction(cause error) *ExtractionError {
	if cause == nil {
		return &ExtractionError{Message: "no usable analysis returned"}
	}
	return &ExtractionError{Message: UserMessage(cause), Err: cause}
}

// UserMessage returns the text that should be shown to a person for err.
// HTTP failures show the server's message verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Err.Error()
	}
	return err.Error()
}
