package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrThrottled marks a "too many requests" response. It is retried
	// internally and only surfaces wrapped in ErrRateLimitExceeded.
	ErrThrottled = errors.New("throttled by upstream")

	// ErrRateLimitExceeded is returned when every allowed attempt was throttled.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidQuery is returned for a query that must not be sent.
	ErrInvalidQuery = errors.New("invalid query")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassThrottled represents 429 Too Many Requests.
	ErrorClassThrottled ErrorClass = "throttled"

	// ErrorClassClient represents other 4xx errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassMalformed represents a 200 response without the expected shape.
	ErrorClassMalformed ErrorClass = "malformed"
)

// HTTPError is a non-success, non-throttling response status. It is never
// retried.
type HTTPError struct {
	StatusCode int
	Status     string
	Endpoint   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("catalogue %s error (status %d): %s: %s",
		e.Class(), e.StatusCode, e.Endpoint, status)
}

// Class returns the error class of the status code.
func (e *HTTPError) Class() ErrorClass {
	return classifyStatus(e.StatusCode)
}

// classifyStatus maps a failing status code to its error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassThrottled
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// shouldRetry reports whether a failure class is retried. Only throttling is.
func shouldRetry(class ErrorClass) bool {
	return class == ErrorClassThrottled
}
