package wfs

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrInvalidFilter is returned when the server rejects a CQL filter
	// predicate. Never retried.
	ErrInvalidFilter = errors.New("invalid filter predicate")

	// ErrServiceUnavailable is returned for network and 5xx failures that
	// survive the retry boundary.
	ErrServiceUnavailable = errors.New("feature service unavailable")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// ServiceError represents a WFS request error with additional context.
type ServiceError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wfs %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("wfs %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// NewServiceError builds a ServiceError classified from the HTTP status.
func NewServiceError(statusCode int, message string) *ServiceError {
	return &ServiceError{
		StatusCode: statusCode,
		ErrorClass: classify(statusCode, nil),
		Message:    message,
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ServiceError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.ErrorClass {
	case ErrorClassClient:
		return ErrInvalidFilter
	case ErrorClassServer, ErrorClassNetwork:
		return ErrServiceUnavailable
	}
	return nil
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors are request errors, retrying cannot help
		return false
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		return true
	default:
		return false
	}
}

// classify categorizes a response status / transport error.
func classify(statusCode int, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
