package wfs

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{"bad request", 400, nil, ErrorClassClient},
		{"not found", 404, nil, ErrorClassClient},
		{"server error", 500, nil, ErrorClassServer},
		{"bad gateway", 502, nil, ErrorClassServer},
		{"transport failure", 0, errors.New("connection refused"), ErrorClassNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.statusCode, tt.err)
			if got != tt.expected {
				t.Errorf("classify(%d, %v) = %s, want %s", tt.statusCode, tt.err, got, tt.expected)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		errorClass ErrorClass
		expected   bool
	}{
		{ErrorClassClient, false},
		{ErrorClassServer, true},
		{ErrorClassNetwork, true},
		{"", false},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.errorClass); got != tt.expected {
			t.Errorf("shouldRetry(%s) = %v, want %v", tt.errorClass, got, tt.expected)
		}
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	clientErr := NewServiceError(400, "bad filter")
	if !errors.Is(clientErr, ErrInvalidFilter) {
		t.Error("client-class error should unwrap to ErrInvalidFilter")
	}

	serverErr := NewServiceError(503, "unavailable")
	if !errors.Is(serverErr, ErrServiceUnavailable) {
		t.Error("server-class error should unwrap to ErrServiceUnavailable")
	}

	cause := errors.New("connection reset")
	netErr := &ServiceError{ErrorClass: ErrorClassNetwork, Message: "transport failure", Err: cause}
	if !errors.Is(netErr, cause) {
		t.Error("wrapped cause should surface through errors.Is")
	}
}
