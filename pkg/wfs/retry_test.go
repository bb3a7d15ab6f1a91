package wfs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 60*time.Second {
		t.Errorf("MaxBackoff = %v, want 60s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    1 * time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	fn := func() error {
		callCount++
		return nil
	}

	err := retryWithBackoff(ctx, fastRetryConfig(3), fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	ctx := context.Background()

	// Fails MaxAttempts-1 times, then succeeds
	callCount := 0
	fn := func() error {
		callCount++
		if callCount < 5 {
			return errors.New("temporary error")
		}
		return nil
	}

	err := retryWithBackoff(ctx, fastRetryConfig(5), fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 5 {
		t.Errorf("Expected 5 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	fn := func() error {
		callCount++
		return errors.New("persistent error")
	}

	err := retryWithBackoff(ctx, fastRetryConfig(3), fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ClientErrorNotRetried(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	cause := errors.New("bad filter")
	fn := func() error {
		callCount++
		return cause
	}

	err := retryWithBackoff(ctx, fastRetryConfig(5), fn, func(error) ErrorClass {
		return ErrorClassClient
	})

	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to surface, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("Client error must not be wrapped as retry exhaustion")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	fn := func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return errors.New("temporary error")
	}

	config := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
	}

	err := retryWithBackoff(ctx, config, fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call before cancellation, got %d", callCount)
	}
}

func TestRetry_ClassifiesServiceErrors(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	fn := func() error {
		callCount++
		return NewServiceError(400, "bad request")
	}

	err := Retry(ctx, fastRetryConfig(5), fn)

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("Expected *ServiceError, got %v", err)
	}
	if svcErr.ErrorClass != ErrorClassClient {
		t.Errorf("ErrorClass = %s, want client", svcErr.ErrorClass)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call for a client error, got %d", callCount)
	}
}
