package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/materium/registry/pkg/retry"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"store unavailable", ErrStoreUnavailable, true},
		{"write failure", ErrWriteFailure, true},
		{"partial index", ErrPartialIndex, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"not found", ErrNotFound, false},
		{"unauthorized", ErrUnauthorized, false},
		{"decode error", ErrDecode, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network connection failed"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"not found", ErrNotFound, true},
		{"unauthorized", ErrUnauthorized, true},
		{"invalid transition", ErrInvalidTransition, true},
		{"invalid record", ErrInvalidRecord, true},
		{"decode error", ErrDecode, true},
		{"write failure", ErrWriteFailure, false},
		{"plain error", fmt.Errorf("something odd"), false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil defaults transient", nil, ErrorTransient},
		{"unauthorized is invalid", ErrUnauthorized, ErrorInvalid},
		{"store unavailable is transient", ErrStoreUnavailable, ErrorTransient},
		{"data corrupted is fatal", fmt.Errorf("state corrupted beyond repair"), ErrorFatal},
		{"unknown defaults transient", fmt.Errorf("mystery"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Classify(test.err); got != test.expected {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := ErrNotFound
	wrapped := Wrap(base, "Store", "Get", "fetch record")

	expected := "Store.Get: fetch record failed: record not found"
	if wrapped.Error() != expected {
		t.Errorf("expected %q, got %q", expected, wrapped.Error())
	}
	if !errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped error should match ErrNotFound")
	}
	if Wrap(nil, "Store", "Get", "fetch record") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(base, "Engine", "Sync", "load index")
			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatal("expected ClassifiedError")
			}
			if ce.Class != test.class {
				t.Errorf("expected class %v, got %v", test.class, ce.Class)
			}
			if ce.Component != "Engine" {
				t.Errorf("expected component Engine, got %s", ce.Component)
			}
			if !errors.Is(err, base) {
				t.Error("classification should preserve the underlying error")
			}
			if test.wrap(nil, "Engine", "Sync", "load index") != nil {
				t.Error("wrapping nil should return nil")
			}
		})
	}
}

func TestTaxonomyClassificationSurvivesWrapping(t *testing.T) {
	err := Wrap(ErrPartialIndex, "Pipeline", "Submit", "append index")
	if !IsTransient(err) {
		t.Error("partial index failure should stay transient through Wrap")
	}
	if !errors.Is(err, ErrPartialIndex) {
		t.Error("errors.Is should still match ErrPartialIndex")
	}
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	config := DefaultRetryConfig()

	if config.ShouldRetry(nil, 0) {
		t.Error("nil error should not retry")
	}
	if !config.ShouldRetry(ErrWriteFailure, 0) {
		t.Error("write failure should retry")
	}
	if config.ShouldRetry(ErrWriteFailure, config.MaxRetries) {
		t.Error("should not retry past max attempts")
	}
	if config.ShouldRetry(ErrUnauthorized, 0) {
		t.Error("caller errors should never retry")
	}
}

func TestRetryConfig_DrivesCallerRetryLoop(t *testing.T) {
	rc := RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      2 * time.Millisecond,
		BackoffFactor: 2.0,
	}

	// Transient failures are retried until they clear
	attempts := 0
	err := retry.Do(context.Background(), rc.ToRetryConfig(), func() error {
		attempts++
		if attempts < 3 {
			return WrapTransient(ErrWriteFailure, "Engine", "RetryIndex", "append index")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retries to clear the failure, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}

	// Non-transient failures abort the loop on the first attempt
	attempts = 0
	err = retry.Do(context.Background(), rc.ToRetryConfig(), func() error {
		attempts++
		return retry.NonRetryable(WrapInvalid(ErrUnauthorized, "Engine", "Transition", "ownership check"))
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryConfig_ToRetryConfig(t *testing.T) {
	rc := RetryConfig{
		MaxRetries:    4,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 1.5,
	}

	cfg := rc.ToRetryConfig()
	if cfg.MaxAttempts != 5 {
		t.Errorf("expected 5 total attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != rc.InitialDelay || cfg.MaxDelay != rc.MaxDelay {
		t.Error("delays should carry over unchanged")
	}
	if !cfg.AddJitter {
		t.Error("jitter should be enabled")
	}
}
