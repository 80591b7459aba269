package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// GenerationErrorKind classifies a failed generation call.
type GenerationErrorKind string

const (
	GenRateLimit      GenerationErrorKind = "rate_limit"
	GenQuotaExceeded  GenerationErrorKind = "quota_exceeded"
	GenInvalidRequest GenerationErrorKind = "invalid_request"
	GenNetwork        GenerationErrorKind = "network"
	GenAuth           GenerationErrorKind = "auth"
	GenUnavailable    GenerationErrorKind = "unavailable"
	GenUnknown        GenerationErrorKind = "unknown"
)

// GenerationError is the classified outcome of a failed generation call. It
// is carried through the retry loop and surfaced in answer metadata, never
// silently dropped.
type GenerationError struct {
	Kind       GenerationErrorKind
	Message    string
	RetryAfter time.Duration
	Retryable  bool
	Cause      error
}

func (e *GenerationError) Error() string {
	if e == nil {
		return "generation error"
	}
	if e.Message == "" {
		return fmt.Sprintf("generation error: %s", e.Kind)
	}
	return fmt.Sprintf("generation error (%s): %s", e.Kind, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// AsGenerationError unwraps err into a GenerationError if one is present.
func AsGenerationError(err error) (*GenerationError, bool) {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}
