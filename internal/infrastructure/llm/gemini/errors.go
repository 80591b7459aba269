package gemini

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/lexhub/regrag/internal/core/domain"
	"github.com/lexhub/regrag/internal/infrastructure/resilience"
)

// Suggested waits per error kind when the server gives no hint.
const (
	rateLimitDefaultWait = 60 * time.Second
	quotaSuggestedWait   = time.Hour
	networkWait          = 5 * time.Second
	unavailableWait      = 5 * time.Second
	unknownWait          = 30 * time.Second
)

// e.g. "Please retry in 21.5s" inside a RESOURCE_EXHAUSTED message.
var retryDelayPattern = regexp.MustCompile(`retry in (\d+(?:\.\d+)?)s`)

// classifyGenerationFailure maps every non-success outcome of a generation
// call onto exactly one GenerationError kind. Context cancellation is passed
// through untouched so callers can distinguish it from service failures.
func classifyGenerationFailure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if genErr, ok := domain.AsGenerationError(err); ok {
		return genErr
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.GenerationError{
			Kind:       domain.GenNetwork,
			Message:    err.Error(),
			RetryAfter: networkWait,
			Retryable:  true,
			Cause:      err,
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "connection"):
		return &domain.GenerationError{
			Kind:       domain.GenNetwork,
			Message:    err.Error(),
			RetryAfter: networkWait,
			Retryable:  true,
			Cause:      err,
		}
	case strings.Contains(lower, "unavailable"):
		return &domain.GenerationError{
			Kind:       domain.GenUnavailable,
			Message:    err.Error(),
			RetryAfter: unavailableWait,
			Retryable:  true,
			Cause:      err,
		}
	}

	return &domain.GenerationError{
		Kind:       domain.GenUnknown,
		Message:    err.Error(),
		RetryAfter: unknownWait,
		Retryable:  true,
		Cause:      err,
	}
}

func classifyAPIError(apiErr genai.APIError, cause error) *domain.GenerationError {
	message := apiErr.Message
	lowerMsg := strings.ToLower(message)
	status := strings.ToUpper(apiErr.Status)

	switch {
	case apiErr.Code == 429 || status == "RESOURCE_EXHAUSTED":
		if strings.Contains(lowerMsg, "quota") || strings.Contains(lowerMsg, "billing") {
			return &domain.GenerationError{
				Kind:       domain.GenQuotaExceeded,
				Message:    message,
				RetryAfter: quotaSuggestedWait,
				Retryable:  false,
				Cause:      cause,
			}
		}
		return &domain.GenerationError{
			Kind:       domain.GenRateLimit,
			Message:    message,
			RetryAfter: suggestedRetryDelay(message),
			Retryable:  true,
			Cause:      cause,
		}

	case apiErr.Code == 400 || status == "INVALID_ARGUMENT":
		return &domain.GenerationError{
			Kind:      domain.GenInvalidRequest,
			Message:   message,
			Retryable: false,
			Cause:     cause,
		}

	case apiErr.Code == 401 || status == "UNAUTHENTICATED":
		return &domain.GenerationError{
			Kind:      domain.GenAuth,
			Message:   message,
			Retryable: false,
			Cause:     cause,
		}

	case apiErr.Code == 403 || status == "PERMISSION_DENIED":
		if strings.Contains(lowerMsg, "quota") {
			return &domain.GenerationError{
				Kind:       domain.GenQuotaExceeded,
				Message:    message,
				RetryAfter: quotaSuggestedWait,
				Retryable:  false,
				Cause:      cause,
			}
		}
		return &domain.GenerationError{
			Kind:      domain.GenAuth,
			Message:   message,
			Retryable: false,
			Cause:     cause,
		}

	case apiErr.Code == 503 || status == "UNAVAILABLE":
		return &domain.GenerationError{
			Kind:       domain.GenUnavailable,
			Message:    message,
			RetryAfter: unavailableWait,
			Retryable:  true,
			Cause:      cause,
		}

	case apiErr.Code == 504 || status == "DEADLINE_EXCEEDED":
		return &domain.GenerationError{
			Kind:       domain.GenNetwork,
			Message:    message,
			RetryAfter: networkWait,
			Retryable:  true,
			Cause:      cause,
		}
	}

	return &domain.GenerationError{
		Kind:       domain.GenUnknown,
		Message:    message,
		RetryAfter: unknownWait,
		Retryable:  true,
		Cause:      cause,
	}
}

func suggestedRetryDelay(message string) time.Duration {
	if m := retryDelayPattern.FindStringSubmatch(strings.ToLower(message)); m != nil {
		if seconds, err := strconv.ParseFloat(m[1], 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}
	return rateLimitDefaultWait
}

// classifyForRetry adapts GenerationError semantics to the resilience
// executor. Client-side mistakes must not trip the breaker.
func classifyForRetry(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if genErr, ok := domain.AsGenerationError(err); ok {
		return resilience.ErrorClassification{
			Retryable:     genErr.Retryable,
			RecordFailure: genErr.Retryable || genErr.Kind == domain.GenUnavailable,
			RetryAfter:    genErr.RetryAfter,
		}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
