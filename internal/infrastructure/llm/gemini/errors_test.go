package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/lexhub/regrag/internal/core/domain"
)

func TestClassifyRateLimit(t *testing.T) {
	err := classifyGenerationFailure(genai.APIError{
		Code:    429,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "Rate limit hit. Please retry in 21.5s.",
	})

	genErr, ok := domain.AsGenerationError(err)
	if !ok {
		t.Fatalf("not a generation error: %v", err)
	}
	if genErr.Kind != domain.GenRateLimit || !genErr.Retryable {
		t.Fatalf("kind=%q retryable=%v", genErr.Kind, genErr.Retryable)
	}
	if genErr.RetryAfter != 21500*time.Millisecond {
		t.Fatalf("retry after=%v, want server-suggested 21.5s", genErr.RetryAfter)
	}
}

func TestClassifyRateLimitDefaultWait(t *testing.T) {
	err := classifyGenerationFailure(genai.APIError{Code: 429, Message: "too many requests"})
	genErr, _ := domain.AsGenerationError(err)
	if genErr.RetryAfter != rateLimitDefaultWait {
		t.Fatalf("retry after=%v, want default %v", genErr.RetryAfter, rateLimitDefaultWait)
	}
}

func TestClassifyQuotaExceeded(t *testing.T) {
	cases := []genai.APIError{
		{Code: 429, Message: "You exceeded your current quota"},
		{Code: 403, Status: "PERMISSION_DENIED", Message: "quota exceeded for project"},
	}
	for _, apiErr := range cases {
		genErr, ok := domain.AsGenerationError(classifyGenerationFailure(apiErr))
		if !ok || genErr.Kind != domain.GenQuotaExceeded {
			t.Fatalf("code=%d: kind=%v, want quota_exceeded", apiErr.Code, genErr)
		}
		if genErr.Retryable {
			t.Fatalf("code=%d: quota exhaustion must not be retryable", apiErr.Code)
		}
	}
}

func TestClassifyByCode(t *testing.T) {
	cases := []struct {
		apiErr    genai.APIError
		wantKind  domain.GenerationErrorKind
		retryable bool
	}{
		{genai.APIError{Code: 400, Message: "bad prompt"}, domain.GenInvalidRequest, false},
		{genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}, domain.GenAuth, false},
		{genai.APIError{Code: 403, Status: "PERMISSION_DENIED", Message: "key disabled"}, domain.GenAuth, false},
		{genai.APIError{Code: 503, Status: "UNAVAILABLE"}, domain.GenUnavailable, true},
		{genai.APIError{Code: 504, Status: "DEADLINE_EXCEEDED"}, domain.GenNetwork, true},
		{genai.APIError{Code: 500, Message: "internal"}, domain.GenUnknown, true},
	}
	for _, tc := range cases {
		genErr, ok := domain.AsGenerationError(classifyGenerationFailure(tc.apiErr))
		if !ok {
			t.Fatalf("code=%d not classified", tc.apiErr.Code)
		}
		if genErr.Kind != tc.wantKind || genErr.Retryable != tc.retryable {
			t.Errorf("code=%d: got kind=%q retryable=%v, want %q/%v",
				tc.apiErr.Code, genErr.Kind, genErr.Retryable, tc.wantKind, tc.retryable)
		}
	}
}

func TestClassifyPlainErrors(t *testing.T) {
	genErr, _ := domain.AsGenerationError(classifyGenerationFailure(errors.New("dial tcp: connection refused")))
	if genErr.Kind != domain.GenNetwork {
		t.Fatalf("kind=%q, want network for connection error", genErr.Kind)
	}

	genErr, _ = domain.AsGenerationError(classifyGenerationFailure(errors.New("something odd happened")))
	if genErr.Kind != domain.GenUnknown || !genErr.Retryable {
		t.Fatalf("fallback classification wrong: %+v", genErr)
	}
}

func TestClassifyPassesThroughCancellation(t *testing.T) {
	if err := classifyGenerationFailure(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation rewritten: %v", err)
	}
}

func TestClassifyForRetryUsesGenerationSemantics(t *testing.T) {
	class := classifyForRetry(&domain.GenerationError{
		Kind:       domain.GenRateLimit,
		Retryable:  true,
		RetryAfter: 30 * time.Second,
	})
	if !class.Retryable || class.RetryAfter != 30*time.Second {
		t.Fatalf("classification=%+v", class)
	}

	class = classifyForRetry(&domain.GenerationError{Kind: domain.GenInvalidRequest})
	if class.Retryable || class.RecordFailure {
		t.Fatalf("invalid request must neither retry nor trip the breaker: %+v", class)
	}

	class = classifyForRetry(context.Canceled)
	if class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must not count as failure: %+v", class)
	}
}

func TestExtractTextReassemblesParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Parts: []*genai.Part{
					{Text: "The notice period "},
					{Text: "is eight weeks."},
				},
			},
		}},
	}
	text, ok := extractText(resp)
	if !ok || text != "The notice period is eight weeks." {
		t.Fatalf("ok=%v text=%q", ok, text)
	}
}

func TestExtractTextEmptyResponses(t *testing.T) {
	if _, ok := extractText(nil); ok {
		t.Fatal("nil response extracted")
	}
	if _, ok := extractText(&genai.GenerateContentResponse{}); ok {
		t.Fatal("empty candidates extracted")
	}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "   "}}}}},
	}
	if _, ok := extractText(resp); ok {
		t.Fatal("whitespace-only text extracted")
	}
}
