package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joblens/extractor/internal/infra/llm/provider"
)

func TestCategorize_ClassifiedError(t *testing.T) {
	err := New(CategoryContentTooLarge, "too big")
	if got := Classify(err).Category; got != CategoryContentTooLarge {
		t.Errorf("Expected content_too_large, got %s", got)
	}

	// Category survives wrapping
	wrapped := fmt.Errorf("extract failed: %w", err)
	if got := Classify(wrapped).Category; got != CategoryContentTooLarge {
		t.Errorf("Expected content_too_large through wrapping, got %s", got)
	}
}

func TestCategorize_HTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		expect Category
	}{
		{401, CategoryInvalidAPIKey},
		{403, CategoryInvalidAPIKey},
		{408, CategoryTimeout},
		{429, CategoryRateLimited},
		{404, CategoryProviderRejected},
		{422, CategoryProviderRejected},
		{500, CategoryUnavailable},
		{502, CategoryUnavailable},
		{503, CategoryUnavailable},
	}

	for _, tt := range tests {
		err := &provider.Error{Provider: "openai", StatusCode: tt.status, Err: errors.New("rejected")}
		if got := Classify(err).Category; got != tt.expect {
			t.Errorf("HTTP %d: expected %s, got %s", tt.status, tt.expect, got)
		}
	}
}

func TestCategorize_GRPCStatus(t *testing.T) {
	tests := []struct {
		code   codes.Code
		expect Category
	}{
		{codes.Unavailable, CategoryUnavailable},
		{codes.DeadlineExceeded, CategoryTimeout},
		{codes.ResourceExhausted, CategoryRateLimited},
		{codes.Unauthenticated, CategoryInvalidAPIKey},
		{codes.InvalidArgument, CategoryProviderRejected},
	}

	for _, tt := range tests {
		err := status.Error(tt.code, "upstream")
		if got := Classify(err).Category; got != tt.expect {
			t.Errorf("gRPC %s: expected %s, got %s", tt.code, tt.expect, got)
		}
	}
}

func TestCategorize_NetworkErrors(t *testing.T) {
	if got := Classify(context.DeadlineExceeded).Category; got != CategoryTimeout {
		t.Errorf("Expected timeout for deadline exceeded, got %s", got)
	}
	if got := Classify(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)).Category; got != CategoryConnectionRefused {
		t.Errorf("Expected connection_refused, got %s", got)
	}
}

func TestCategorize_TextPatterns(t *testing.T) {
	tests := []struct {
		err    error
		expect Category
	}{
		{errors.New("project rate limit exceeded"), CategoryRateLimited},
		{errors.New("429 Too Many Requests"), CategoryRateLimited},
		{errors.New("quota exceeded for this billing period"), CategoryRateLimited},
		{errors.New("model is overloaded"), CategoryRateLimited},
		{errors.New("connection refused"), CategoryConnectionRefused},
		{errors.New("request timed out"), CategoryTimeout},
		{errors.New("503 Service Unavailable"), CategoryUnavailable},
		{errors.New("connection reset by peer"), CategoryUnavailable},
		{errors.New("invalid api key provided"), CategoryInvalidAPIKey},
	}

	for _, tt := range tests {
		if got := Classify(tt.err).Category; got != tt.expect {
			t.Errorf("Classify(%q) = %s, want %s", tt.err, got, tt.expect)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err    error
		expect bool
	}{
		{New(CategoryRateLimited, "slow down"), true},
		{New(CategoryTimeout, "too slow"), true},
		{New(CategoryUnavailable, "down"), true},
		{New(CategoryConnectionRefused, "refused"), true},
		{New(CategoryInvalidContent, "empty"), false},
		{New(CategoryInvalidURL, "bad url"), false},
		{New(CategoryInvalidAPIKey, "bad key"), false},
		{New(CategoryInvalidResponseFormat, "garbage"), false},
		{New(CategoryMissingRequiredFields, "no title"), false},
		{New(CategoryAllProvidersFailed, "exhausted"), false},
		// Unknown errors fail closed
		{errors.New("something novel went wrong"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.expect {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestTriggersFallback(t *testing.T) {
	shouldWalk := []Category{
		CategoryRateLimited, CategoryTimeout, CategoryUnavailable,
		CategoryConnectionRefused, CategoryInvalidResponseFormat,
		CategoryMissingRequiredFields,
	}
	for _, cat := range shouldWalk {
		if !cat.TriggersFallback() {
			t.Errorf("%s should trigger the fallback chain", cat)
		}
	}

	shouldStop := []Category{
		CategoryInvalidContent, CategoryContentTooLarge, CategoryInvalidURL,
		CategoryInvalidAPIKey, CategoryProviderRejected, CategoryUnknown,
	}
	for _, cat := range shouldStop {
		if cat.TriggersFallback() {
			t.Errorf("%s should short-circuit, not walk the chain", cat)
		}
	}
}

func TestUserMessage_UnknownIncludesRawError(t *testing.T) {
	err := errors.New("flux capacitor misaligned")
	msg := UserMessage(err)
	if !strings.Contains(msg, "flux capacitor misaligned") {
		t.Errorf("Generic fallback should embed the raw error, got %q", msg)
	}
}

func TestClassify_RemediationBounds(t *testing.T) {
	categories := []Category{
		CategoryInvalidContent, CategoryContentTooLarge, CategoryInvalidURL,
		CategoryRateLimited, CategoryTimeout, CategoryUnavailable,
		CategoryConnectionRefused, CategoryInvalidAPIKey,
		CategoryProviderRejected, CategoryInvalidResponseFormat,
		CategoryMissingRequiredFields, CategoryAllProvidersFailed,
		CategoryUnknown,
	}

	for _, cat := range categories {
		c := Classify(New(cat, "boom"))
		if len(c.Remediation) < 2 || len(c.Remediation) > 4 {
			t.Errorf("%s: expected 2-4 remediation steps, got %d", cat, len(c.Remediation))
		}
		if c.Message == "" {
			t.Errorf("%s: expected a user message", cat)
		}
	}
}

func TestError_Format(t *testing.T) {
	err := &Error{Category: CategoryTimeout, Provider: "openai", Message: "60s elapsed"}
	want := "timeout (provider openai): 60s elapsed"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	cause := errors.New("underlying")
	wrapped := Wrap(CategoryUnavailable, cause)
	if !errors.Is(wrapped, cause) {
		t.Error("Expected Wrap to preserve the cause for errors.Is")
	}
}
