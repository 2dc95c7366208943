package classify

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joblens/extractor/internal/infra/llm/provider"
)

// Classification is the denormalized bundle handed to logging, telemetry and
// API responses.
type Classification struct {
	Category    Category `json:"category"`
	Retryable   bool     `json:"retryable"`
	Message     string   `json:"message"`
	Remediation []string `json:"remediation"`
}

// Classify determines the failure category of an error. Classification
// sources are consulted in order: an explicit classified error, context
// cancellation, typed provider HTTP errors, gRPC status codes, network
// errors, and finally text patterns. Anything unrecognized is unknown and
// not retryable.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}
	cat := categorize(err)
	return Classification{
		Category:    cat,
		Retryable:   cat.Retryable(),
		Message:     message(cat, err),
		Remediation: remediation(cat),
	}
}

// IsRetryable reports whether the error is worth retrying against the same
// provider.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return categorize(err).Retryable()
}

// UserMessage maps the error to a single human-readable sentence.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return message(categorize(err), err)
}

func categorize(err error) Category {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Category
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var perr *provider.Error
	if errors.As(err, &perr) && perr.StatusCode != 0 {
		return fromHTTPStatus(perr.StatusCode)
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		if cat, ok := fromGRPCCode(st.Code()); ok {
			return cat
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return CategoryConnectionRefused
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return CategoryTimeout
	}

	return fromText(err.Error())
}

func fromHTTPStatus(code int) Category {
	switch {
	case code == 401 || code == 403:
		return CategoryInvalidAPIKey
	case code == 408:
		return CategoryTimeout
	case code == 429:
		return CategoryRateLimited
	case code >= 500:
		return CategoryUnavailable
	case code >= 400:
		return CategoryProviderRejected
	default:
		return CategoryUnknown
	}
}

func fromGRPCCode(code codes.Code) (Category, bool) {
	switch code {
	case codes.Unavailable:
		return CategoryUnavailable, true
	case codes.DeadlineExceeded:
		return CategoryTimeout, true
	case codes.ResourceExhausted:
		return CategoryRateLimited, true
	case codes.Unauthenticated, codes.PermissionDenied:
		return CategoryInvalidAPIKey, true
	case codes.InvalidArgument, codes.FailedPrecondition:
		return CategoryProviderRejected, true
	default:
		return CategoryUnknown, false
	}
}

func fromText(s string) Category {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "quota") || strings.Contains(lower, "overloaded"):
		return CategoryRateLimited
	case strings.Contains(lower, "connection refused"):
		return CategoryConnectionRefused
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(lower, "service unavailable") || strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "connection reset") || strings.Contains(lower, "no such host"):
		return CategoryUnavailable
	case strings.Contains(lower, "api key") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "authentication"):
		return CategoryInvalidAPIKey
	default:
		return CategoryUnknown
	}
}

func message(cat Category, err error) string {
	switch cat {
	case CategoryInvalidContent:
		return "The page content is empty or could not be read."
	case CategoryContentTooLarge:
		return "The page content is too large to process."
	case CategoryInvalidURL:
		return "The source URL is not a valid http or https address."
	case CategoryRateLimited:
		return "The AI provider is rate limiting requests right now."
	case CategoryTimeout:
		return "The AI provider took too long to respond."
	case CategoryUnavailable:
		return "The AI provider is temporarily unavailable."
	case CategoryConnectionRefused:
		return "Could not connect to the AI provider."
	case CategoryInvalidAPIKey:
		return "The configured API key was rejected by the provider."
	case CategoryProviderRejected:
		return "The AI provider rejected the request."
	case CategoryInvalidResponseFormat:
		return "The AI provider returned a response that could not be parsed."
	case CategoryMissingRequiredFields:
		return "The extracted posting is missing required fields."
	case CategoryAllProvidersFailed:
		return "Extraction failed on every configured AI provider."
	default:
		return "An unexpected error occurred: " + err.Error()
	}
}

func remediation(cat Category) []string {
	switch cat {
	case CategoryInvalidContent:
		return []string{
			"Reload the page and try again",
			"Check that the page actually contains a job posting",
		}
	case CategoryContentTooLarge:
		return []string{
			"Try a page with a single job posting",
			"Raise extraction.max_content_length if the page is legitimate",
		}
	case CategoryInvalidURL:
		return []string{
			"Check the URL for typos",
			"Only http and https sources are supported",
		}
	case CategoryRateLimited:
		return []string{
			"Wait a minute before retrying",
			"Configure a fallback provider to absorb bursts",
		}
	case CategoryTimeout:
		return []string{
			"Retry the extraction",
			"Raise the provider timeout if this happens often",
		}
	case CategoryUnavailable:
		return []string{
			"Retry in a few minutes",
			"Check the provider status page",
		}
	case CategoryConnectionRefused:
		return []string{
			"Check that the provider endpoint is reachable",
			"For local providers, make sure the server is running",
		}
	case CategoryInvalidAPIKey:
		return []string{
			"Verify the API key in the provider configuration",
			"Check that the key has not expired or been revoked",
		}
	case CategoryProviderRejected:
		return []string{
			"Check the provider configuration",
			"Review provider logs for the rejected request",
		}
	case CategoryInvalidResponseFormat:
		return []string{
			"Retry with a different provider",
			"Try a model with stronger JSON output support",
		}
	case CategoryMissingRequiredFields:
		return []string{
			"Retry with a different provider",
			"Check that the page shows company, title and description",
		}
	case CategoryAllProvidersFailed:
		return []string{
			"Enter the posting manually",
			"Verify provider configuration and API keys",
			"Check provider status pages for outages",
		}
	default:
		return []string{
			"Retry the extraction",
			"Report the error if it keeps happening",
		}
	}
}
