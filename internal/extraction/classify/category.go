package classify

// Category identifies a failure mode of the extraction pipeline.
type Category string

const (
	// Bad input, permanent, never retried.
	CategoryInvalidContent  Category = "invalid_content"
	CategoryContentTooLarge Category = "content_too_large"
	CategoryInvalidURL      Category = "invalid_url"

	// Transient provider trouble, retried then fallback-chained.
	CategoryRateLimited       Category = "rate_limited"
	CategoryTimeout           Category = "timeout"
	CategoryUnavailable       Category = "unavailable"
	CategoryConnectionRefused Category = "connection_refused"

	// Configuration problems, surfaced directly.
	CategoryInvalidAPIKey    Category = "invalid_api_key"
	CategoryProviderRejected Category = "provider_rejected"

	// Unusable provider output. Not retried against the same provider but
	// eligible for the fallback chain.
	CategoryInvalidResponseFormat Category = "invalid_response_format"
	CategoryMissingRequiredFields Category = "missing_required_fields"

	// Terminal: every configured provider was exhausted.
	CategoryAllProvidersFailed Category = "all_providers_failed"

	CategoryUnknown Category = "unknown"
)

// Retryable reports whether the category is worth retrying against the same
// provider. Unknown errors are not retryable.
func (c Category) Retryable() bool {
	switch c {
	case CategoryRateLimited, CategoryTimeout, CategoryUnavailable, CategoryConnectionRefused:
		return true
	}
	return false
}

// TriggersFallback reports whether the category should advance the fallback
// chain instead of being returned to the caller. Transient categories qualify,
// and so does unusable output: a different provider may produce a parseable
// response even when the current one never will.
func (c Category) TriggersFallback() bool {
	if c.Retryable() {
		return true
	}
	return c == CategoryInvalidResponseFormat || c == CategoryMissingRequiredFields
}
