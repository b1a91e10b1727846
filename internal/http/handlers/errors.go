// HTTP-layer error codes shared across all API endpoints. Codes are stable,
// lowercase snake_case strings so clients can branch on them programmatically
// instead of parsing messages. Handlers pick the most specific code and pass
// it to fail() with the matching HTTP status.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"

	// Domain-specific:
	ErrCodeMessageEmpty     = "message_empty"
	ErrCodeMessageTooLong   = "message_too_long"
	ErrCodeProfanity        = "profanity_rejected"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
