package constants

import "time"

// RFC 3339 date-time format string.
// Use this format for all date-time serialization and communication with external systems.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

// Default rate limiting configuration
const (
	// DefaultRateLimitRequests is the default number of requests allowed per time window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindowMinutes is the default time window for rate limiting
	DefaultRateLimitWindowMinutes = 1
	// DefaultRegistrationRateLimit is the per-client allowance for new signups per minute
	DefaultRegistrationRateLimit = 30
)

// Listing defaults applied when page/limit are missing or invalid.
const (
	DefaultPage  = 1
	DefaultLimit = 50
	// MaxLimit bounds the page size a caller can request.
	MaxLimit = 100
)

// Store defaults
const (
	DefaultStoreOperationTimeout = 5 * time.Second
	DefaultStoreConnectAttempts  = 5
	DefaultCountCacheTTL         = 30 * time.Second
)

// DefaultRateLimitWindow returns the default rate limit window duration
func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}
