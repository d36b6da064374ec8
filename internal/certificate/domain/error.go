package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Provider failure categories. Stored on the domain record so operators can
// tell a transient CA outage from a broken account key without reading logs.
const (
	CategoryTimeout          = "timeout"
	CategoryValidation       = "validation"
	CategoryRateLimit        = "rate_limit"
	CategoryMisconfiguration = "misconfiguration"
	CategoryGeneric          = "generic"
)

var (
	ErrNotImplemented = errors.New("certificate_provider_not_implemented")
)

// ProviderError wraps a provider failure with a stable category.
type ProviderError struct {
	Provider string
	Category string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Category, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError extracts a ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// NewProviderError builds a categorized failure.
func NewProviderError(provider, category, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Category: category, Message: message, Err: err}
}

// Categorize maps an arbitrary provider error onto one of the stable
// categories. Timeouts and cancellations are recognized structurally, the
// rest by the well-known substrings the CAs put in their problem documents.
func Categorize(err error) string {
	if err == nil {
		return CategoryGeneric
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "ratelimited") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many certificates") ||
		strings.Contains(msg, "too many requests"):
		return CategoryRateLimit
	case strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "invalid account") ||
		strings.Contains(msg, "accountdoesnotexist") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "authentication error"):
		return CategoryMisconfiguration
	case strings.Contains(msg, "caa") ||
		strings.Contains(msg, "rejectedidentifier") ||
		strings.Contains(msg, "challenge") ||
		strings.Contains(msg, "validation") ||
		strings.Contains(msg, "invalid hostname") ||
		strings.Contains(msg, "malformed"):
		return CategoryValidation
	default:
		return CategoryGeneric
	}
}
