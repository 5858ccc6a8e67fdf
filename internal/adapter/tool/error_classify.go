package tool

import (
	"errors"
	"strings"

	"serper-mcp/internal/domain"
)

// permanentSentinels are never worth retrying, even when they also wrap a
// retryable category such as ErrProviderError.
var permanentSentinels = []error{
	domain.ErrAuthInvalid,
	domain.ErrInvalidInput,
}

// retryableSentinels lists domain errors beyond domain.IsRetryableError that
// indicate transient failures worth retrying.
var retryableSentinels = []error{
	domain.ErrProviderError,
}

// retryablePatterns are substrings in error messages that indicate transient failures.
// Checked case-insensitively.
var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"timeout",
	"deadline exceeded",
	"temporarily unavailable",
	"service unavailable",
	"try again",
}

// classifyToolError returns true if the error is transient and the tool call
// may succeed on retry. Returns false for nil, permanent, or unknown errors.
func classifyToolError(err error) bool {
	if err == nil {
		return false
	}

	for _, sentinel := range permanentSentinels {
		if errors.Is(err, sentinel) {
			return false
		}
	}

	if domain.IsRetryableError(err) {
		return true
	}
	for _, sentinel := range retryableSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	// String-based fallback for errors without sentinel wrapping.
	lower := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}

	return false
}
