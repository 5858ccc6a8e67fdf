package domain

import (
	"errors"
	"fmt"
)

// Category sentinels; use with NewSubSystemError for subsystem-specific errors.
var (
	ErrDuplicate     = fmt.Errorf("duplicate")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the domain layer.
var (
	ErrToolNotFound  = fmt.Errorf("tool not found")
	ErrToolFailure   = fmt.Errorf("tool execution failed")
	ErrConfigLoad    = fmt.Errorf("failed to load configuration")
	ErrDecryption    = fmt.Errorf("decryption failed")
	ErrTransportDown = fmt.Errorf("transport closed")

	// Upstream errors.
	ErrRateLimit   = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid = fmt.Errorf("authentication failed")
	ErrCircuitOpen = fmt.Errorf("upstream circuit open: %w", ErrProviderError)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "Serper.Search")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "search"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeToolNotFound  ErrorCode = "TOOL_NOT_FOUND"
	CodeToolFailure   ErrorCode = "TOOL_FAILURE"
	CodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	CodeDecryption    ErrorCode = "DECRYPTION"
	CodeTransportDown ErrorCode = "TRANSPORT_DOWN"
	CodeRateLimit     ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid   ErrorCode = "AUTH_INVALID"
	CodeCircuitOpen   ErrorCode = "CIRCUIT_OPEN"

	// Subsystem-specific codes used by subSystemCodeMap.
	CodeSearchTimeout  ErrorCode = "SEARCH_TIMEOUT"
	CodeSearchUpstream ErrorCode = "SEARCH_UPSTREAM"
	CodeToolDuplicate  ErrorCode = "TOOL_DUPLICATE"

	// Category error codes: fallback codes when no subsystem-specific code matches.
	CodeDuplicate     ErrorCode = "DUPLICATE"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeProviderError ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrDuplicate:     CodeDuplicate,
	ErrTimeout:       CodeTimeout,
	ErrInvalidInput:  CodeInvalidInput,
	ErrProviderError: CodeProviderError,

	ErrToolNotFound:  CodeToolNotFound,
	ErrToolFailure:   CodeToolFailure,
	ErrConfigLoad:    CodeConfigLoad,
	ErrDecryption:    CodeDecryption,
	ErrTransportDown: CodeTransportDown,
	ErrRateLimit:     CodeRateLimit,
	ErrAuthInvalid:   CodeAuthInvalid,
	ErrCircuitOpen:   CodeCircuitOpen,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrTimeout: {
		"search": CodeSearchTimeout,
	},
	ErrProviderError: {
		"search": CodeSearchUpstream,
	},
	ErrDuplicate: {
		"registry": CodeToolDuplicate,
	},
}

// specificSentinels are checked before category sentinels when walking an
// error chain, so that ErrCircuitOpen (which wraps ErrProviderError) resolves
// to its own code.
var specificSentinels = []error{
	ErrCircuitOpen,
	ErrAuthInvalid,
	ErrRateLimit,
	ErrToolNotFound,
	ErrToolFailure,
	ErrConfigLoad,
	ErrDecryption,
	ErrTransportDown,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for _, sentinel := range specificSentinels {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
// If SubSystem is set, checks the subSystemCodeMap for a specific code.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
