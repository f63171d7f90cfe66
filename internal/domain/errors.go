package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrAIDisabled      = fmt.Errorf("AI features are not enabled")
	ErrNoModel         = fmt.Errorf("no model specified and no default model set")
	ErrDecode          = fmt.Errorf("malformed backend response")
	ErrToolNotFound    = fmt.Errorf("unknown tool")
	ErrMissingArgument = fmt.Errorf("missing argument")
	ErrEmptyCommand    = fmt.Errorf("empty command")
	ErrSpawnFailed     = fmt.Errorf("failed to execute command")
	ErrNoChoices       = fmt.Errorf("no choices in response")
	ErrScrapeFailed    = fmt.Errorf("website scrape failed")
	ErrItemNotFound    = fmt.Errorf("queue item not found")
	ErrInvalidInput    = fmt.Errorf("invalid input")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "tool.run_command")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
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

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsToolError reports whether err belongs to the tool-execution error family.
// Tool errors are recovered in-conversation rather than aborting the invocation.
func IsToolError(err error) bool {
	return errors.Is(err, ErrToolNotFound) ||
		errors.Is(err, ErrMissingArgument) ||
		errors.Is(err, ErrEmptyCommand) ||
		errors.Is(err, ErrSpawnFailed) ||
		errors.Is(err, ErrScrapeFailed)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeAIDisabled      ErrorCode = "AI_DISABLED"
	CodeNoModel         ErrorCode = "NO_MODEL"
	CodeDecode          ErrorCode = "DECODE"
	CodeToolNotFound    ErrorCode = "TOOL_NOT_FOUND"
	CodeMissingArgument ErrorCode = "MISSING_ARGUMENT"
	CodeEmptyCommand    ErrorCode = "EMPTY_COMMAND"
	CodeSpawnFailed     ErrorCode = "SPAWN_FAILED"
	CodeNoChoices       ErrorCode = "NO_CHOICES"
	CodeScrapeFailed    ErrorCode = "SCRAPE_FAILED"
	CodeItemNotFound    ErrorCode = "ITEM_NOT_FOUND"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrAIDisabled:      CodeAIDisabled,
	ErrNoModel:         CodeNoModel,
	ErrDecode:          CodeDecode,
	ErrToolNotFound:    CodeToolNotFound,
	ErrMissingArgument: CodeMissingArgument,
	ErrEmptyCommand:    CodeEmptyCommand,
	ErrSpawnFailed:     CodeSpawnFailed,
	ErrNoChoices:       CodeNoChoices,
	ErrScrapeFailed:    CodeScrapeFailed,
	ErrItemNotFound:    CodeItemNotFound,
	ErrInvalidInput:    CodeInvalidInput,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	// Walk the error chain with errors.Is.
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
