package vybiumsnippets

import "fmt"

// ErrorCode represents a snippet library error code
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig represents an invalid configuration error
	ErrInvalidConfig

	// ErrUnknownSnippet is returned when no catalog snippet has the requested entrypoint
	ErrUnknownSnippet

	// ErrLink represents a failure to assemble or link a program
	ErrLink

	// ErrVerification is returned when the VM and the reference implementation disagree
	ErrVerification

	// ErrBenchmark represents a failure to measure or persist benchmarks
	ErrBenchmark
)

// SnippetError represents a snippet library error
type SnippetError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *SnippetError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vybium-snippets error [%d]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("vybium-snippets error [%d]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *SnippetError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *SnippetError) Is(target error) bool {
	t, ok := target.(*SnippetError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, message string, cause error) error {
	return &SnippetError{Code: code, Message: message, Cause: cause}
}
