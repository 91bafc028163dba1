package match

import "fmt"

// Stable error codes surfaced to API clients.
const (
	CodeInvalidEmbedding = "INVALID_EMBEDDING"
	CodeInvalidThreshold = "INVALID_THRESHOLD"
	CodeMissingInput     = "MISSING_INPUT"
)

// ValidationError rejects a malformed query before any catalog access.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidationError reports whether err is a query validation failure,
// as opposed to a catalog access failure.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

func invalidEmbedding(format string, args ...any) *ValidationError {
	return &ValidationError{Code: CodeInvalidEmbedding, Message: fmt.Sprintf(format, args...)}
}

func invalidThreshold(format string, args ...any) *ValidationError {
	return &ValidationError{Code: CodeInvalidThreshold, Message: fmt.Sprintf(format, args...)}
}
