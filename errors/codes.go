package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeStructuralConfig indicates the pipeline document is malformed or incomplete.
	ErrCodeStructuralConfig ErrorCode = "STRUCTURAL_CONFIG"
	// ErrCodeResolutionFailed indicates a handler identifier could not be resolved.
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	// ErrCodeKeyNotFound indicates a path is missing from the document.
	ErrCodeKeyNotFound ErrorCode = "KEY_NOT_FOUND"
)

// Execution errors
const (
	// ErrCodeJobFailure indicates one or more jobs failed during a lifecycle call.
	ErrCodeJobFailure ErrorCode = "JOB_FAILURE"
	// ErrCodeRunnerState indicates an operation is not allowed in the runner's current state.
	ErrCodeRunnerState ErrorCode = "RUNNER_STATE"
)

// Generic errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var configCodes = map[ErrorCode]bool{
	ErrCodeStructuralConfig: true,
	ErrCodeResolutionFailed: true,
	ErrCodeKeyNotFound:      true,
}

// IsConfigCode returns true if the code describes a problem with the pipeline document.
func IsConfigCode(code ErrorCode) bool {
	return configCodes[code]
}
