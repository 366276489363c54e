package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// HasCode reports whether err, or any error it wraps, is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// --- Configuration Error Constructors ---

// StructuralConfig creates a new AppError for a malformed pipeline document.
func StructuralConfig(format string, args ...any) *AppError {
	return &AppError{
		Code: ErrCodeStructuralConfig, Message: fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// Resolution creates a new AppError for a handler identifier that cannot be resolved.
func Resolution(identifier, reason string) *AppError {
	return &AppError{
		Code: ErrCodeResolutionFailed, Message: fmt.Sprintf("cannot resolve handler %q: %s", identifier, reason),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"handler": identifier},
	}
}

// KeyNotFound creates a new AppError for a path missing from the document.
// segment is the first path segment that could not be found.
func KeyNotFound(path, segment string) *AppError {
	return &AppError{
		Code: ErrCodeKeyNotFound, Message: fmt.Sprintf("key %q not found in %q", segment, path),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"path": path, "segment": segment},
	}
}

// UnknownInput creates a new AppError for a job requiring an input no job provides.
func UnknownInput(jobName, input string) *AppError {
	return &AppError{
		Code: ErrCodeStructuralConfig, Message: fmt.Sprintf("job %q requires unknown input %q", jobName, input),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"job": jobName, "input": input},
	}
}

// --- Execution Error Constructors ---

// JobFailure creates a new AppError aggregating the failures of one lifecycle phase.
// failures maps job name to the error that job returned.
func JobFailure(phase string, failures map[string]error) *AppError {
	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	causes := make([]error, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", name, failures[name]))
		causes = append(causes, failures[name])
	}
	return &AppError{
		Code:       ErrCodeJobFailure,
		Message:    fmt.Sprintf("%s failed for %d job(s): %s", phase, len(names), strings.Join(parts, "; ")),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"phase": phase, "jobs": names},
		Cause:      stderrors.Join(causes...),
	}
}

// FailedJobs returns the job names recorded on a JOB_FAILURE error.
func FailedJobs(err error) []string {
	var appErr *AppError
	if !stderrors.As(err, &appErr) || appErr.Code != ErrCodeJobFailure {
		return nil
	}
	names, _ := appErr.Details["jobs"].([]string)
	return names
}

// RunnerStopped creates a new AppError for a runner that was already torn down.
func RunnerStopped() *AppError {
	return &AppError{
		Code: ErrCodeRunnerState, Message: "runner already stopped",
		HTTPStatus: http.StatusConflict,
	}
}

// RunnerBusy creates a new AppError for a runner whose loop is already executing.
func RunnerBusy() *AppError {
	return &AppError{
		Code: ErrCodeRunnerState, Message: "runner is already running",
		HTTPStatus: http.StatusConflict,
	}
}

// --- Generic Error Constructors ---

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
