package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass classifies a failure for reporting and exit handling.
type ErrorClass string

const (
	// ErrorClassNotFound indicates an unknown package or version, or a
	// wildcard request without a match.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassResolution indicates an unresolvable dependency or a
	// dependency cycle.
	ErrorClassResolution ErrorClass = "resolution"

	// ErrorClassExternalTool indicates a nonzero exit from a build script or
	// the package manager.
	ErrorClassExternalTool ErrorClass = "external_tool"

	// ErrorClassNetwork indicates a failed remote metadata lookup.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassValidation indicates a malformed identifier or a policy
	// violation. It is raised before any side effect.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassDependency wraps the failure of a dependency install.
	ErrorClassDependency ErrorClass = "dependency"

	// ErrorClassInterrupted indicates a cancelled install.
	ErrorClassInterrupted ErrorClass = "interrupted"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource is the name/version the error refers to, if any.
	Resource string `json:"resource,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Message
	if e.Resource != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Resource)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

func newError(class ErrorClass, code, message string, err error) *EngineError {
	return &EngineError{Class: class, Code: code, Message: message, Err: err}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string, err error) *EngineError {
	return newError(ErrorClassNotFound, ErrCodeNotFound, message, err)
}

// NewVersionNotFoundError creates a not-found error for a version request.
func NewVersionNotFoundError(name, request string, known []string) *EngineError {
	return NewNotFoundError("version not found", nil).
		WithCode(ErrCodeVersionNotFound).
		WithResource(name + "/" + request).
		WithDetail("known", strings.Join(known, ","))
}

// NewResolutionError creates a resolution error.
func NewResolutionError(message string, err error) *EngineError {
	return newError(ErrorClassResolution, ErrCodeUnresolved, message, err)
}

// NewExternalToolError creates an error for a failed external process.
// The captured diagnostic text is kept in Details under "stderr".
func NewExternalToolError(message string, exitCode int, stderr string) *EngineError {
	e := newError(ErrorClassExternalTool, ErrCodeExitStatus, message, fmt.Errorf("exit status %d", exitCode))
	e.WithDetail("exit_code", exitCode)
	if stderr = strings.TrimSpace(stderr); stderr != "" {
		e.WithDetail("stderr", stderr)
	}
	return e
}

// NewToolUnavailableError creates an error for an external program that
// cannot be started.
func NewToolUnavailableError(message string, err error) *EngineError {
	return newError(ErrorClassExternalTool, ErrCodeToolMissing, message, err)
}

// NewNetworkError creates a network error.
func NewNetworkError(message string, err error) *EngineError {
	return newError(ErrorClassNetwork, ErrCodeNetwork, message, err)
}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *EngineError {
	return newError(ErrorClassValidation, ErrCodeValidation, message, err)
}

// NewPolicyError creates a validation error for a blocking policy violation.
func NewPolicyError(message string, err error) *EngineError {
	return newError(ErrorClassValidation, ErrCodePolicyDenied, message, err)
}

// NewDependencyError wraps the failure of dependency dep.
func NewDependencyError(dep string, err error) *EngineError {
	return newError(ErrorClassDependency, ErrCodeDependencyFailed, "dependency failed", err).
		WithResource(dep)
}

// NewInterruptedError creates an error for a cancelled operation.
func NewInterruptedError(message string, err error) *EngineError {
	return newError(ErrorClassInterrupted, ErrCodeInterrupted, message, err)
}

// WithResource adds resource context to an error.
func (e *EngineError) WithResource(resource string) *EngineError {
	e.Resource = resource
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Diagnostic returns the captured stderr text of an external tool failure.
func (e *EngineError) Diagnostic() string {
	s, _ := e.Details["stderr"].(string)
	return s
}

// DiagnosticOf returns the captured diagnostic text of the first external
// tool failure in err's chain.
func DiagnosticOf(err error) string {
	for err != nil {
		if e, ok := err.(*EngineError); ok {
			if d := e.Diagnostic(); d != "" {
				return d
			}
		}
		err = errors.Unwrap(err)
	}
	return ""
}

func classOf(err error) (ErrorClass, bool) {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class, true
	}
	return "", false
}

func hasClass(err error, class ErrorClass) bool {
	c, ok := classOf(err)
	return ok && c == class
}

// Class returns the class of the outermost EngineError in err's chain.
// Unclassified errors report "internal".
func Class(err error) string {
	if c, ok := classOf(err); ok {
		return string(c)
	}
	return "internal"
}

// IsNotFound returns true if the error is classified as not found.
func IsNotFound(err error) bool { return hasClass(err, ErrorClassNotFound) }

// IsResolution returns true if the error is classified as a resolution error.
func IsResolution(err error) bool { return hasClass(err, ErrorClassResolution) }

// IsExternalTool returns true if the error is classified as an external tool failure.
func IsExternalTool(err error) bool { return hasClass(err, ErrorClassExternalTool) }

// IsNetwork returns true if the error is classified as a network failure.
func IsNetwork(err error) bool { return hasClass(err, ErrorClassNetwork) }

// IsValidation returns true if the error is classified as a validation error.
func IsValidation(err error) bool { return hasClass(err, ErrorClassValidation) }

// IsDependency returns true if the error is classified as a dependency failure.
func IsDependency(err error) bool { return hasClass(err, ErrorClassDependency) }

// IsInterrupted returns true if the error is classified as interrupted.
func IsInterrupted(err error) bool { return hasClass(err, ErrorClassInterrupted) }

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// CycleError reports a dependency cycle. Path starts and ends with the
// same package.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Common error codes.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodePolicyDenied     = "POLICY_DENIED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeVersionNotFound  = "VERSION_NOT_FOUND"
	ErrCodeUnresolved       = "UNRESOLVED"
	ErrCodeCycle            = "DEPENDENCY_CYCLE"
	ErrCodeExitStatus       = "EXIT_STATUS"
	ErrCodeToolMissing      = "TOOL_MISSING"
	ErrCodeNetwork          = "NETWORK_ERROR"
	ErrCodeDependencyFailed = "DEPENDENCY_FAILED"
	ErrCodeInterrupted      = "INTERRUPTED"
)
