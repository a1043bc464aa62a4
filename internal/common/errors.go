package common

import (
	"errors"
	"fmt"
)

// Error codes for run-level failures. Page-level failures never carry one of
// these; they are recorded as data on the page result instead.
const (
	CodeSetup         = "SETUP_ERROR"         // engine unavailable or model not ready
	CodeDecomposition = "DECOMPOSITION_ERROR" // unsupported input or page split failed
	CodeConfig        = "CONFIG_ERROR"
	CodeIO            = "IO_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoPages      = errors.New("document has no pages")
	ErrUnsupported  = errors.New("unsupported input type")
	ErrEngine       = errors.New("inference engine error")
	ErrTransform    = errors.New("image transform error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func SetupError(message string, cause error) *AppError {
	return NewAppError(CodeSetup, message, cause)
}

func DecompositionError(message string, cause error) *AppError {
	return NewAppError(CodeDecomposition, message, cause)
}

func IOError(message string, cause error) *AppError {
	return NewAppError(CodeIO, message, cause)
}

// IsCode reports whether err wraps an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// EngineError is a failed inference call. Its message is what a failed page
// reports in the output array, e.g. "Ollama run failed: 2".
type EngineError struct {
	Op     string // "Ollama run", "Ollama generate", ...
	Status int    // exit code or HTTP status; 0 when the call never completed
	Err    error
}

func (e *EngineError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s failed: %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	default:
		return e.Op + " failed"
	}
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrEngine) match every engine failure.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}

// TransformError is a failed image transform on one page.
type TransformError struct {
	Path string
	Err  error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("image transform failed for %s: %v", e.Path, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

func (e *TransformError) Is(target error) bool {
	return target == ErrTransform
}
