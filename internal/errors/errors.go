// Package errors defines the application error type, the failure kinds
// callers branch on, and the structured logger used across careerkit.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType is the subsystem an error came from.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Kind is the caller-facing failure class of a document request.
type Kind string

const (
	KindMissingInput      Kind = "missing_input"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindExtraction        Kind = "extraction_failure"
	KindGeneration        Kind = "generation_failure"
	KindRender            Kind = "render_failure"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

// Error codes carried in AppError.Code and in API error bodies.
const (
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable   = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat     = "INVALID_FORMAT"
	ErrCodeAIServiceFailed   = "AI_SERVICE_FAILED"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeMissingAPIKey     = "MISSING_API_KEY"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeMissingInput      = "MISSING_INPUT"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeFileTooLarge      = "FILE_TOO_LARGE"
	ErrCodeExtractionFailed  = "EXTRACTION_FAILED"
	ErrCodeGenerationFailed  = "GENERATION_FAILED"
	ErrCodeRenderFailed      = "RENDER_FAILED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// statusByKind is the HTTP status each kind is answered with.
var statusByKind = map[Kind]int{
	KindMissingInput:      http.StatusBadRequest,
	KindUnsupportedFormat: http.StatusBadRequest,
	KindExtraction:        http.StatusUnprocessableEntity,
	KindGeneration:        http.StatusBadGateway,
	KindRender:            http.StatusInternalServerError,
	KindNotFound:          http.StatusNotFound,
	KindInternal:          http.StatusInternalServerError,
}

// AppError is an error with a stable code, a kind and optional context.
type AppError struct {
	Type    ErrorType      `json:"type"`
	Kind    Kind           `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext attaches key=value to the error and returns it.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func build(typ ErrorType, kind Kind, code, message string, cause error) *AppError {
	return &AppError{Type: typ, Kind: kind, Code: code, Message: message, Cause: cause}
}

func NewValidationError(code, message string, cause error) *AppError {
	return build(ErrorTypeValidation, KindMissingInput, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return build(ErrorTypeIO, KindInternal, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return build(ErrorTypeAI, KindGeneration, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return build(ErrorTypeNetwork, KindInternal, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return build(ErrorTypeConfig, KindInternal, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return build(ErrorTypeInternal, KindInternal, code, message, cause)
}

// NewMissingInputError reports a required field or file that was not sent.
func NewMissingInputError(message string) *AppError {
	return build(ErrorTypeValidation, KindMissingInput, ErrCodeMissingInput, message, nil)
}

func NewUnsupportedFormatError(message string, cause error) *AppError {
	return build(ErrorTypeValidation, KindUnsupportedFormat, ErrCodeUnsupportedFormat, message, cause)
}

// NewFileTooLargeError reports an upload over the configured size limit.
func NewFileTooLargeError(limit int64) *AppError {
	msg := fmt.Sprintf("Upload exceeds the maximum size of %d bytes", limit)
	return build(ErrorTypeValidation, KindUnsupportedFormat, ErrCodeFileTooLarge, msg, nil).
		WithContext("limit_bytes", limit)
}

func NewExtractionError(message string, cause error) *AppError {
	return build(ErrorTypeIO, KindExtraction, ErrCodeExtractionFailed, message, cause)
}

func NewGenerationError(message string, cause error) *AppError {
	return build(ErrorTypeAI, KindGeneration, ErrCodeGenerationFailed, message, cause)
}

func NewRenderError(message string, cause error) *AppError {
	return build(ErrorTypeRender, KindRender, ErrCodeRenderFailed, message, cause)
}

func NewNotFoundError(message string, cause error) *AppError {
	return build(ErrorTypeIO, KindNotFound, ErrCodeNotFound, message, cause)
}

// asAppError returns the first AppError in err's chain.
func asAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	if appErr, ok := asAppError(err); ok && appErr.Kind != "" {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the response status the server uses for it.
// Oversized uploads get 413 whatever their kind.
func HTTPStatus(err error) int {
	if appErr, ok := asAppError(err); ok && appErr.Code == ErrCodeFileTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
