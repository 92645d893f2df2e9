// Package types holds request and response shapes shared by the CLI and
// the HTTP server.
package types

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"careerkit/internal/classifier"
	apperrors "careerkit/internal/errors"

	"github.com/go-playground/validator/v10"
)

// CoverLetterRequest carries the form fields of a cover-letter request.
type CoverLetterRequest struct {
	UserName    string `json:"user_name" form:"user_name" validate:"required"`
	JobTitle    string `json:"job_title" form:"job_title" validate:"required"`
	CompanyName string `json:"company_name" form:"company_name" validate:"required"`
	Email       string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" form:"phone"`
	GitHub      string `json:"github,omitempty" form:"github"`
	Address     string `json:"address,omitempty" form:"address"`
	Format      string `json:"format,omitempty" form:"format" validate:"omitempty,oneof=docx pdf"`
	// Layout "plain" writes the generated text one paragraph per line
	// with no letter template.
	Layout string `json:"layout,omitempty" form:"layout" validate:"omitempty,oneof=letter plain"`
}

// Cover-letter layouts.
const (
	LayoutLetter = "letter"
	LayoutPlain  = "plain"
)

// CustomizeResumeRequest carries the form fields of a resume request.
type CustomizeResumeRequest struct {
	Format string `json:"format,omitempty" form:"format" validate:"omitempty,oneof=docx pdf"`
}

// GenerateResponse is returned when an artifact has been produced.
type GenerateResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// HealthResponse is returned by /health. AIModels holds per-task model
// info, or {"configured": false} when no generator is wired.
type HealthResponse struct {
	Status          string         `json:"status"`
	Service         string         `json:"service"`
	Version         string         `json:"version,omitempty"`
	Timestamp       string         `json:"timestamp"`
	AIModels        any            `json:"ai_models"`
	CircuitBreakers map[string]any `json:"circuit_breakers,omitempty"`
	Certificates    map[string]any `json:"certificates,omitempty"`
}

// ClassifyOutput is the role listing printed by the classify command.
type ClassifyOutput struct {
	Source string            `json:"source"`
	Lines  []classifier.Line `json:"lines"`
}

// ArtifactOutput describes a document written by a CLI command.
type ArtifactOutput struct {
	Task        string `json:"task"`
	Path        string `json:"path"`
	Format      string `json:"format"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the required cover-letter fields.
func (r *CoverLetterRequest) Validate() error {
	return validationError(requestValidator().Struct(r))
}

// Validate checks the requested output format.
func (r *CustomizeResumeRequest) Validate() error {
	return validationError(requestValidator().Struct(r))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest, "invalid request", err)
	}

	ve := validationErrors[0]
	switch ve.Tag() {
	case "required":
		return apperrors.NewMissingInputError(fmt.Sprintf("Missing required field: %s", ve.Field()))
	case "oneof":
		return apperrors.NewUnsupportedFormatError(
			fmt.Sprintf("Unsupported %s %q: expected one of %s", ve.Field(), ve.Value(), ve.Param()), nil)
	default:
		return apperrors.NewValidationError(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid %s: failed %s validation", ve.Field(), ve.Tag()), err)
	}
}
