package types

import (
	"testing"

	apperrors "careerkit/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverLetterRequest_Validate(t *testing.T) {
	valid := CoverLetterRequest{UserName: "Jane Doe", JobTitle: "Engineer", CompanyName: "Acme"}

	tests := []struct {
		name    string
		mutate  func(r *CoverLetterRequest)
		kind    apperrors.Kind
		message string
	}{
		{name: "valid", mutate: func(r *CoverLetterRequest) {}},
		{name: "valid with contact", mutate: func(r *CoverLetterRequest) { r.Email = "jane@x.com"; r.Format = "pdf" }},
		{name: "plain layout", mutate: func(r *CoverLetterRequest) { r.Layout = LayoutPlain }},
		{
			name:    "missing user name",
			mutate:  func(r *CoverLetterRequest) { r.UserName = "" },
			kind:    apperrors.KindMissingInput,
			message: "Missing required field: user_name",
		},
		{
			name:    "missing company",
			mutate:  func(r *CoverLetterRequest) { r.CompanyName = "" },
			kind:    apperrors.KindMissingInput,
			message: "Missing required field: company_name",
		},
		{
			name:   "unknown format",
			mutate: func(r *CoverLetterRequest) { r.Format = "odt" },
			kind:   apperrors.KindUnsupportedFormat,
		},
		{
			name:   "bad email",
			mutate: func(r *CoverLetterRequest) { r.Email = "not-an-email" },
			kind:   apperrors.KindMissingInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := req.Validate()
			if tt.kind == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestCustomizeResumeRequest_Validate(t *testing.T) {
	assert.NoError(t, (&CustomizeResumeRequest{}).Validate())
	assert.NoError(t, (&CustomizeResumeRequest{Format: "docx"}).Validate())

	err := (&CustomizeResumeRequest{Format: "txt"}).Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindUnsupportedFormat, apperrors.KindOf(err))
}
