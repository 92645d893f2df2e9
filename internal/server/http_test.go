package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"careerkit/internal/ai"
	"careerkit/internal/config"
	"careerkit/internal/document"
	apperrors "careerkit/internal/errors"
	"careerkit/internal/formatters"
	"careerkit/internal/render"
	"careerkit/internal/storage"
	"careerkit/internal/types"
	"careerkit/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

type fakeGenerator struct {
	text  string
	err   error
	calls []string
}

func (f *fakeGenerator) reply(task string) (string, *ai.TokenUsage, error) {
	f.calls = append(f.calls, task)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, nil, nil
}

func (f *fakeGenerator) CoverLetter(context.Context, ai.CoverLetterInput) (string, *ai.TokenUsage, error) {
	return f.reply("cover_letter")
}

func (f *fakeGenerator) CustomResume(context.Context, ai.CustomResumeInput) (string, *ai.TokenUsage, error) {
	return f.reply("custom_resume")
}

func (f *fakeGenerator) McCombsResume(context.Context, ai.CustomResumeInput) (string, *ai.TokenUsage, error) {
	return f.reply("mccombs_resume")
}

type fakePrinter struct{}

func (fakePrinter) PrintPDF(context.Context, []byte, render.PageLayout) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

type fakeHealth struct{ available bool }

func (f fakeHealth) ModelInfo(context.Context) map[string]*ai.ModelInfo {
	return map[string]*ai.ModelInfo{
		"cover_letter": {Provider: "gemini", Name: "gemini-2.0-flash", Available: f.available},
	}
}

func (f fakeHealth) CircuitBreakerStats() map[string]any {
	return map[string]any{"cover_letter": map[string]any{"state": "closed"}}
}

type testEnv struct {
	server    *Server
	generator *fakeGenerator
	workspace storage.Workspace
	handler   http.Handler
}

func newTestEnv(t *testing.T, mutate func(cfg *ServerConfig)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	ws := storage.Workspace{UploadDir: filepath.Join(dir, "uploads"), OutputDir: filepath.Join(dir, "outputs")}
	require.NoError(t, ws.Ensure())

	logger := apperrors.NewDiscardLogger()
	generator := &fakeGenerator{text: "Para one.\n\nPara two."}
	pipeline := workflow.New(generator, formatters.NewDocumentRegistry(fakePrinter{}), logger,
		workflow.WithClock(func() time.Time { return fixedNow }))

	cfg := ServerConfig{
		Host:           "localhost",
		Port:           "0",
		Version:        "test",
		MaxRequestSize: config.DefaultMaxFileSize,
		DefaultFormat:  "docx",
		RateLimit:      &config.RateLimitConfig{},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv := NewServer(&config.Config{}, cfg, Dependencies{
		Pipeline:  pipeline,
		Store:     storage.NewLocalStore(ws.OutputDir),
		Workspace: ws,
		Health:    fakeHealth{available: true},
	}, logger)
	t.Cleanup(srv.cleanup)

	return &testEnv{server: srv, generator: generator, workspace: ws, handler: srv.handler()}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func docx(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, document.NewDOCXWriter().Write(context.Background(), &buf, render.RenderPlain(text)))
	return buf.Bytes()
}

type upload struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func readParagraphs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	paragraphs, err := document.ExtractBytes(data)
	require.NoError(t, err)
	return paragraphs
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func assertNoUploads(t *testing.T, ws storage.Workspace) {
	t.Helper()
	entries, err := os.ReadDir(ws.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

const resumeText = "Jane Doe\njane@x.com • 555-1234\nEDUCATION\nAcme University\tBS CS\t2022"

var letterFields = map[string]string{
	"user_name":    "Jane Doe",
	"job_title":    "Engineer",
	"company_name": "Acme",
}

func TestGenerateCoverLetter(t *testing.T) {
	env := newTestEnv(t, nil)

	req := multipartRequest(t, "/generate-cover-letter", letterFields,
		upload{"job_description", "job.docx", docx(t, "We need an engineer")},
		upload{"resume", "resume.docx", docx(t, resumeText)},
	)
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Cover letter generated successfully", resp.Message)
	assert.Equal(t, "cover_letter_20240305140709.docx", resp.FilePath)

	paragraphs := readParagraphs(t, filepath.Join(env.workspace.OutputDir, resp.FilePath))
	assert.Contains(t, paragraphs, "Para one.")
	assert.Contains(t, paragraphs, "Para two.")

	assert.Equal(t, []string{"cover_letter"}, env.generator.calls)
	assertNoUploads(t, env.workspace)
}

func TestGenerateCoverLetter_PDF(t *testing.T) {
	env := newTestEnv(t, nil)

	fields := map[string]string{"format": "pdf"}
	for k, v := range letterFields {
		fields[k] = v
	}
	rec := env.do(multipartRequest(t, "/generate-cover-letter", fields,
		upload{"job_description", "job.docx", docx(t, "We need an engineer")},
		upload{"resume", "resume.docx", docx(t, resumeText)},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "cover_letter_20240305140709.pdf")
}

func TestGenerateCoverLetter_PlainLayout(t *testing.T) {
	env := newTestEnv(t, nil)

	fields := map[string]string{"layout": "plain"}
	for k, v := range letterFields {
		fields[k] = v
	}
	rec := env.do(multipartRequest(t, "/generate-cover-letter", fields,
		upload{"job_description", "job.docx", docx(t, "We need an engineer")},
		upload{"resume", "resume.docx", docx(t, resumeText)},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp types.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	paragraphs := readParagraphs(t, filepath.Join(env.workspace.OutputDir, resp.FilePath))
	assert.Equal(t, []string{"Para one.", "Para two."}, paragraphs)
}

func TestGenerateCoverLetter_Rejected(t *testing.T) {
	jd := upload{"job_description", "job.docx", nil}
	resume := upload{"resume", "resume.docx", nil}

	tests := []struct {
		name    string
		fields  map[string]string
		files   func(t *testing.T) []upload
		status  int
		code    string
		message string
	}{
		{
			name:   "missing resume",
			fields: letterFields,
			files: func(t *testing.T) []upload {
				jd.data = docx(t, "job")
				return []upload{jd}
			},
			status:  http.StatusBadRequest,
			code:    apperrors.ErrCodeMissingInput,
			message: "Both job description and resume files are required",
		},
		{
			name:   "resume not docx",
			fields: letterFields,
			files: func(t *testing.T) []upload {
				jd.data = docx(t, "job")
				return []upload{jd, {"resume", "resume.txt", []byte("Jane Doe")}}
			},
			status:  http.StatusBadRequest,
			code:    apperrors.ErrCodeUnsupportedFormat,
			message: "Invalid file format for resume",
		},
		{
			name:   "missing user name",
			fields: map[string]string{"job_title": "Engineer", "company_name": "Acme"},
			files: func(t *testing.T) []upload {
				jd.data = docx(t, "job")
				resume.data = docx(t, resumeText)
				return []upload{jd, resume}
			},
			status:  http.StatusBadRequest,
			code:    apperrors.ErrCodeMissingInput,
			message: "Missing required field: user_name",
		},
		{
			name:   "corrupt job description",
			fields: letterFields,
			files: func(t *testing.T) []upload {
				resume.data = docx(t, resumeText)
				return []upload{{"job_description", "job.docx", []byte("not a zip")}, resume}
			},
			status: http.StatusUnprocessableEntity,
			code:   apperrors.ErrCodeExtractionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)

			rec := env.do(multipartRequest(t, "/generate-cover-letter", tt.fields, tt.files(t)...))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, resp.Error)
			}
			assert.Empty(t, env.generator.calls)
			assertNoUploads(t, env.workspace)
		})
	}
}

func TestGenerateCoverLetter_GenerationFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.generator.err = apperrors.NewGenerationError("Failed to generate cover letter", io.ErrUnexpectedEOF)

	rec := env.do(multipartRequest(t, "/generate-cover-letter", letterFields,
		upload{"job_description", "job.docx", docx(t, "We need an engineer")},
		upload{"resume", "resume.docx", docx(t, resumeText)},
	))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "Failed to generate cover letter", resp.Error)
	assert.Equal(t, string(apperrors.KindGeneration), resp.Kind)
	assert.NotContains(t, rec.Body.String(), "unexpected EOF")

	outputs, err := os.ReadDir(env.workspace.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}

func TestCustomizeResume(t *testing.T) {
	t.Run("reformat without job description", func(t *testing.T) {
		env := newTestEnv(t, nil)

		rec := env.do(multipartRequest(t, "/customize-resume", nil,
			upload{"resume", "resume.docx", docx(t, resumeText)}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp types.GenerateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "formatted_resume_20240305140709.docx", resp.FilePath)
		assert.Empty(t, env.generator.calls)
		assert.FileExists(t, filepath.Join(env.workspace.OutputDir, resp.FilePath))
	})

	t.Run("customize with job description", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.generator.text = "Jane Doe\nEXPERIENCE\n• Shipped - things"

		rec := env.do(multipartRequest(t, "/customize-resume", nil,
			upload{"resume", "resume.docx", docx(t, resumeText)},
			upload{"job_description", "job.docx", docx(t, "Go engineer")}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp types.GenerateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Resume customized successfully", resp.Message)
		assert.Equal(t, "custom_resume_20240305140709.docx", resp.FilePath)
		assert.Equal(t, []string{"custom_resume"}, env.generator.calls)
		assertNoUploads(t, env.workspace)
	})

	t.Run("missing resume", func(t *testing.T) {
		env := newTestEnv(t, nil)

		rec := env.do(multipartRequest(t, "/customize-resume", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No resume file uploaded", decodeError(t, rec).Error)
	})

	t.Run("wrong extension", func(t *testing.T) {
		env := newTestEnv(t, nil)

		rec := env.do(multipartRequest(t, "/customize-resume", nil,
			upload{"resume", "resume.pdf", []byte("%PDF")}))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Please upload a .docx file", decodeError(t, rec).Error)
	})

	t.Run("unknown format", func(t *testing.T) {
		env := newTestEnv(t, nil)

		rec := env.do(multipartRequest(t, "/customize-resume", map[string]string{"format": "odt"},
			upload{"resume", "resume.docx", docx(t, resumeText)}))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.ErrCodeUnsupportedFormat, decodeError(t, rec).Code)
	})
}

func TestUploadTooLarge(t *testing.T) {
	tests := []struct {
		name          string
		contentLength func(*http.Request)
	}{
		{name: "declared length", contentLength: func(*http.Request) {}},
		{name: "streamed body", contentLength: func(r *http.Request) { r.ContentLength = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(cfg *ServerConfig) { cfg.MaxRequestSize = 1024 })

			req := multipartRequest(t, "/customize-resume", nil,
				upload{"resume", "resume.docx", bytes.Repeat([]byte("x"), 4096)})
			tt.contentLength(req)

			rec := env.do(req)
			require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
			assert.Equal(t, apperrors.ErrCodeFileTooLarge, decodeError(t, rec).Code)
			assertNoUploads(t, env.workspace)
		})
	}
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(env.workspace.OutputDir, "cover_letter_1.docx"), []byte("doc"), 0600))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/download/cover_letter_1.docx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doc", rec.Body.String())
	assert.Equal(t, document.DOCXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="cover_letter_1.docx"`, rec.Header().Get("Content-Disposition"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/download/missing.docx", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "File not found: missing.docx", decodeError(t, rec).Error)
}

func TestRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Server is running"}`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Resource Not Found", decodeError(t, rec).Error)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/generate-cover-letter", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rate_limiting":{"enabled":false}`)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodOptions, "/generate-cover-letter", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,PUT,POST,DELETE,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	for _, path := range []string{"/test", "/nowhere", "/download/missing.docx"} {
		rec = env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), path)
		assert.Equal(t, "Content-Type,Authorization,X-API-Key", rec.Header().Get("Access-Control-Allow-Headers"), path)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "ai_models")
	assert.Contains(t, body, "circuit_breakers")
	assert.NotContains(t, body, "certificates")

	var health types.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "careerkit", health.Service)
	assert.NotEmpty(t, health.Timestamp)
	assert.Contains(t, health.CircuitBreakers, "cover_letter")

	env.server.Health = fakeHealth{available: false}
	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)

	env.server.Health = nil
	rec = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"configured":false`)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, func(cfg *ServerConfig) { cfg.APIKeys = []string{"secret-key-123"} })
	require.NoError(t, os.WriteFile(filepath.Join(env.workspace.OutputDir, "a.docx"), []byte("doc"), 0600))

	tests := []struct {
		name   string
		header func(*http.Request)
		status int
	}{
		{name: "missing key", header: func(*http.Request) {}, status: http.StatusUnauthorized},
		{name: "wrong key", header: func(r *http.Request) { r.Header.Set("X-API-Key", "nope") }, status: http.StatusUnauthorized},
		{name: "x-api-key", header: func(r *http.Request) { r.Header.Set("X-API-Key", "secret-key-123") }, status: http.StatusOK},
		{name: "bearer", header: func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-key-123") }, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/download/a.docx", nil)
			tt.header(req)
			assert.Equal(t, tt.status, env.do(req).Code)
		})
	}

	// probes stay public
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/test", nil)).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, func(cfg *ServerConfig) {
		cfg.RateLimit = &config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})

	first := env.do(httptest.NewRequest(http.MethodGet, "/download/missing.docx", nil))
	assert.Equal(t, http.StatusNotFound, first.Code)

	second := env.do(httptest.NewRequest(http.MethodGet, "/download/missing.docx", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "Rate limit exceeded", decodeError(t, second).Error)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/download/missing.docx", nil)
	other.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusNotFound, env.do(other).Code)

	assert.Equal(t, 2, env.server.RateLimiter.GetStats()["active_limiters"])
}
