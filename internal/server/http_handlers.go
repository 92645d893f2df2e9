package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"careerkit/internal/errors"
	"careerkit/internal/storage"
	"careerkit/internal/types"
	"careerkit/internal/utils"
	"careerkit/internal/workflow"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// multipartMemory is how much of a multipart body is held in memory
// before parts spill to temporary files.
const multipartMemory = 8 << 20

// generateCoverLetterHandler writes a cover letter from a job description
// and a resume upload plus the applicant fields.
func (s *Server) generateCoverLetterHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("careerkit.api").Start(r.Context(), "api.generate_cover_letter")
	defer span.End()

	uploads, err := s.receiveUploads(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	defer uploads.cleanup()

	if !uploads.has("job_description") || !uploads.has("resume") {
		s.fail(w, span, errors.NewMissingInputError("Both job description and resume files are required"))
		return
	}
	jd, err := uploads.read("job_description", "Invalid file format for job description")
	if err != nil {
		s.fail(w, span, err)
		return
	}
	resume, err := uploads.read("resume", "Invalid file format for resume")
	if err != nil {
		s.fail(w, span, err)
		return
	}

	req := types.CoverLetterRequest{
		UserName:    r.FormValue("user_name"),
		JobTitle:    r.FormValue("job_title"),
		CompanyName: r.FormValue("company_name"),
		Email:       r.FormValue("email"),
		Phone:       r.FormValue("phone"),
		GitHub:      r.FormValue("github"),
		Address:     r.FormValue("address"),
		Format:      r.FormValue("format"),
		Layout:      r.FormValue("layout"),
	}
	span.SetAttributes(
		attribute.String("operation", workflow.TaskCoverLetter),
		attribute.Int("request.job_description_bytes", len(jd)),
		attribute.Int("request.resume_bytes", len(resume)),
	)

	artifact, err := s.Pipeline.GenerateCoverLetter(ctx, req, jd, resume, s.format(req.Format))
	if err != nil {
		s.fail(w, span, err)
		return
	}

	s.respondArtifact(ctx, w, span, artifact, "Cover letter generated successfully")
}

// customizeResumeHandler reformats a resume upload. With a job description
// it is rewritten for that job first.
func (s *Server) customizeResumeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer("careerkit.api").Start(r.Context(), "api.customize_resume")
	defer span.End()

	uploads, err := s.receiveUploads(r)
	if err != nil {
		s.fail(w, span, err)
		return
	}
	defer uploads.cleanup()

	if !uploads.has("resume") {
		s.fail(w, span, errors.NewMissingInputError("No resume file uploaded"))
		return
	}
	resume, err := uploads.read("resume", "Please upload a .docx file")
	if err != nil {
		s.fail(w, span, err)
		return
	}

	req := types.CustomizeResumeRequest{Format: r.FormValue("format")}
	if err := req.Validate(); err != nil {
		s.fail(w, span, err)
		return
	}

	var (
		artifact workflow.Artifact
		message  string
	)
	if uploads.has("job_description") {
		jd, err := uploads.read("job_description", "Invalid file format for job description")
		if err != nil {
			s.fail(w, span, err)
			return
		}
		span.SetAttributes(attribute.String("operation", workflow.TaskCustomResume))
		artifact, err = s.Pipeline.CustomizeResume(ctx, resume, jd, s.format(req.Format))
		if err != nil {
			s.fail(w, span, err)
			return
		}
		message = "Resume customized successfully"
	} else {
		span.SetAttributes(attribute.String("operation", workflow.TaskFormattedResume))
		artifact, err = s.Pipeline.ReformatResume(ctx, resume, s.format(req.Format))
		if err != nil {
			s.fail(w, span, err)
			return
		}
		message = "Resume formatted successfully"
	}

	s.respondArtifact(ctx, w, span, artifact, message)
}

// downloadHandler streams a generated document as an attachment
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	s.Logger.Info("Attempting to download file", "filename", filename)

	file, err := s.Store.Get(r.Context(), filename)
	if err != nil {
		if errors.IsKind(err, errors.KindNotFound) {
			s.Logger.Warn("File not found", "filename", filename)
		}
		s.writeError(w, err)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close downloaded file", "filename", filename)
		}
	}()

	w.Header().Set("Content-Type", storage.ContentTypeFor(filename))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, file); err != nil {
		s.Logger.LogError(err, "Failed to send file", "filename", filename)
	}
}

// testHandler is a liveness probe
func (s *Server) testHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Server is running"})
}

// healthHandler reports model availability, breaker state and certificate health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := types.HealthResponse{
		Status:    "healthy",
		Service:   "careerkit",
		Version:   s.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	overallHealthy := true

	if s.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.healthCheckTimeout())
		defer cancel()

		models := s.Health.ModelInfo(ctx)
		response.AIModels = models
		for _, info := range models {
			if info != nil && !info.Available {
				overallHealthy = false
			}
		}
		response.CircuitBreakers = s.Health.CircuitBreakerStats()
	} else {
		response.AIModels = map[string]any{"configured": false}
	}

	if s.CertificateManager != nil {
		certStatus := s.CertificateManager.Health()
		response.Certificates = certStatus
		if healthy, ok := certStatus["healthy"].(bool); ok && !healthy {
			overallHealthy = false
		}
	}

	status := http.StatusOK
	if !overallHealthy {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "careerkit",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_request_size":       utils.FormatFileSize(s.MaxRequestSize),
			"default_format":         s.DefaultFormat,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody("Resource Not Found", errors.ErrCodeNotFound, string(errors.KindNotFound)))
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody("Method Not Allowed", "METHOD_NOT_ALLOWED", ""))
}

func (s *Server) healthCheckTimeout() time.Duration {
	if s.AppConfig != nil && s.AppConfig.Observability.HealthCheck.Timeout > 0 {
		return s.AppConfig.Observability.HealthCheck.Timeout
	}
	return 15 * time.Second
}

// format returns the requested output format or the server default
func (s *Server) format(requested string) string {
	if requested == "" {
		return s.DefaultFormat
	}
	return requested
}

// respondArtifact stores a generated document and reports its name
func (s *Server) respondArtifact(ctx context.Context, w http.ResponseWriter, span oteltrace.Span, artifact workflow.Artifact, message string) {
	location, err := s.Store.Put(ctx, artifact.Name, artifact.ContentType, artifact.Data)
	if err != nil {
		s.fail(w, span, err)
		return
	}

	s.Logger.Info("Document written",
		"file", artifact.Name,
		"format", artifact.Format,
		"location", location,
		"size", len(artifact.Data))
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.String("response.file", artifact.Name),
		attribute.Int("response.bytes", len(artifact.Data)),
	)

	writeJSON(w, http.StatusOK, types.GenerateResponse{Message: message, FilePath: artifact.Name})
}

// fail records err on the span and writes the error response
func (s *Server) fail(w http.ResponseWriter, span oteltrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.kind", string(errors.KindOf(err))))
	s.writeError(w, err)
}

// writeErrorResponse writes a standardized error response. Server-side
// failures are logged with their cause; the client sees only the message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed")
	} else {
		s.Logger.Info("Request rejected", "status", status, "error", err.Error())
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		writeJSON(w, status, errorBody(appErr.Message, appErr.Code, string(appErr.Kind)))
		return
	}
	writeJSON(w, status, errorBody("Internal Server Error", errors.ErrCodeInternal, string(errors.KindInternal)))
}

func errorBody(message, code, kind string) types.ErrorResponse {
	return types.ErrorResponse{Error: message, Code: code, Kind: kind}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// uploadSet holds the files of one multipart request, saved to the
// upload directory.
type uploadSet struct {
	form   *multipart.Form
	paths  map[string]string
	names  map[string]string
	logger *errors.Logger
}

// receiveUploads parses the multipart body and saves every file part.
// Nothing is saved when the body is over the size limit.
func (s *Server) receiveUploads(r *http.Request) (*uploadSet, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, errors.NewFileTooLargeError(maxBytesErr.Limit)
		}
		return nil, errors.NewMissingInputError(fmt.Sprintf("Invalid multipart request: %v", err))
	}

	set := &uploadSet{
		form:   r.MultipartForm,
		paths:  make(map[string]string),
		names:  make(map[string]string),
		logger: s.Logger,
	}

	for field, headers := range r.MultipartForm.File {
		if len(headers) == 0 || headers[0].Filename == "" {
			continue
		}
		header := headers[0]
		set.names[field] = header.Filename
		if !utils.IsAllowedUpload(header.Filename, ".docx") {
			continue
		}

		path, err := saveUpload(s.Workspace, header)
		if err != nil {
			set.cleanup()
			return nil, err
		}
		set.paths[field] = path
	}

	return set, nil
}

func saveUpload(ws storage.Workspace, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "Cannot read upload", err)
	}
	defer file.Close()

	return ws.SaveUpload(header.Filename, file)
}

// has reports whether a file with a name was sent in field
func (u *uploadSet) has(field string) bool {
	_, ok := u.names[field]
	return ok
}

// read returns the saved content of field. A file that is not a .docx
// upload fails with invalidFormat.
func (u *uploadSet) read(field, invalidFormat string) ([]byte, error) {
	path, ok := u.paths[field]
	if !ok {
		return nil, errors.NewUnsupportedFormatError(invalidFormat, nil).WithContext("filename", u.names[field])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Cannot read upload", err)
	}
	return data, nil
}

// cleanup removes the saved uploads and any spilled multipart parts
func (u *uploadSet) cleanup() {
	paths := make([]string, 0, len(u.paths))
	for _, path := range u.paths {
		paths = append(paths, path)
	}
	storage.Cleanup(u.logger, paths...)

	if u.form != nil {
		if err := u.form.RemoveAll(); err != nil {
			u.logger.Warn("Error removing multipart temp files", "error", err)
		}
	}
}
