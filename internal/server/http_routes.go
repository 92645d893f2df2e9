package server

import (
	"net/http"
	"strings"

	"careerkit/internal/errors"
)

// route is one endpoint. Protected routes sit behind rate limiting, API
// key auth and the upload size limit.
type route struct {
	method    string
	path      string
	protected bool
	handler   http.HandlerFunc
	summary   string
}

func (s *Server) routes() []route {
	return []route{
		{http.MethodGet, "/health", false, s.healthHandler, "Health check"},
		{http.MethodGet, "/test", false, s.testHandler, "Liveness probe"},
		{http.MethodGet, "/stats", false, s.statsHandler, "Server statistics"},
		{http.MethodPost, "/generate-cover-letter", true, s.generateCoverLetterHandler, "Generate a cover letter"},
		{http.MethodPost, "/customize-resume", true, s.customizeResumeHandler, "Format or customize a resume"},
		{http.MethodGet, "/download/{filename}", true, s.downloadHandler, "Download a generated document"},
	}
}

// setupRoutes registers every route plus a method-less fallback per path
// that answers 405.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	limit := s.rateLimitMiddleware()
	size := s.requestSizeLimitMiddleware()

	for _, rt := range s.routes() {
		h := rt.handler
		if rt.protected {
			h = limit(s.authMiddleware(size(h)))
		}
		mux.HandleFunc(rt.method+" "+rt.path, h)
		mux.HandleFunc(rt.path, methodNotAllowedHandler)
	}
	mux.HandleFunc("/", notFoundHandler)

	return mux
}

// handler returns the complete middleware chain around the routes.
func (s *Server) handler() http.Handler {
	return s.Observability.HTTPMiddleware()(corsMiddleware(s.setupRoutes()))
}

// corsMiddleware allows cross-origin browser clients and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
		header.Set("Access-Control-Allow-Methods", "GET,PUT,POST,DELETE,OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeJSON(w, http.StatusUnauthorized, errorBody("Missing API key", "UNAUTHORIZED", ""))
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeJSON(w, http.StatusUnauthorized, errorBody("Invalid API key", "UNAUTHORIZED", ""))
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware rejects bodies above the upload limit. A
// declared length over the limit is refused before anything is read.
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				if r.ContentLength > s.MaxRequestSize {
					s.writeError(w, errors.NewFileTooLargeError(s.MaxRequestSize))
					return
				}
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// requestAPIKey reads the key from X-API-Key or a Bearer Authorization header
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
