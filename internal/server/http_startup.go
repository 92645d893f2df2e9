package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"careerkit/internal/utils"
)

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:      s.handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	if err := s.configureTLS(srv); err != nil {
		return err
	}
	defer s.cleanup()

	ln, err := net.Listen("tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	if srv.TLSConfig != nil {
		ln = tls.NewListener(ln, srv.TLSConfig)
	}

	s.printBanner(os.Stdout, ln.Addr().String(), srv.TLSConfig != nil)
	s.Logger.Info("Starting HTTP server",
		"address", ln.Addr().String(),
		"tls_mode", s.tlsMode())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("Shutting down HTTP server", "timeout", s.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Graceful shutdown failed, closing connections")
		return srv.Close()
	}
	s.Logger.Info("Server shutdown completed")
	return nil
}

// cleanup stops the certificate watcher and the rate limiter.
func (s *Server) cleanup() {
	if s.CertificateManager != nil {
		if err := s.CertificateManager.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop certificate manager")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}
}

func (s *Server) tlsMode() string {
	if s.TLSConfig.Mode == "" {
		return "disabled"
	}
	return s.TLSConfig.Mode
}

// configureTLS starts the certificate manager and installs its TLS config
// for the server and mutual modes.
func (s *Server) configureTLS(srv *http.Server) error {
	switch s.tlsMode() {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	cm := NewCertificateManager(&s.TLSConfig, s.Observability, s.Logger)
	if err := cm.Start(); err != nil {
		return fmt.Errorf("failed to start certificate manager: %w", err)
	}
	s.CertificateManager = cm
	srv.TLSConfig = s.buildTLSConfig()
	return nil
}

// buildTLSConfig serves certificates through the certificate manager so
// reloads apply to new connections.
func (s *Server) buildTLSConfig() *tls.Config {
	cfg := &tls.Config{
		MinVersion:     tls.VersionTLS12,
		ClientAuth:     tls.NoClientCert,
		GetCertificate: s.CertificateManager.GetServerCertificate,
	}
	if s.TLSConfig.MinVersion == "1.3" {
		cfg.MinVersion = tls.VersionTLS13
	}
	if s.TLSConfig.Mode == "mutual" {
		switch s.TLSConfig.ClientAuthPolicy {
		case "request":
			cfg.ClientAuth = tls.RequestClientCert
		case "verify":
			cfg.ClientAuth = tls.VerifyClientCertIfGiven
		default:
			cfg.ClientAuth = tls.RequireAndVerifyClientCert
		}
	}
	cfg.GetConfigForClient = s.CertificateManager.GetConfigForClient(cfg)
	return cfg
}

// printBanner writes the listening address, the routes and the request
// policies.
func (s *Server) printBanner(w io.Writer, addr string, secure bool) {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	fmt.Fprintf(w, "careerkit %s listening on %s://%s (TLS: %s)\n", s.Version, scheme, addr, s.tlsMode())
	if s.TLSConfig.AutoReload.Enabled && secure {
		fmt.Fprintln(w, "Certificate auto-reload: enabled")
	}

	fmt.Fprintln(w, "Endpoints:")
	for _, rt := range s.routes() {
		fmt.Fprintf(w, "  %-5s %-24s %s\n", rt.method, rt.path, rt.summary)
	}
	fmt.Fprintf(w, "Default document format: %s\n", s.DefaultFormat)

	if len(s.APIKeys) > 0 {
		fmt.Fprintf(w, "API authentication: enabled (%d keys), send X-API-Key or a Bearer token\n", len(s.APIKeys))
	} else {
		fmt.Fprintln(w, "API authentication: disabled")
	}

	if s.MaxRequestSize > 0 {
		fmt.Fprintf(w, "Upload size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Fprintln(w, "Upload size limit: none")
	}

	if s.RateLimiter != nil {
		var keys []string
		if s.RateLimit.ByAPIKey {
			keys = append(keys, "api key")
		}
		if s.RateLimit.ByIP {
			keys = append(keys, "ip")
		}
		fmt.Fprintf(w, "Rate limiting: %d requests/min, burst %d, keyed by %v\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity, keys)
	} else {
		fmt.Fprintln(w, "Rate limiting: disabled")
	}
}
