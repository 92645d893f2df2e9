package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"careerkit/internal/config"
	apperrors "careerkit/internal/errors"
	"careerkit/internal/observability"
)

// Expiry thresholds reported by Health.
const (
	certCriticalWindow = 24 * time.Hour
	certWarningWindow  = 7 * 24 * time.Hour
)

// certBundle is one loaded generation of serving material.
type certBundle struct {
	cert     *tls.Certificate
	clientCA *x509.CertPool
	notAfter time.Time
}

// CertificateManager serves the current TLS certificate and swaps in a new
// one whenever the files on disk change. A failed reload keeps the
// previous bundle.
type CertificateManager struct {
	cfg     *config.TLSConfig
	obs     *observability.ObservabilityManager
	logger  *apperrors.Logger
	current atomic.Pointer[certBundle]
	watcher *CertWatcher

	statsMu sync.Mutex
	stats   CertificateMetrics
}

// CertificateMetrics counts reload attempts.
type CertificateMetrics struct {
	ReloadCount        int64     `json:"reload_count"`
	ReloadFailureCount int64     `json:"reload_failure_count"`
	LastReloadTime     time.Time `json:"last_reload_time"`
	LastReloadError    string    `json:"last_reload_error,omitempty"`
}

func NewCertificateManager(tlsConfig *config.TLSConfig, om *observability.ObservabilityManager, logger *apperrors.Logger) *CertificateManager {
	return &CertificateManager{cfg: tlsConfig, obs: om, logger: logger}
}

// Start performs the first load. With auto-reload on and file-based
// material it also starts a CertWatcher over the cert, key and CA files.
func (cm *CertificateManager) Start() error {
	if err := cm.reload(); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}
	if !cm.cfg.AutoReload.Enabled || cm.cfg.CertFile == "" {
		return nil
	}

	watcher := NewCertWatcher(
		[]string{cm.cfg.CertFile, cm.cfg.KeyFile, cm.cfg.CAFile},
		cm.cfg.AutoReload.DebounceDelay,
		func() {
			if err := cm.reload(); err != nil {
				cm.logger.LogError(err, "Failed to reload certificates")
			}
		},
		cm.logger,
	)
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	cm.watcher = watcher
	return nil
}

func (cm *CertificateManager) Stop() error {
	if cm.watcher == nil {
		return nil
	}
	return cm.watcher.Stop()
}

// ReloadCertificates loads the configured material now.
func (cm *CertificateManager) ReloadCertificates() error {
	return cm.reload()
}

// GetServerCertificate is a tls.Config.GetCertificate callback. It refuses
// to serve an expired certificate.
func (cm *CertificateManager) GetServerCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	b := cm.current.Load()
	if b == nil {
		return nil, errors.New("no server certificate available")
	}
	if time.Now().After(b.notAfter) {
		cm.logger.Warn("Server certificate expired", "expiry", b.notAfter, "server_name", hello.ServerName)
		return nil, errors.New("server certificate expired")
	}
	return b.cert, nil
}

// GetCACertPool returns the pool client certificates are verified
// against, or nil outside mutual mode.
func (cm *CertificateManager) GetCACertPool() *x509.CertPool {
	if b := cm.current.Load(); b != nil {
		return b.clientCA
	}
	return nil
}

// GetConfigForClient returns a callback that builds each handshake's
// config from base and the current bundle, so reloads reach new
// connections without restarting the listener.
func (cm *CertificateManager) GetConfigForClient(base *tls.Config) func(*tls.ClientHelloInfo) (*tls.Config, error) {
	return func(*tls.ClientHelloInfo) (*tls.Config, error) {
		cfg := base.Clone()
		cfg.GetConfigForClient = nil
		cfg.GetCertificate = cm.GetServerCertificate
		if pool := cm.GetCACertPool(); pool != nil {
			cfg.ClientCAs = pool
		}
		return cfg, nil
	}
}

// CheckExpiry returns how long the current certificate remains valid.
func (cm *CertificateManager) CheckExpiry() (time.Duration, error) {
	b := cm.current.Load()
	if b == nil {
		return 0, errors.New("no certificates loaded")
	}
	return time.Until(b.notAfter), nil
}

func (cm *CertificateManager) GetMetrics() CertificateMetrics {
	cm.statsMu.Lock()
	defer cm.statsMu.Unlock()
	return cm.stats
}

// WatchStatus describes the auto-reload state.
func (cm *CertificateManager) WatchStatus() map[string]any {
	status := map[string]any{"enabled": cm.cfg.AutoReload.Enabled}
	if cm.watcher != nil {
		status["file_watcher_running"] = cm.watcher.IsRunning()
		status["watched_files"] = cm.watcher.WatchedFiles()
	}
	return status
}

// Health grades the certificate by time to expiry: expired or under a day
// is unhealthy, under a week is a warning.
func (cm *CertificateManager) Health() map[string]any {
	left, err := cm.CheckExpiry()
	if err != nil {
		return map[string]any{
			"healthy": false,
			"error":   fmt.Sprintf("Failed to check certificate expiry: %v", err),
		}
	}

	state, healthy := "ok", true
	switch {
	case left <= 0:
		state, healthy = "expired", false
	case left <= certCriticalWindow:
		state, healthy = "critical", false
	case left <= certWarningWindow:
		state = "warning"
	}

	return map[string]any{
		"healthy":              healthy,
		"status":               state,
		"time_to_expiry_hours": int(left.Hours()),
		"time_to_expiry":       left.String(),
		"auto_reload":          cm.WatchStatus(),
		"metrics":              cm.GetMetrics(),
	}
}

func (cm *CertificateManager) reload() error {
	b, err := loadBundle(cm.cfg)

	cm.statsMu.Lock()
	cm.stats.ReloadCount++
	if err != nil {
		cm.stats.ReloadFailureCount++
		cm.stats.LastReloadError = err.Error()
	} else {
		cm.stats.LastReloadTime = time.Now()
		cm.stats.LastReloadError = ""
	}
	cm.statsMu.Unlock()

	if err != nil {
		cm.obs.RecordCertReload(context.Background(), false, time.Time{})
		return err
	}

	cm.current.Store(b)
	cm.obs.RecordCertReload(context.Background(), true, b.notAfter)
	cm.logger.Info("Certificates loaded", "server_cert_expiry", b.notAfter)
	return nil
}

// loadBundle reads the key pair, preferring inline PEM content over files,
// and in mutual mode the client CA.
func loadBundle(cfg *config.TLSConfig) (*certBundle, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return nil, errors.New("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert/key: %w", err)
	}
	if cert.Leaf == nil {
		if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	b := &certBundle{cert: &cert, notAfter: cert.Leaf.NotAfter}
	if cfg.Mode == "mutual" {
		if b.clientCA, err = loadClientCA(cfg); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func loadClientCA(cfg *config.TLSConfig) (*x509.CertPool, error) {
	pemData := []byte(cfg.CAContent)
	if len(pemData) == 0 {
		if cfg.CAFile == "" {
			return nil, errors.New("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
		}
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pemData = data
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemData) {
		return nil, errors.New("failed to parse CA certificate")
	}
	return pool, nil
}
