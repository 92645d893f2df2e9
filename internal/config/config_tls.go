package config

import (
	"fmt"
	"slices"
)

var (
	tlsModes          = []string{"disabled", "server", "mutual"}
	clientAuthOptions = []string{"", "require", "request", "verify"}
	tlsVersions       = []string{"", "1.2", "1.3"}
)

// pemSource is a PEM block that may come from a file or inline content,
// never both.
type pemSource struct {
	name    string
	file    string
	content string
}

func (p pemSource) set() bool { return p.file != "" || p.content != "" }

func (p pemSource) validate() error {
	if p.file != "" && p.content != "" {
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", p.name, p.name)
	}
	return nil
}

// ValidateTLSConfig checks the TLS mode and that the certificate sources
// that mode needs are present and unambiguous.
func (c *Config) ValidateTLSConfig() error {
	t := c.Server.TLS

	if !slices.Contains(tlsModes, t.Mode) {
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", t.Mode)
	}
	if !slices.Contains(tlsVersions, t.MinVersion) {
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}
	if t.Mode == "disabled" {
		return nil
	}

	cert := pemSource{"cert", t.CertFile, t.CertContent}
	key := pemSource{"key", t.KeyFile, t.KeyContent}
	if !cert.set() || !key.set() {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", t.Mode)
	}
	for _, src := range []pemSource{cert, key} {
		if err := src.validate(); err != nil {
			return err
		}
	}

	if t.Mode != "mutual" {
		return nil
	}

	ca := pemSource{"ca", t.CAFile, t.CAContent}
	if !ca.set() {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	if err := ca.validate(); err != nil {
		return err
	}
	if !slices.Contains(clientAuthOptions, t.ClientAuthPolicy) {
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", t.ClientAuthPolicy)
	}
	return nil
}
