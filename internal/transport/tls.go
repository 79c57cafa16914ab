package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLSOptions configures the client side of the HTTPS connection.  The
// zero value means "platform defaults".
type TLSOptions struct {
	CAFile             string // PEM bundle added to the system roots
	CertFile           string // client certificate (mutual TLS)
	KeyFile            string
	ServerName         string
	MinVersion         uint16
	InsecureSkipVerify bool
}

// Configured reports whether any option deviates from the defaults.
func (o TLSOptions) Configured() bool {
	return o != TLSOptions{}
}

// BuildTLSConfig turns the options into a *tls.Config.  It returns nil
// when nothing is configured so the HTTP stack keeps its defaults.
func BuildTLSConfig(o TLSOptions) (*tls.Config, error) {
	if !o.Configured() {
		return nil, nil
	}

	cfg := &tls.Config{
		ServerName:         o.ServerName,
		MinVersion:         o.MinVersion,
		InsecureSkipVerify: o.InsecureSkipVerify, //nolint:gosec // explicit opt-in
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = tls.VersionTLS12
	}

	if o.CAFile != "" {
		pemData, err := os.ReadFile(o.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fmt.Errorf("CA bundle %s contains no certificates", o.CAFile)
		}
		cfg.RootCAs = pool
	}

	if o.CertFile != "" || o.KeyFile != "" {
		if o.CertFile == "" || o.KeyFile == "" {
			return nil, fmt.Errorf("client certificate and key must be given together")
		}
		cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
