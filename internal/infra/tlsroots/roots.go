package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/yndnr/cryptsess/internal/telemetry/logger"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in a PEM file.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM file")

	// ErrIncompleteKeyPair is returned when only one of cert and key is set.
	ErrIncompleteKeyPair = errors.New("tlsroots: cert_file and key_file must be set together")
)

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
}

// NewPool creates a pool seeded with the system roots, or an empty pool
// where the system roots are unavailable.
func NewPool() *Pool {
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	return &Pool{certPool: pool}
}

// NewEmptyPool creates a pool that trusts nothing until certificates are added.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertFile adds every certificate in a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read cert file %s: %w", path, err)
	}
	return p.AddCertPEM(data)
}

// AddCertPEM adds certificates from PEM-encoded data. Non-certificate blocks
// are skipped.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var added int
	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certPool.AddCert(cert)
		added++
	}

	if added == 0 {
		return ErrNoCertsFound
	}
	return nil
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// ClientOptions describes a client TLS setup.
type ClientOptions struct {
	// CAFile replaces the system roots when set.
	CAFile string
	// CertFile and KeyFile enable mutual TLS. The pair is reloaded when
	// either file changes.
	CertFile   string
	KeyFile    string
	ServerName string
	Logger     logger.Logger
}

// ClientConfig builds a client tls.Config. The returned stop function
// releases the key pair watcher and is never nil.
func ClientConfig(opts ClientOptions) (*tls.Config, func() error, error) {
	noop := func() error { return nil }

	cfg := &tls.Config{
		ServerName: opts.ServerName,
		MinVersion: tls.VersionTLS12,
	}

	if opts.CAFile != "" {
		pool := NewEmptyPool()
		if err := pool.AddCertFile(opts.CAFile); err != nil {
			return nil, noop, err
		}
		cfg.RootCAs = pool.Pool()
	}

	if (opts.CertFile == "") != (opts.KeyFile == "") {
		return nil, noop, ErrIncompleteKeyPair
	}
	if opts.CertFile == "" {
		return cfg, noop, nil
	}

	kp, err := NewKeyPairWatcher(opts.CertFile, opts.KeyFile, opts.Logger)
	if err != nil {
		return nil, noop, err
	}
	if err := kp.StartAsync(); err != nil {
		// The pair loaded; it just will not follow rotations.
		kp.logger.Warn("client certificate reload disabled", "error", err)
	}
	cfg.GetClientCertificate = kp.GetClientCertificate
	return cfg, kp.Stop, nil
}
