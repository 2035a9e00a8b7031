package crypt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/storage"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
	"github.com/yndnr/cryptsess/internal/telemetry/metric"
	"github.com/yndnr/cryptsess/pkg/crypto/adaptive"
)

// keyInfo binds derived keys to session payload encryption.
const keyInfo = "cryptsess/session-payload/v1"

// Frame markers prefixed to the plaintext before sealing.
const (
	frameRaw  byte = 0
	frameZstd byte = 1
)

// Provider encrypts session payloads on their way into a Storage and
// decrypts them on the way out.
//
// The key is derived once at construction and never changes. Provider is
// safe for concurrent use.
type Provider struct {
	store   storage.Storage
	cipher  adaptive.Cipher
	params  adaptive.KeyParams
	ctype   adaptive.CipherType
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	log     logger.Logger
	metrics *metric.Registry
}

// Option configures a Provider.
type Option func(*Provider)

// WithCipherType selects the AEAD. Defaults to adaptive.CipherAuto.
func WithCipherType(t adaptive.CipherType) Option {
	return func(p *Provider) {
		p.ctype = t
	}
}

// WithKeyParams overrides key derivation (KDF and salt).
func WithKeyParams(params adaptive.KeyParams) Option {
	return func(p *Provider) {
		p.params = params
	}
}

// WithCompression compresses plaintext with zstd before sealing.
func WithCompression(enabled bool) Option {
	return func(p *Provider) {
		if !enabled {
			p.enc = nil
			return
		}
		// Encoder construction only fails on invalid options.
		p.enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) {
		p.log = l
	}
}

// WithMetrics records reads, writes and sweeps on r.
func WithMetrics(r *metric.Registry) Option {
	return func(p *Provider) {
		p.metrics = r
	}
}

// New creates a Provider over store. The secret is turned into a key with
// the configured KDF; an empty secret fails with domain.ErrInvalidKey.
func New(store storage.Storage, secret string, opts ...Option) (*Provider, error) {
	if store == nil {
		return nil, errors.New("crypt: storage is required")
	}

	p := &Provider{
		store: store,
		ctype: adaptive.CipherAuto,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.params.Info == "" {
		p.params.Info = keyInfo
	}

	key, err := adaptive.DeriveKey(secret, p.params)
	if err != nil {
		return nil, domain.ErrInvalidKey.WithCause(err)
	}
	defer adaptive.ZeroKey(key)

	c, err := adaptive.NewWithType(key, p.ctype)
	if err != nil {
		return nil, domain.ErrInvalidKey.WithCause(err)
	}
	p.cipher = c

	// The decoder is always available so records written with compression
	// stay readable after it is switched off.
	p.dec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("crypt: zstd decoder: %w", err)
	}

	p.log = p.log.With("component", "crypt", "cipher", string(c.Type()))
	return p, nil
}

// CipherType returns the AEAD in use.
func (p *Provider) CipherType() adaptive.CipherType {
	return p.cipher.Type()
}

// Storage returns the underlying store.
func (p *Provider) Storage() storage.Storage {
	return p.store
}

// Load returns the decrypted payload for id and true when the record exists
// and authenticates. Every failure yields nil, false.
func (p *Provider) Load(ctx context.Context, id string) ([]byte, bool) {
	start := time.Now()
	log := p.logFor(ctx)

	sealed, err := p.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidIdentifier) {
			p.metrics.ObserveRead(metric.ReadMiss, start)
			return nil, false
		}
		log.Warn("session read failed", "session_id", id, "error", err)
		p.metrics.ObserveRead(metric.ReadError, start)
		return nil, false
	}

	plaintext, err := p.open(id, sealed)
	if err != nil {
		log.Warn("session payload rejected", "session_id", id, "error", err)
		p.metrics.ObserveRead(metric.ReadUndecryptable, start)
		return nil, false
	}

	p.metrics.ObserveRead(metric.ReadHit, start)
	return plaintext, true
}

// Read returns the decrypted payload for id, or empty when the record is
// missing, unreadable or does not authenticate.
func (p *Provider) Read(ctx context.Context, id string) []byte {
	data, _ := p.Load(ctx, id)
	return data
}

// Write seals plaintext under a fresh nonce and saves it as id.
func (p *Provider) Write(ctx context.Context, id string, plaintext []byte) error {
	start := time.Now()

	if err := domain.ValidateIdentifier(id); err != nil {
		p.metrics.ObserveWrite(metric.ResultError, start)
		return err
	}

	sealed, err := p.seal(id, plaintext)
	if err != nil {
		p.metrics.ObserveWrite(metric.ResultError, start)
		return domain.ErrEncryptFailed.WithCause(err)
	}

	if err := p.store.Save(ctx, id, sealed); err != nil {
		p.logFor(ctx).Error("session write failed", "session_id", id, "error", err)
		p.metrics.ObserveWrite(metric.ResultError, start)
		return err
	}

	p.metrics.ObserveWrite(metric.ResultOK, start)
	return nil
}

// Destroy removes the record for id. Returns domain.ErrNotFound when absent.
func (p *Provider) Destroy(ctx context.Context, id string) error {
	err := p.store.Delete(ctx, id)
	switch {
	case err == nil:
		p.metrics.ObserveDestroy(metric.ResultOK)
	case errors.Is(err, domain.ErrNotFound):
		p.metrics.ObserveDestroy(metric.ResultNotFound)
	default:
		p.logFor(ctx).Error("session destroy failed", "session_id", id, "error", err)
		p.metrics.ObserveDestroy(metric.ResultError)
	}
	return err
}

// GC removes records not written within maxLife and returns how many went.
func (p *Provider) GC(ctx context.Context, maxLife time.Duration) (int, error) {
	start := time.Now()
	n, err := p.store.SweepExpired(ctx, maxLife)
	if err != nil {
		p.metrics.ObserveGC(metric.ResultError, n, start)
		return n, err
	}
	p.metrics.ObserveGC(metric.ResultOK, n, start)
	return n, nil
}

// Exists reports whether a record for id is present.
func (p *Provider) Exists(ctx context.Context, id string) (bool, error) {
	return p.store.Exists(ctx, id)
}

// Close releases compression state. It does not close the store.
func (p *Provider) Close() error {
	if p.enc != nil {
		p.enc.Close()
	}
	p.dec.Close()
	return nil
}

func (p *Provider) logFor(ctx context.Context) logger.Logger {
	l := p.log
	if reqID := logger.RequestIDFromContext(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	return l.WithContext(ctx)
}

func (p *Provider) seal(id string, plaintext []byte) ([]byte, error) {
	var framed []byte
	if p.enc != nil && len(plaintext) > 0 {
		framed = make([]byte, 1, 1+len(plaintext))
		framed[0] = frameZstd
		framed = p.enc.EncodeAll(plaintext, framed)
	} else {
		framed = make([]byte, 1+len(plaintext))
		framed[0] = frameRaw
		copy(framed[1:], plaintext)
	}
	return p.cipher.Encrypt(framed, []byte(id))
}

func (p *Provider) open(id string, sealed []byte) ([]byte, error) {
	framed, err := p.cipher.Decrypt(sealed, []byte(id))
	if err != nil {
		return nil, domain.ErrDecryptFailed.WithCause(err)
	}
	if len(framed) == 0 {
		return nil, domain.ErrDecryptFailed.WithDetails("empty frame")
	}

	switch framed[0] {
	case frameRaw:
		return framed[1:], nil
	case frameZstd:
		out, err := p.dec.DecodeAll(framed[1:], nil)
		if err != nil {
			return nil, domain.ErrDecryptFailed.WithCause(err)
		}
		return out, nil
	default:
		return nil, domain.ErrDecryptFailed.WithDetails(fmt.Sprintf("unknown frame marker %d", framed[0]))
	}
}
