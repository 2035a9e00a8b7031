package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/cryptsess/internal/crypt"
	"github.com/yndnr/cryptsess/internal/session"
	"github.com/yndnr/cryptsess/internal/storage"
	"github.com/yndnr/cryptsess/internal/storage/memory"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
)

const benchSecret = "benchmark-secret-key-0123456789abcdef"

// PayloadSizes covers a bare login marker up to a heavy cart.
var PayloadSizes = []int{64, 1024, 16384}

// SessionCounts is the number of records preloaded before measuring.
var SessionCounts = []int{1000, 10000}

// backend opens a fresh store for a benchmark.
type backend struct {
	name string
	open func(b *testing.B) storage.Storage
}

// backends lists the drivers that run without external services.
var backends = []backend{
	{"memory", func(b *testing.B) storage.Storage {
		return memory.New()
	}},
	{"file", func(b *testing.B) storage.Storage {
		s, err := storage.NewFileStorage(storage.FileConfig{Dir: b.TempDir()}, logger.Discard())
		if err != nil {
			b.Fatalf("NewFileStorage() error = %v", err)
		}
		return s
	}},
	{"badger", func(b *testing.B) storage.Storage {
		cfg := storage.DefaultBadgerConfig("")
		cfg.InMemory = true
		s, err := storage.NewBadgerStorage(cfg, logger.Discard())
		if err != nil {
			b.Fatalf("NewBadgerStorage() error = %v", err)
		}
		return s
	}},
}

func newProvider(b *testing.B, store storage.Storage, opts ...crypt.Option) *crypt.Provider {
	b.Helper()
	opts = append([]crypt.Option{crypt.WithLogger(logger.Discard())}, opts...)
	p, err := crypt.New(store, benchSecret, opts...)
	if err != nil {
		b.Fatalf("crypt.New() error = %v", err)
	}
	return p
}

func newManager(b *testing.B, p *crypt.Provider) *session.Manager {
	b.Helper()
	m, err := session.NewManager(p, session.DefaultConfig(), session.WithLogger(logger.Discard()))
	if err != nil {
		b.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func randomPayload(b *testing.B, size int) []byte {
	b.Helper()
	p := make([]byte, size)
	if _, err := rand.Read(p); err != nil {
		b.Fatalf("rand.Read() error = %v", err)
	}
	return p
}

// textPayload compresses well, like serialized session attributes.
func textPayload(size int) []byte {
	p := make([]byte, 0, size)
	for len(p) < size {
		p = append(p, `user_id=4711;role=customer;cart=sku-1,sku-2,sku-3;`...)
	}
	return p[:size]
}

// prefill writes count encrypted records and returns their identifiers.
func prefill(b *testing.B, p *crypt.Provider, count int, payload []byte) []string {
	b.Helper()
	ctx := context.Background()
	ids := make([]string, count)
	for i := range ids {
		id, err := session.RandomID()
		if err != nil {
			b.Fatalf("RandomID() error = %v", err)
		}
		if err := p.Write(ctx, id, payload); err != nil {
			b.Fatalf("Write() error = %v", err)
		}
		ids[i] = id
	}
	return ids
}

// reportMemory reports heap usage after a forced collection.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

func sizeLabel(size int) string {
	if size >= 1024 {
		return fmt.Sprintf("%dKB", size/1024)
	}
	return fmt.Sprintf("%dB", size)
}
