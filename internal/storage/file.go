package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/yndnr/cryptsess/internal/core/domain"
	"github.com/yndnr/cryptsess/internal/telemetry/logger"
)

// DefaultPrefix is prepended to every identifier to form a file name.
const DefaultPrefix = "sess_"

// tempMarker is part of every in-flight file name. Identifiers cannot
// contain '.', so a temp file never shadows a record.
const tempMarker = ".tmp-"

// maxFileNameLength is the common NAME_MAX of Linux and BSD filesystems.
const maxFileNameLength = 255

// maxPrefixLength leaves room for the temp marker and the random suffix
// os.CreateTemp appends.
const maxPrefixLength = 64

// FileConfig configures a FileStorage.
type FileConfig struct {
	// Dir is the root directory. Created when absent.
	// Default: os.TempDir()
	Dir string

	// Prefix is prepended to identifiers and doubles as the sweep filter,
	// so several stores can share one directory.
	// Default: "sess_"
	Prefix string

	// Clock overrides time.Now.
	Clock Clock
}

// FileStorage stores each record as a JSON envelope in its own file:
// Dir/Prefix+identifier.
type FileStorage struct {
	dir    string
	prefix string
	clock  Clock
	logger logger.Logger
	remove func(string) error
}

// NewFileStorage opens (and if needed creates) the root directory and checks
// that it is readable and writable.
func NewFileStorage(cfg FileConfig, log logger.Logger) (*FileStorage, error) {
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if len(cfg.Prefix) > maxPrefixLength {
		return nil, fmt.Errorf("storage: file prefix exceeds %d bytes", maxPrefixLength)
	}
	if log == nil {
		log = logger.Default()
	}

	if err := ensureDir(cfg.Dir); err != nil {
		return nil, err
	}

	s := &FileStorage{
		dir:    cfg.Dir,
		prefix: cfg.Prefix,
		clock:  cfg.Clock,
		logger: log.With("component", "storage.file"),
		remove: os.Remove,
	}

	s.logger.Info("file storage ready", "dir", cfg.Dir, "prefix", cfg.Prefix)
	return s, nil
}

// ensureDir creates dir when missing and probes read and write access.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrDirectoryNotReadable.WithDetails(dir).WithCause(err)
	case err != nil:
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return domain.ErrUnableToCreateDirectory.WithDetails(dir).WithCause(err)
		}
	case !info.IsDir():
		return domain.ErrUnableToCreateDirectory.WithDetails(dir + " is not a directory")
	}

	d, err := os.Open(dir)
	if err != nil {
		return domain.ErrDirectoryNotReadable.WithDetails(dir).WithCause(err)
	}
	_, err = d.Readdirnames(1)
	d.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		return domain.ErrDirectoryNotReadable.WithDetails(dir).WithCause(err)
	}

	probe, err := os.CreateTemp(dir, tempMarker+"probe-*")
	if err != nil {
		return domain.ErrDirectoryNotWritable.WithDetails(dir).WithCause(err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

// Dir returns the root directory.
func (s *FileStorage) Dir() string { return s.dir }

// Prefix returns the file name prefix.
func (s *FileStorage) Prefix() string { return s.prefix }

func (s *FileStorage) path(id string) string {
	return filepath.Join(s.dir, s.prefix+id)
}

// MaxIdentifierLength is the longest identifier whose file name still fits
// in a single path component.
func (s *FileStorage) MaxIdentifierLength() int {
	return min(domain.MaxIdentifierLength, maxFileNameLength-len(s.prefix))
}

// validate rejects identifiers the filesystem could not store, before any I/O.
func (s *FileStorage) validate(id string) error {
	if err := domain.ValidateIdentifier(id); err != nil {
		return err
	}
	if len(id) > s.MaxIdentifierLength() {
		return domain.ErrInvalidIdentifier.WithDetails(
			fmt.Sprintf("identifier exceeds %d bytes for prefix %q", s.MaxIdentifierLength(), s.prefix))
	}
	return nil
}

// Exists reports whether the record file is present. Every call stats the
// file anew.
func (s *FileStorage) Exists(_ context.Context, id string) (bool, error) {
	if err := s.validate(id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, domain.ErrUnableToFetch.WithCause(err)
}

// Save writes the envelope to a temp file, syncs it, and renames it over the
// record so readers never observe a partial write.
func (s *FileStorage) Save(_ context.Context, id string, payload []byte) error {
	if err := s.validate(id); err != nil {
		return err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	env := domain.NewEnvelope(payload, s.clock.Now())
	if err := json.NewEncoder(buf).Encode(env); err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}

	tmp, err := os.CreateTemp(s.dir, s.prefix+tempMarker+"*")
	if err != nil {
		return domain.ErrUnableToSave.WithCause(err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.B); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return domain.ErrUnableToSave.WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return domain.ErrUnableToSave.WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return domain.ErrUnableToSave.WithCause(err)
	}
	if err := os.Rename(tmpPath, s.path(id)); err != nil {
		os.Remove(tmpPath)
		return domain.ErrUnableToSave.WithCause(err)
	}

	return nil
}

// Get returns the stored payload.
func (s *FileStorage) Get(_ context.Context, id string) ([]byte, error) {
	if err := s.validate(id); err != nil {
		return nil, err
	}

	env, err := s.readEnvelope(s.path(id))
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (s *FileStorage) readEnvelope(path string) (domain.Envelope, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Envelope{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Envelope{}, domain.ErrUnableToFetch.WithCause(err)
	}

	env, err := domain.DecodeEnvelope(b)
	if err != nil {
		return domain.Envelope{}, domain.ErrUnableToFetch.WithCause(err)
	}
	return env, nil
}

// Delete removes the record file and confirms it is gone.
func (s *FileStorage) Delete(_ context.Context, id string) error {
	if err := s.validate(id); err != nil {
		return err
	}

	path := s.path(id)
	if err := s.remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrNotFound
		}
		return domain.ErrUnableToDelete.WithCause(err)
	}

	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return domain.ErrUnableToDelete.WithDetails("record still present after removal")
	}
	return nil
}

// SweepExpired removes expired records whose file name starts with the
// prefix. Files that fail to decode are judged by their modification time,
// which also reclaims temp files abandoned by a crashed writer.
func (s *FileStorage) SweepExpired(ctx context.Context, maxLife time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, domain.ErrUnableToFetch.WithDetails("list " + s.dir).WithCause(err)
	}

	now := s.clock.Now()
	removed := 0
	var errs []error

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, s.prefix) {
			continue
		}

		path := filepath.Join(s.dir, name)
		expired, err := s.expired(path, maxLife, now)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
			continue
		}
		if !expired {
			continue
		}

		if err := s.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	if removed > 0 || len(errs) > 0 {
		s.logger.WithContext(ctx).Debug("sweep finished", "removed", removed, "failed", len(errs))
	}
	return removed, SweepError(errs)
}

func (s *FileStorage) expired(path string, maxLife time.Duration, now time.Time) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if env, err := domain.DecodeEnvelope(b); err == nil {
		return env.Expired(maxLife, now), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return !info.ModTime().Add(maxLife).After(now), nil
}

// Close is a no-op; files are closed after every operation.
func (s *FileStorage) Close() error { return nil }
