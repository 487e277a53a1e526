package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// FileStore implements an envelope store using the local file system.
// Each slot maps to one file under the base directory. Envelopes are
// opaque sealed blobs, so plain files on untrusted disk are acceptable.
type FileStore struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file-backed envelope store rooted at baseDir,
// creating the directory if it does not exist.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileStore{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Save writes the envelope into the slot's file, replacing any previous
// envelope. The write goes through a temporary file and rename so a crash
// never leaves a half-written envelope in the slot.
func (s *FileStore) Save(ctx context.Context, slot string, envelope []byte) error {
	filePath := s.slotPath(slot)

	tmp, err := os.CreateTemp(s.baseDir, filepath.Base(filePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(envelope); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to move envelope into place: %w", err)
	}

	s.log.Debug("Stored envelope in file",
		slog.String("path", filePath),
		slog.Int("size", len(envelope)))

	return nil
}

// Load reads the envelope from the slot's file. Returns
// ErrEnvelopeNotFound if the slot is empty.
func (s *FileStore) Load(ctx context.Context, slot string) ([]byte, error) {
	filePath := s.slotPath(slot)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, interfaces.ErrEnvelopeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope: %w", err)
	}

	s.log.Debug("Loaded envelope from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Available checks if the store is accessible by verifying the base
// directory exists.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(s.baseDir)
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

// LocationURI returns the URI that identifies this store.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}

// slotPath maps a slot name to a file path under the base directory.
// Slot names are sanitized through filepath.Base to keep them inside it.
func (s *FileStore) slotPath(slot string) string {
	return filepath.Join(s.baseDir, filepath.Base(slot)+".sealed")
}
