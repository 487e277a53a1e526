package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	shell "github.com/ipfs/go-ipfs-api"
)

// IPFSStore implements an envelope store using an IPFS node's mutable
// file system (MFS). Slots map to MFS paths, which gives the
// name-to-latest-envelope indirection plain IPFS content addressing
// doesn't provide.
type IPFSStore struct {
	shell       *shell.Shell
	host        string
	port        string
	basePath    string
	log         *slog.Logger
	locationURI string
}

// NewIPFSStore creates an envelope store connected to the IPFS node API
// at host:port, keeping envelopes under basePath in MFS.
func NewIPFSStore(host, port, basePath string, log *slog.Logger) (*IPFSStore, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	basePath = "/" + strings.Trim(basePath, "/")

	return &IPFSStore{
		shell:       shell.NewShell(apiURL),
		host:        host,
		port:        port,
		basePath:    basePath,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiURL, basePath),
	}, nil
}

// Save writes the envelope into the slot's MFS file, replacing any
// previous envelope stored there.
func (s *IPFSStore) Save(ctx context.Context, slot string, envelope []byte) error {
	if !s.shell.IsUp() {
		return interfaces.ErrStoreUnavailable
	}

	filePath := s.slotPath(slot)
	err := s.shell.FilesWrite(ctx, filePath, bytes.NewReader(envelope),
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Truncate(true),
		shell.FilesWrite.Parents(true))
	if err != nil {
		return fmt.Errorf("failed to write envelope to IPFS: %w", err)
	}

	s.log.Debug("Stored envelope in IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(envelope)))

	return nil
}

// Load reads the envelope from the slot's MFS file. Returns
// ErrEnvelopeNotFound if the slot is empty.
func (s *IPFSStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if !s.shell.IsUp() {
		s.log.Warn("IPFS node unavailable",
			slog.String("host", s.host),
			slog.String("port", s.port))
		return nil, interfaces.ErrStoreUnavailable
	}

	filePath := s.slotPath(slot)
	reader, err := s.shell.FilesRead(ctx, filePath)
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			s.log.Debug("Envelope not found in IPFS", slog.String("path", filePath))
			return nil, interfaces.ErrEnvelopeNotFound
		}
		return nil, fmt.Errorf("failed to read envelope from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read envelope from IPFS: %w", err)
	}

	s.log.Debug("Loaded envelope from IPFS",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Available checks if the IPFS node is accessible.
func (s *IPFSStore) Available(ctx context.Context) bool {
	return s.shell.IsUp()
}

// Name returns a unique identifier for this store.
func (s *IPFSStore) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", s.host, s.port)
}

// LocationURI returns the URI that identifies this store.
func (s *IPFSStore) LocationURI() string {
	return s.locationURI
}

// slotPath generates the MFS path for a slot.
func (s *IPFSStore) slotPath(slot string) string {
	return path.Join(s.basePath, slot+".sealed")
}
