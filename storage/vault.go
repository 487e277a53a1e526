package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/hashicorp/vault/api"
)

// VaultStore implements an envelope store using HashiCorp Vault's KV v2
// engine. Vault only ever sees opaque sealed blobs; the sealing key never
// leaves the enclave.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault-backed envelope store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault authentication token
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "assertion-generator")
//   - log: structured logger
func NewVaultStore(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

// Save writes the envelope into the slot's KV entry, replacing any
// previous envelope stored there.
func (s *VaultStore) Save(ctx context.Context, slot string, envelope []byte) error {
	path := s.slotPath(slot)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"envelope": base64.StdEncoding.EncodeToString(envelope),
		},
	}

	_, err := s.client.Logical().WriteWithContext(ctx, path, secretData)
	if err != nil {
		s.log.Error("Failed to write envelope to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored envelope in Vault",
		slog.String("path", path),
		slog.Int("size", len(envelope)))

	return nil
}

// Load reads the envelope from the slot's KV entry. Returns
// ErrEnvelopeNotFound if the slot is empty.
func (s *VaultStore) Load(ctx context.Context, slot string) ([]byte, error) {
	start := time.Now()
	path := s.slotPath(slot)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read envelope from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		s.log.Debug("Envelope not found in Vault", slog.String("path", path))
		return nil, interfaces.ErrEnvelopeNotFound
	}

	// KV v2 nests the payload under a "data" key.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}
	encoded, ok := data["envelope"].(string)
	if !ok {
		return nil, fmt.Errorf("envelope key not found in Vault data")
	}

	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid envelope encoding in Vault data: %w", err)
	}

	s.log.Debug("Loaded envelope from Vault",
		slog.String("path", path),
		slog.Int("size", len(envelope)),
		slog.Duration("duration", time.Since(start)))

	return envelope, nil
}

// Available checks if Vault is initialized and unsealed via its health
// endpoint.
func (s *VaultStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this store.
func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

// LocationURI returns the URI that identifies this store.
func (s *VaultStore) LocationURI() string {
	return s.locationURI
}

// slotPath generates the KV v2 data path for a slot.
func (s *VaultStore) slotPath(slot string) string {
	return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.dataPath, slot)
}
