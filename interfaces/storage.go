package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// StorageBackendLocation represents URI for a storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("invalid URI format: %w", err)
	}

	// Validate scheme is supported
	scheme := parsed.Scheme
	switch scheme {
	case "file", "s3", "ipfs", "vault":
		// Valid scheme
	default:
		return StorageBackendLocation{}, fmt.Errorf("unsupported storage scheme: %s", scheme)
	}

	// Parse authentication info if present
	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// IsFile checks if this is a file system storage location.
func (loc StorageBackendLocation) IsFile() bool {
	return loc.Scheme == "file"
}

// IsS3 checks if this is an S3 storage location.
func (loc StorageBackendLocation) IsS3() bool {
	return loc.Scheme == "s3"
}

// IsIPFS checks if this is an IPFS storage location.
func (loc StorageBackendLocation) IsIPFS() bool {
	return loc.Scheme == "ipfs"
}

// IsVault checks if this is a Vault storage location.
func (loc StorageBackendLocation) IsVault() bool {
	return loc.Scheme == "vault"
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrEnvelopeNotFound is returned when no envelope exists in the
	// requested slot of a storage backend.
	ErrEnvelopeNotFound = errors.New("sealed envelope not found")

	// ErrStoreUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrStoreUnavailable = errors.New("envelope store unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// EnvelopeStore persists sealed envelopes in named slots on untrusted
// storage. Envelopes are opaque ciphertext; a store never sees key material.
type EnvelopeStore interface {
	// Save writes an envelope into the named slot, replacing any previous
	// envelope stored there.
	Save(ctx context.Context, slot string, envelope []byte) error

	// Load reads the envelope from the named slot. Returns
	// ErrEnvelopeNotFound if the slot is empty.
	Load(ctx context.Context, slot string) ([]byte, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates envelope stores.
type StorageBackendFactory interface {
	// StorageBackendFor creates a store from URI.
	// Supports file://, s3://, ipfs://, vault://
	StorageBackendFor(locationURI StorageBackendLocation) (EnvelopeStore, error)

	// CreateMultiStore creates an aggregated store replicating across
	// all given locations.
	CreateMultiStore(locationURIs []StorageBackendLocation) (EnvelopeStore, error)
}
