package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// EnvelopeStoreFactory creates envelope stores from URI strings and
// aggregates them into replicating multi-stores.
type EnvelopeStoreFactory struct {
	log *slog.Logger
}

// NewEnvelopeStoreFactory creates a new factory instance.
func NewEnvelopeStoreFactory(logger *slog.Logger) *EnvelopeStoreFactory {
	return &EnvelopeStoreFactory{
		log: logger,
	}
}

// StorageBackendFor creates an envelope store from a location URI.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node MFS storage
//   - vault:// - HashiCorp Vault KV v2 storage
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *EnvelopeStoreFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.EnvelopeStore, error) {
	u, err := url.Parse(location.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ipfs":
		return sf.createIPFSStore(u)
	case "s3":
		return sf.createS3Store(u)
	case "vault":
		return sf.createVaultStore(u)
	case "file":
		return sf.createFileStore(u)
	default:
		return nil, fmt.Errorf("unsupported store scheme: %s", u.Scheme)
	}
}

// CreateMultiStore creates a replicating multi-store from a list of
// location URIs. Envelopes save to all available stores and load from the
// first one that has them. Returns an error if no valid store could be
// created from the provided URIs.
func (sf *EnvelopeStoreFactory) CreateMultiStore(locations []interfaces.StorageBackendLocation) (interfaces.EnvelopeStore, error) {
	stores := make([]interfaces.EnvelopeStore, 0, len(locations))

	for _, location := range locations {
		store, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create envelope store",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no valid envelope stores created")
	}

	return NewMultiStore(stores, sf.log), nil
}

// createIPFSStore creates an IPFS MFS envelope store.
// URI format: ipfs://host:port/base/path
func (sf *EnvelopeStoreFactory) createIPFSStore(u *url.URL) (interfaces.EnvelopeStore, error) {
	sf.log.Debug("Creating IPFS store", slog.String("uri", u.String()))

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "5001"
	}

	basePath := u.Path
	if basePath == "" || basePath == "/" {
		basePath = "/assertion-generator"
	}

	return NewIPFSStore(host, port, basePath, sf.log)
}

// createS3Store creates an S3 or S3-compatible envelope store.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
// Without embedded credentials the environment's credential chain is used.
func (sf *EnvelopeStoreFactory) createS3Store(u *url.URL) (interfaces.EnvelopeStore, error) {
	sf.log.Debug("Creating S3 store", slog.String("uri", u.String()))

	bucketName := u.Host
	prefix := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
		sf.log.Debug("Using embedded S3 credentials")
	} else {
		sf.log.Debug("No credentials in URI, using the environment credential chain")
	}

	return NewS3Store(bucketName, prefix, region, endpoint, accessKey, secretKey, sf.log)
}

// createVaultStore creates a Vault KV v2 envelope store.
// URI format: vault://host:port/mount/data/path?token=...&tls=true
func (sf *EnvelopeStoreFactory) createVaultStore(u *url.URL) (interfaces.EnvelopeStore, error) {
	sf.log.Debug("Creating Vault store", slog.String("uri", u.String()))

	scheme := "https"
	if u.Query().Get("tls") == "false" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid Vault URI, expected vault://host/mount/path: %s", u.String())
	}

	token := u.Query().Get("token")

	return NewVaultStore(address, token, parts[0], parts[1], sf.log)
}

// createFileStore creates a file system envelope store.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *EnvelopeStoreFactory) createFileStore(u *url.URL) (interfaces.EnvelopeStore, error) {
	sf.log.Debug("Creating file store", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("empty path in file URI: %s", u.String())
	}

	return NewFileStore(path, sf.log)
}
