package sealing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// RootSecretSize is the size of a generated root secret.
const RootSecretSize = 32

// GenerateRootSecret creates a fresh random root secret.
func GenerateRootSecret() ([]byte, error) {
	secret := make([]byte, RootSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate root secret: %w", err)
	}
	return secret, nil
}

// RootSecretFromHex decodes a root secret from a hex string, with or
// without a 0x prefix. For development use only; production deployments
// load the root secret from a file, a TPM-sealed blob, or recombined
// Shamir shares.
func RootSecretFromHex(source string) ([]byte, error) {
	secret, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(source), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid root secret hex: %w", err)
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("root secret must be at least 32 bytes, got %d", len(secret))
	}
	return secret, nil
}

// RootSecretFromFile loads a hex-encoded root secret from a file.
func RootSecretFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read root secret file: %w", err)
	}
	return RootSecretFromHex(string(data))
}
