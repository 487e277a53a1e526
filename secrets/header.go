package secrets

import (
	"fmt"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// The fixed identity triple scoping sealed attestation key secrets. Every
// sealed envelope carries these three values in its header, and unsealing
// rejects any envelope that does not match all three exactly.
const (
	SecretName    = "Assertion Generator Enclave Secret"
	SecretVersion = "Assertion Generator Enclave Secret v0.1"
	SecretPurpose = "Assertion Generator Enclave Attestation Key and Certificates"
)

// DefaultSecretIdentity returns the fixed identity triple for this protocol.
func DefaultSecretIdentity() interfaces.SecretIdentity {
	return interfaces.SecretIdentity{
		Name:    SecretName,
		Version: SecretVersion,
		Purpose: SecretPurpose,
	}
}

// CheckSecretIdentity verifies a candidate header matches the fixed triple,
// field by field. Each mismatched field produces its own distinct error.
func CheckSecretIdentity(id interfaces.SecretIdentity) error {
	if id.Name != SecretName {
		return fmt.Errorf("invalid sealed secret header: incorrect secret name: %w", interfaces.ErrInvalidArgument)
	}
	if id.Version != SecretVersion {
		return fmt.Errorf("invalid sealed secret header: incorrect secret version: %w", interfaces.ErrInvalidArgument)
	}
	if id.Purpose != SecretPurpose {
		return fmt.Errorf("invalid sealed secret header: incorrect secret purpose: %w", interfaces.ErrInvalidArgument)
	}
	return nil
}
