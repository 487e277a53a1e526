package interfaces

import (
	"errors"
	"fmt"
)

// SealingPolicy selects which enclave identity the sealing key is derived
// from, and therefore which enclaves can unseal the result.
type SealingPolicy int

const (
	// SealToSigner binds the sealing key to the enclave's code signer.
	// A secret sealed by one build can be unsealed by any build signed by
	// the same authority. This is the policy for long-lived identity
	// material that must survive upgrades.
	SealToSigner SealingPolicy = iota

	// SealToInstance binds the sealing key to this exact enclave instance.
	// No other build, even from the same signer, can unseal the result.
	SealToInstance
)

// String returns the policy name.
func (p SealingPolicy) String() string {
	switch p {
	case SealToSigner:
		return "signer"
	case SealToInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// SealingPolicyFromString parses a policy name.
func SealingPolicyFromString(s string) (SealingPolicy, error) {
	switch s {
	case "signer":
		return SealToSigner, nil
	case "instance":
		return SealToInstance, nil
	default:
		return SealToSigner, fmt.Errorf("unknown sealing policy %q", s)
	}
}

var (
	// ErrSealedEnvelopeTampered is returned when envelope authentication
	// fails on unseal: the ciphertext, the additional data, or the header
	// bytes were modified after sealing.
	ErrSealedEnvelopeTampered = errors.New("sealed envelope authentication failed")
)

// Sealer produces and consumes opaque sealed envelopes. A sealer knows how
// to derive a hardware-rooted sealing key, encrypt and authenticate a secret
// byte string, and authenticate without encrypting a second additional-data
// byte string.
//
// Implementations must be safe for concurrent use; callers perform no
// coordination around Seal and Unseal.
type Sealer interface {
	// DefaultHeader returns the sealer's default identity header. Callers
	// merge their own fields over it before sealing.
	DefaultHeader() SecretIdentity

	// Seal encrypts secret and binds header and additionalData to the
	// ciphertext. The returned envelope carries the serialized header and
	// the additional data in the clear.
	Seal(header SecretIdentity, additionalData, secret []byte) (SealedEnvelope, error)

	// Unseal authenticates the envelope and returns the decrypted secret.
	// Any modification of the envelope after sealing fails with
	// ErrSealedEnvelopeTampered.
	Unseal(env SealedEnvelope) ([]byte, error)
}
