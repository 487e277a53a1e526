package secrets

import (
	"encoding/json"
	"fmt"

	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// ProtectedPayload is the confidential content of a sealed secret: the
// attestation key in record form. It exists only transiently in memory
// during seal and unseal and is never persisted in cleartext.
type ProtectedPayload struct {
	AttestationKey interfaces.KeyRecord `json:"attestation_key"`
}

// BoundCertificateData is the authenticated, cleartext half of a sealed
// secret: the certificate chains vouching for the attestation key. It is
// cryptographically bound to the ciphertext but readable without unsealing.
type BoundCertificateData struct {
	CertificateChains []interfaces.CertificateChain `json:"certificate_chains"`
}

// Seal protects the attestation key and binds the certificate chains into
// one sealed envelope.
//
// The caller identity is merged over the sealer's default header, caller
// fields winning. Zero certificate chains is legal; the bound data then
// records an empty sequence. On any failure no partial envelope is
// returned, and every buffer holding private key bytes is scrubbed.
func Seal(sealer interfaces.Sealer, identity interfaces.SecretIdentity, chains []interfaces.CertificateChain, key interfaces.SigningKey) (interfaces.SealedEnvelope, error) {
	header := identity.MergeOver(sealer.DefaultHeader())

	record, err := EncodeSigningKey(key)
	if err != nil {
		return interfaces.SealedEnvelope{}, err
	}
	defer cryptoutils.Zeroize(record.KeyBytes)

	secretBytes, err := json.Marshal(ProtectedPayload{AttestationKey: record})
	if err != nil || len(secretBytes) == 0 {
		return interfaces.SealedEnvelope{}, fmt.Errorf("enclave secret serialization failed: %w", interfaces.ErrInternal)
	}
	defer cryptoutils.Zeroize(secretBytes)

	aadBytes, err := json.Marshal(BoundCertificateData{CertificateChains: chains})
	if err != nil || len(aadBytes) == 0 {
		return interfaces.SealedEnvelope{}, fmt.Errorf("enclave additional authenticated data serialization failed: %w", interfaces.ErrInternal)
	}

	env, err := sealer.Seal(header, aadBytes, secretBytes)
	if err != nil {
		return interfaces.SealedEnvelope{}, err
	}
	return env, nil
}

// Unseal reopens a sealed envelope, returning the attestation key and the
// certificate chains in their original order.
//
// The header is parsed and validated before the sealer is invoked: an
// envelope sealed under any other identity is rejected without touching
// its ciphertext. Sealer authentication failures propagate unchanged.
func Unseal(sealer interfaces.Sealer, env interfaces.SealedEnvelope) (interfaces.SigningKey, []interfaces.CertificateChain, error) {
	headerID, err := interfaces.ParseSecretIdentity(env.Header)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot parse the sealed secret header: %w", interfaces.ErrInvalidArgument)
	}
	if err := CheckSecretIdentity(headerID); err != nil {
		return nil, nil, err
	}

	plaintext, err := sealer.Unseal(env)
	if err != nil {
		return nil, nil, err
	}
	defer cryptoutils.Zeroize(plaintext)

	var payload ProtectedPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, nil, fmt.Errorf("cannot parse the sealed secret: %w", interfaces.ErrInvalidArgument)
	}
	defer cryptoutils.Zeroize(payload.AttestationKey.KeyBytes)

	var bound BoundCertificateData
	if err := json.Unmarshal(env.AdditionalData, &bound); err != nil {
		return nil, nil, fmt.Errorf("cannot parse the additional authenticated data: %w", interfaces.ErrInvalidArgument)
	}

	key, err := DecodeSigningKey(payload.AttestationKey)
	if err != nil {
		return nil, nil, err
	}

	return key, bound.CertificateChains, nil
}
