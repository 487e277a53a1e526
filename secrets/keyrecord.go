package secrets

import (
	"fmt"

	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// EncodeSigningKey converts a live signing key into its portable record:
// DER key bytes, signing key type, and the key's own signature scheme.
func EncodeSigningKey(key interfaces.SigningKey) (interfaces.KeyRecord, error) {
	der, err := key.SerializeToDER()
	if err != nil {
		return interfaces.KeyRecord{}, fmt.Errorf("failed to serialize signing key: %w", err)
	}
	return interfaces.KeyRecord{
		KeyBytes:        der,
		Encoding:        interfaces.DEREncoding,
		KeyType:         interfaces.SigningKeyType,
		SignatureScheme: key.GetSignatureScheme(),
	}, nil
}

// EncodeVerifyingKey converts a live verifying key into its portable record.
func EncodeVerifyingKey(key interfaces.VerifyingKey) (interfaces.KeyRecord, error) {
	der, err := key.SerializeToDER()
	if err != nil {
		return interfaces.KeyRecord{}, fmt.Errorf("failed to serialize verifying key: %w", err)
	}
	return interfaces.KeyRecord{
		KeyBytes:        der,
		Encoding:        interfaces.DEREncoding,
		KeyType:         interfaces.VerifyingKeyType,
		SignatureScheme: key.GetSignatureScheme(),
	}, nil
}

// DecodeSigningKey reconstructs a live signing key from its record form.
//
// Only signing-typed, DER-encoded records reconstruct. PEM is recognized
// but deliberately unsupported, kept distinct from the unknown-encoding
// case so a future PEM implementation has a marked slot.
func DecodeSigningKey(record interfaces.KeyRecord) (interfaces.SigningKey, error) {
	if record.KeyType != interfaces.SigningKeyType {
		return nil, fmt.Errorf("key record holds a %s key, expected a signing key: %w",
			record.KeyType, interfaces.ErrInvalidArgument)
	}

	switch record.Encoding {
	case interfaces.DEREncoding:
		key, err := cryptoutils.SigningKeyFromDER(record.KeyBytes)
		if err != nil {
			return nil, fmt.Errorf("cannot create attestation key from DER: %v: %w",
				err, interfaces.ErrInvalidArgument)
		}
		return key, nil
	case interfaces.PEMEncoding:
		return nil, fmt.Errorf("create attestation key from a PEM-encoded key is not supported: %w",
			interfaces.ErrUnimplemented)
	default:
		return nil, fmt.Errorf("key record has unknown encoding format: %w",
			interfaces.ErrInvalidArgument)
	}
}
