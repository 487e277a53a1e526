package secrets

import (
	"testing"

	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeSigningKey(t *testing.T) {
	key, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)

	record, err := EncodeSigningKey(key)
	require.NoError(t, err)
	assert.Equal(t, interfaces.DEREncoding, record.Encoding)
	assert.Equal(t, interfaces.SigningKeyType, record.KeyType)
	assert.Equal(t, interfaces.EcdsaP256Sha256, record.SignatureScheme)

	decoded, err := DecodeSigningKey(record)
	require.NoError(t, err)

	// A signature from the decoded key verifies under the original's
	// public key, so the two are the same key.
	signature, err := decoded.Sign([]byte("attestation payload"))
	require.NoError(t, err)

	verifier, err := key.VerifyingKey()
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify([]byte("attestation payload"), signature))
}

func TestEncodeVerifyingKey(t *testing.T) {
	key, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)
	verifier, err := key.VerifyingKey()
	require.NoError(t, err)

	record, err := EncodeVerifyingKey(verifier)
	require.NoError(t, err)
	assert.Equal(t, interfaces.DEREncoding, record.Encoding)
	assert.Equal(t, interfaces.VerifyingKeyType, record.KeyType)
}

func TestDecodeSigningKeyRejectsBadRecords(t *testing.T) {
	key, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)
	valid, err := EncodeSigningKey(key)
	require.NoError(t, err)

	tests := []struct {
		name    string
		record  interfaces.KeyRecord
		wantErr error
		errText string
	}{
		{
			name: "verifying key type",
			record: interfaces.KeyRecord{
				KeyBytes:        valid.KeyBytes,
				Encoding:        interfaces.DEREncoding,
				KeyType:         interfaces.VerifyingKeyType,
				SignatureScheme: interfaces.EcdsaP256Sha256,
			},
			wantErr: interfaces.ErrInvalidArgument,
			errText: "verifying",
		},
		{
			name: "PEM encoding is recognized but unsupported",
			record: interfaces.KeyRecord{
				KeyBytes:        valid.KeyBytes,
				Encoding:        interfaces.PEMEncoding,
				KeyType:         interfaces.SigningKeyType,
				SignatureScheme: interfaces.EcdsaP256Sha256,
			},
			wantErr: interfaces.ErrUnimplemented,
			errText: "not supported",
		},
		{
			name: "unknown encoding",
			record: interfaces.KeyRecord{
				KeyBytes:        valid.KeyBytes,
				Encoding:        interfaces.UnknownEncoding,
				KeyType:         interfaces.SigningKeyType,
				SignatureScheme: interfaces.EcdsaP256Sha256,
			},
			wantErr: interfaces.ErrInvalidArgument,
			errText: "unknown encoding",
		},
		{
			name: "garbage DER bytes",
			record: interfaces.KeyRecord{
				KeyBytes:        []byte("not a DER key"),
				Encoding:        interfaces.DEREncoding,
				KeyType:         interfaces.SigningKeyType,
				SignatureScheme: interfaces.EcdsaP256Sha256,
			},
			wantErr: interfaces.ErrInvalidArgument,
			errText: "cannot create attestation key",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSigningKey(tc.record)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestCheckSecretIdentity(t *testing.T) {
	assert.NoError(t, CheckSecretIdentity(DefaultSecretIdentity()))

	badPurpose := DefaultSecretIdentity()
	badPurpose.Purpose = "Some Other Purpose"
	err := CheckSecretIdentity(badPurpose)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purpose")
}
