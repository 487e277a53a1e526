package cryptoutils

import (
	"testing"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningKeyDERRoundTrip(t *testing.T) {
	key, err := NewEcdsaP256SigningKey()
	require.NoError(t, err)

	der, err := key.SerializeToDER()
	require.NoError(t, err)

	restored, err := SigningKeyFromDER(der)
	require.NoError(t, err)

	// The restored key signs; the original key's public half verifies.
	signature, err := restored.Sign([]byte("message"))
	require.NoError(t, err)

	verifying, err := key.VerifyingKey()
	require.NoError(t, err)
	assert.NoError(t, verifying.Verify([]byte("message"), signature))

	_, err = SigningKeyFromDER([]byte("garbage"))
	assert.Error(t, err)
}

func TestVerifyingKeyDERRoundTrip(t *testing.T) {
	key, err := NewEcdsaP256SigningKey()
	require.NoError(t, err)
	verifying, err := key.VerifyingKey()
	require.NoError(t, err)

	der, err := verifying.SerializeToDER()
	require.NoError(t, err)

	restored, err := VerifyingKeyFromDER(der)
	require.NoError(t, err)
	assert.Equal(t, interfaces.EcdsaP256Sha256, restored.GetSignatureScheme())

	signature, err := key.Sign([]byte("message"))
	require.NoError(t, err)
	assert.NoError(t, restored.Verify([]byte("message"), signature))
	assert.Error(t, restored.Verify([]byte("other message"), signature))
}

func TestZeroize(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	Zeroize(buf)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, buf)

	Zeroize(nil)
}

func TestVerifyAttestationKeyChain(t *testing.T) {
	caKey, err := NewEcdsaP256SigningKey()
	require.NoError(t, err)
	caCert, err := NewCACertificate("Test CA", caKey)
	require.NoError(t, err)

	key, err := NewEcdsaP256SigningKey()
	require.NoError(t, err)
	verifying, err := key.VerifyingKey()
	require.NoError(t, err)
	pubDER, err := verifying.SerializeToDER()
	require.NoError(t, err)

	keyCert, err := IssueKeyCertificate(caCert, caKey, pubDER, "Attestation Key")
	require.NoError(t, err)

	chain := interfaces.CertificateChain{Certificates: []interfaces.Certificate{keyCert, caCert}}
	assert.NoError(t, VerifyAttestationKeyChain(chain, pubDER, nil))

	// A chain over a different key must not verify for this one.
	otherKey, err := NewEcdsaP256SigningKey()
	require.NoError(t, err)
	otherVerifying, err := otherKey.VerifyingKey()
	require.NoError(t, err)
	otherDER, err := otherVerifying.SerializeToDER()
	require.NoError(t, err)
	assert.Error(t, VerifyAttestationKeyChain(chain, otherDER, nil))

	// An empty chain never verifies.
	assert.Error(t, VerifyAttestationKeyChain(interfaces.CertificateChain{}, pubDER, nil))
}
