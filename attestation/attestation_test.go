package attestation

import (
	"bytes"
	"testing"

	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issueChainFor builds a one-CA chain certifying the given attestation
// public key, leaf first.
func issueChainFor(t *testing.T, pubDER []byte) interfaces.CertificateChain {
	t.Helper()

	caKey, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)

	caCert, err := cryptoutils.NewCACertificate("Test Assertion Authority", caKey)
	require.NoError(t, err)

	keyCert, err := cryptoutils.IssueKeyCertificate(caCert, caKey, pubDER, "Assertion Key")
	require.NoError(t, err)

	return interfaces.CertificateChain{
		Certificates: []interfaces.Certificate{keyCert, caCert},
	}
}

func newGenerator(t *testing.T, chains []interfaces.CertificateChain) *AssertionGenerator {
	t.Helper()

	key, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)

	generator, err := NewAssertionGenerator(key, chains)
	require.NoError(t, err)
	return generator
}

func TestNewAssertionGeneratorRequiresKey(t *testing.T) {
	_, err := NewAssertionGenerator(nil, nil)
	assert.Error(t, err)
}

func TestGenerateAndVerifyAssertion(t *testing.T) {
	generator := newGenerator(t, nil)

	pubDER, err := generator.PublicKeyDER()
	require.NoError(t, err)
	require.NoError(t, generator.UpdateCertificateChains([]interfaces.CertificateChain{issueChainFor(t, pubDER)}))

	userData := []byte("verifier nonce and transcript hash")
	assertion, err := generator.GenerateAssertion(userData)
	require.NoError(t, err)
	assert.Equal(t, userData, assertion.Payload)
	assert.Equal(t, interfaces.EcdsaP256Sha256, assertion.Scheme)
	require.Len(t, assertion.CertificateChains, 1)

	assert.NoError(t, VerifyAssertion(assertion, nil))

	// A flipped payload bit must fail verification.
	assertion.Payload[0] ^= 0x01
	assert.Error(t, VerifyAssertion(assertion, nil))
}

func TestVerifyAssertionRequiresChains(t *testing.T) {
	generator := newGenerator(t, nil)

	assertion, err := generator.GenerateAssertion([]byte("data"))
	require.NoError(t, err)
	assert.Error(t, VerifyAssertion(assertion, nil))
}

func TestUpdateCertificateChainsRejectsForeignKey(t *testing.T) {
	generator := newGenerator(t, nil)

	otherKey, err := cryptoutils.NewEcdsaP256SigningKey()
	require.NoError(t, err)
	otherVerifying, err := otherKey.VerifyingKey()
	require.NoError(t, err)
	otherDER, err := otherVerifying.SerializeToDER()
	require.NoError(t, err)

	err = generator.UpdateCertificateChains([]interfaces.CertificateChain{issueChainFor(t, otherDER)})
	require.Error(t, err)
	assert.Empty(t, generator.CertificateChains(), "rejected update must not change served chains")
}

func TestCertificateChainsReturnsCopy(t *testing.T) {
	generator := newGenerator(t, nil)

	pubDER, err := generator.PublicKeyDER()
	require.NoError(t, err)
	require.NoError(t, generator.UpdateCertificateChains([]interfaces.CertificateChain{issueChainFor(t, pubDER)}))

	chains := generator.CertificateChains()
	chains[0] = interfaces.CertificateChain{}
	assert.NotEmpty(t, generator.CertificateChains()[0].Certificates)
}

func TestBuildSignReportPayload(t *testing.T) {
	generator := newGenerator(t, nil)
	key, err := generator.VerifyingKey()
	require.NoError(t, err)

	payload, err := BuildSignReportPayload(key)
	require.NoError(t, err)
	assert.Contains(t, string(payload), SignReportPayloadVersion)
	assert.Contains(t, string(payload), AttestationKeyVersion)
	assert.Contains(t, string(payload), AttestationKeyPurpose)
}

func TestReportDataForSignReport(t *testing.T) {
	generator := newGenerator(t, nil)
	key, err := generator.VerifyingKey()
	require.NoError(t, err)

	payload, err := BuildSignReportPayload(key)
	require.NoError(t, err)

	reportData, err := ReportDataForSignReport(payload)
	require.NoError(t, err)
	assert.Len(t, reportData[:], interfaces.ReportDataSize)

	// Deterministic for the same payload.
	again, err := ReportDataForSignReport(payload)
	require.NoError(t, err)
	assert.Equal(t, reportData, again)

	// A different key yields a different digest but identical protocol
	// identifier suffix.
	otherGenerator := newGenerator(t, nil)
	otherKey, err := otherGenerator.VerifyingKey()
	require.NoError(t, err)
	otherPayload, err := BuildSignReportPayload(otherKey)
	require.NoError(t, err)
	otherReportData, err := ReportDataForSignReport(otherPayload)
	require.NoError(t, err)

	assert.NotEqual(t, reportData[:32], otherReportData[:32])
	assert.True(t, bytes.Equal(reportData[32:], otherReportData[32:]))
}

func TestReportDataGeneratorOutputLayout(t *testing.T) {
	generator := NewSignReportDataGenerator()

	out, err := generator.Generate([]byte("payload"))
	require.NoError(t, err)
	require.Len(t, out, interfaces.ReportDataSize)

	assert.Equal(t, signReportPurposeUUID[:], out[32:48])
	assert.Equal(t, generatorFamilyUUID[:], out[48:64])
}
