package attestation

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ZacharyEspiritu/tee-assertion-generator/secrets"
	"github.com/google/uuid"
)

// Protocol constants identifying the report-bound attestation public key.
// These strings are part of the wire protocol with the certifying enclave
// and must not change within a protocol version.
const (
	SignReportPayloadVersion = "PCE Sign Report v0.1"
	AttestationKeyVersion    = "Assertion Generator Enclave Attestation Key v0.1"
	AttestationKeyPurpose    = "Assertion Generator Enclave Attestation Key"
)

// AttestationPublicKey wraps the attestation verifying key with the fixed
// version and purpose tags identifying what the key is for.
type AttestationPublicKey struct {
	PublicKey interfaces.KeyRecord `json:"attestation_public_key"`
	Version   string               `json:"version"`
	Purpose   string               `json:"purpose"`
}

// SignReportPayload is the payload a certifying enclave attests to inside
// its hardware-signed report. Its serialized bytes, not the structure, are
// the security-relevant artifact.
type SignReportPayload struct {
	Version              string               `json:"version"`
	AttestationPublicKey AttestationPublicKey `json:"attestation_public_key"`
}

// BuildSignReportPayload serializes the attestation verifying key for
// binding into a certifying enclave's hardware report. The payload is
// built fresh per exchange and discarded once the report data is derived.
func BuildSignReportPayload(key interfaces.VerifyingKey) ([]byte, error) {
	record, err := secrets.EncodeVerifyingKey(key)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(SignReportPayload{
		Version: SignReportPayloadVersion,
		AttestationPublicKey: AttestationPublicKey{
			PublicKey: record,
			Version:   AttestationKeyVersion,
			Purpose:   AttestationKeyPurpose,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize sign report payload: %w", err)
	}
	return payload, nil
}

// Fixed UUIDs naming the report-data generator family and its variants.
// The variant IDs are baked into every generated digest, so reports bound
// for one protocol never verify against another.
var (
	generatorFamilyUUID = uuid.MustParse("4ab22a8a-3518-40a8-b532-2d26a4c0cbc4")

	// signReportPurposeUUID scopes report data to the sign-report
	// provisioning protocol.
	signReportPurposeUUID = uuid.MustParse("851b3a41-582c-4e9c-9050-1b2ee8b7d840")
)

// NamedReportDataGenerator derives the 64-byte report user-data field for
// one named protocol variant: the SHA-256 digest of the payload, the
// variant's purpose UUID, and the generator family UUID, concatenated.
type NamedReportDataGenerator struct {
	purposeID uuid.UUID
}

// NewSignReportDataGenerator returns the generator variant scoped to the
// sign-report provisioning protocol.
func NewSignReportDataGenerator() *NamedReportDataGenerator {
	return &NamedReportDataGenerator{purposeID: signReportPurposeUUID}
}

// Generate derives the report data bytes for the payload. The output
// length is always interfaces.ReportDataSize.
func (g *NamedReportDataGenerator) Generate(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)

	out := make([]byte, 0, interfaces.ReportDataSize)
	out = append(out, digest[:]...)
	out = append(out, g.purposeID[:]...)
	out = append(out, generatorFamilyUUID[:]...)
	return out, nil
}

// ReportDataForSignReport derives the fixed-size report data binding the
// serialized sign-report payload. A generated length other than the
// hardware report's user-data size means the generator and this protocol
// have drifted out of sync and is an internal error.
func ReportDataForSignReport(payload []byte) (interfaces.ReportData, error) {
	generator := NewSignReportDataGenerator()

	data, err := generator.Generate(payload)
	if err != nil {
		return interfaces.ReportData{}, err
	}

	if len(data) != interfaces.ReportDataSize {
		return interfaces.ReportData{}, fmt.Errorf("report data generator produced %d bytes, expected %d: %w",
			len(data), interfaces.ReportDataSize, interfaces.ErrInternal)
	}
	return interfaces.ReportDataFromBytes(data)
}
