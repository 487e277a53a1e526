package interfaces

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SecretIdentity is the domain-separation header scoping a sealed secret to
// one protocol. A sealed envelope whose header does not match the expected
// triple exactly on all three fields is rejected before any decryption work.
// Compared by value, never mutated after construction.
type SecretIdentity struct {
	Name    string `json:"secret_name"`
	Version string `json:"secret_version"`
	Purpose string `json:"secret_purpose"`
}

// Serialize encodes the identity for embedding into a sealed envelope header.
func (id SecretIdentity) Serialize() ([]byte, error) {
	return json.Marshal(id)
}

// ParseSecretIdentity decodes a serialized identity header.
func ParseSecretIdentity(data []byte) (SecretIdentity, error) {
	var id SecretIdentity
	if err := json.Unmarshal(data, &id); err != nil {
		return SecretIdentity{}, fmt.Errorf("malformed secret identity: %w", err)
	}
	return id, nil
}

// MergeOver returns the identity produced by laying id's non-empty fields
// over base. Caller fields win on conflict.
func (id SecretIdentity) MergeOver(base SecretIdentity) SecretIdentity {
	merged := base
	if id.Name != "" {
		merged.Name = id.Name
	}
	if id.Version != "" {
		merged.Version = id.Version
	}
	if id.Purpose != "" {
		merged.Purpose = id.Purpose
	}
	return merged
}

// Equal compares two identities field by field.
func (id SecretIdentity) Equal(other SecretIdentity) bool {
	return id.Name == other.Name && id.Version == other.Version && id.Purpose == other.Purpose
}

// KeyEncoding identifies the byte encoding of key material in a KeyRecord.
type KeyEncoding int

const (
	// UnknownEncoding is the zero value and never valid.
	UnknownEncoding KeyEncoding = iota
	// DEREncoding marks ASN.1 DER key bytes.
	DEREncoding
	// PEMEncoding marks PEM-armored key bytes. Recognized on the decode
	// path but not supported for key reconstruction.
	PEMEncoding
)

// String returns the encoding name.
func (e KeyEncoding) String() string {
	switch e {
	case DEREncoding:
		return "DER"
	case PEMEncoding:
		return "PEM"
	default:
		return "unknown"
	}
}

// KeyType distinguishes private signing material from public verifying material.
type KeyType int

const (
	// UnknownKeyType is the zero value and never valid.
	UnknownKeyType KeyType = iota
	// SigningKeyType marks private key material.
	SigningKeyType
	// VerifyingKeyType marks public key material.
	VerifyingKeyType
)

// String returns the key type name.
func (t KeyType) String() string {
	switch t {
	case SigningKeyType:
		return "signing"
	case VerifyingKeyType:
		return "verifying"
	default:
		return "unknown"
	}
}

// SignatureScheme identifies the algorithm a key signs or verifies with.
type SignatureScheme int

const (
	// UnknownSignatureScheme is the zero value and never valid.
	UnknownSignatureScheme SignatureScheme = iota
	// EcdsaP256Sha256 is ECDSA over NIST P-256 with SHA-256 digests.
	EcdsaP256Sha256
)

// String returns the scheme name.
func (s SignatureScheme) String() string {
	switch s {
	case EcdsaP256Sha256:
		return "ECDSA-P256-SHA256"
	default:
		return "unknown"
	}
}

// KeyRecord is the portable structured form of a signing or verifying key:
// raw key bytes plus enough metadata to reconstruct the live key. Only DER
// encoded records can be reconstructed; see the secrets package codec.
type KeyRecord struct {
	KeyBytes        []byte          `json:"key"`
	Encoding        KeyEncoding     `json:"encoding"`
	KeyType         KeyType         `json:"key_type"`
	SignatureScheme SignatureScheme `json:"signature_scheme"`
}

// CertificateFormat identifies the wire format of one certificate.
type CertificateFormat int

const (
	// UnknownCertificateFormat is the zero value and never valid.
	UnknownCertificateFormat CertificateFormat = iota
	// X509PEM marks a PEM-armored X.509 certificate.
	X509PEM
	// X509DER marks a DER-encoded X.509 certificate.
	X509DER
)

// String returns the format name.
func (f CertificateFormat) String() string {
	switch f {
	case X509PEM:
		return "x509-pem"
	case X509DER:
		return "x509-der"
	default:
		return "unknown"
	}
}

// Certificate is one certificate in a chain, tagged with its format.
type Certificate struct {
	Format CertificateFormat `json:"format"`
	Data   []byte            `json:"data"`
}

// CertificateChain is an ordered certificate sequence, leaf first, root last.
// Chains bound to a sealed secret are authenticated but not encrypted, and
// must round-trip through seal/unseal unchanged in content and order.
type CertificateChain struct {
	Certificates []Certificate `json:"certificates"`
}

// Equal compares two chains certificate by certificate, order sensitive.
func (c CertificateChain) Equal(other CertificateChain) bool {
	if len(c.Certificates) != len(other.Certificates) {
		return false
	}
	for i, cert := range c.Certificates {
		if cert.Format != other.Certificates[i].Format {
			return false
		}
		if !bytes.Equal(cert.Data, other.Certificates[i].Data) {
			return false
		}
	}
	return true
}

// SealedEnvelope is the opaque, persistable sealed unit. Header holds the
// serialized SecretIdentity, AdditionalData is authenticated cleartext, and
// Ciphertext is the sealer's opaque encrypted blob. The envelope is produced
// by sealing and consumed only by unsealing, typically after a round trip
// through untrusted storage.
type SealedEnvelope struct {
	Header         []byte `json:"sealed_header"`
	AdditionalData []byte `json:"additional_data,omitempty"`
	Ciphertext     []byte `json:"ciphertext"`
}

// Serialize encodes the envelope for persistence.
func (e SealedEnvelope) Serialize() ([]byte, error) {
	return json.Marshal(e)
}

// ParseSealedEnvelope decodes a persisted envelope.
func ParseSealedEnvelope(data []byte) (SealedEnvelope, error) {
	var env SealedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return SealedEnvelope{}, fmt.Errorf("malformed sealed envelope: %w", err)
	}
	return env, nil
}

// ReportDataSize is the exact length of a hardware report's user-data field.
const ReportDataSize = 64

// ReportData is the fixed-size user-data field embedded into a
// hardware-attested report.
type ReportData [ReportDataSize]byte

// ReportDataFromBytes converts a byte slice of exactly ReportDataSize bytes.
func ReportDataFromBytes(source []byte) (ReportData, error) {
	if len(source) != ReportDataSize {
		return ReportData{}, fmt.Errorf("invalid report data length %d, expected %d", len(source), ReportDataSize)
	}
	var rd ReportData
	copy(rd[:], source)
	return rd, nil
}

// Bytes returns the raw 64 bytes.
func (rd ReportData) Bytes() []byte {
	return rd[:]
}

// String returns hex representation.
func (rd ReportData) String() string {
	return hex.EncodeToString(rd[:])
}

// Measurement is a 32-byte enclave measurement value: a code-signer
// measurement, an instance measurement, or a digest collapsing a register
// map into one comparable value.
type Measurement [32]byte

// NewMeasurementFromBytes creates a measurement from exactly 32 bytes.
func NewMeasurementFromBytes(source []byte) (Measurement, error) {
	if len(source) != 32 {
		return Measurement{}, errors.New("invalid measurement conversion from bytes: incorrect length")
	}
	var m Measurement
	copy(m[:], source)
	return m, nil
}

// NewMeasurementFromHex creates a measurement from a 64-character hex string,
// with or without a 0x prefix.
func NewMeasurementFromHex(source string) (Measurement, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return Measurement{}, errors.New("invalid measurement length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return Measurement{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var m Measurement
	copy(m[:], raw)
	return m, nil
}

// MeasurementFromRegisters collapses a register-index to hex-value map into
// one measurement by hashing the registers in index order. The same register
// contents always produce the same measurement.
func MeasurementFromRegisters(registers map[int]string) Measurement {
	indices := make([]int, 0, len(registers))
	for i := range registers {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	h := sha256.New()
	for _, i := range indices {
		fmt.Fprintf(h, "%d=%s;", i, registers[i])
	}

	var m Measurement
	copy(m[:], h.Sum(nil))
	return m
}

// String returns hex representation.
func (m Measurement) String() string {
	return hex.EncodeToString(m[:])
}

// Bytes returns the raw 32 bytes.
func (m Measurement) Bytes() []byte {
	return m[:]
}

// Equal compares two measurements.
func (m Measurement) Equal(other Measurement) bool {
	return bytes.Equal(m[:], other[:])
}

// OperatorAddress is the 20-byte identity of an operator authorized to
// endorse administrative requests.
type OperatorAddress [20]byte

// NewOperatorAddressFromBytes creates an address from exactly 20 bytes.
func NewOperatorAddressFromBytes(source []byte) (OperatorAddress, error) {
	if len(source) != 20 {
		return OperatorAddress{}, errors.New("invalid operator address conversion from bytes: incorrect length")
	}
	var addr OperatorAddress
	copy(addr[:], source)
	return addr, nil
}

// NewOperatorAddressFromHex creates an address from a 40-character hex
// string, with or without a 0x prefix.
func NewOperatorAddressFromHex(source string) (OperatorAddress, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 40 {
		return OperatorAddress{}, errors.New("invalid operator address length: hex string must be 40 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return OperatorAddress{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var addr OperatorAddress
	copy(addr[:], raw)
	return addr, nil
}

// String returns 0x-prefixed hex representation.
func (addr OperatorAddress) String() string {
	return "0x" + hex.EncodeToString(addr[:])
}

// Bytes returns the raw 20 bytes.
func (addr OperatorAddress) Bytes() []byte {
	return addr[:]
}
