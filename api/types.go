package api

import (
	"encoding/json"
	"fmt"

	"github.com/ZacharyEspiritu/tee-assertion-generator/attestation"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ethereum/go-ethereum/crypto"
)

// AssertionProvider defines the interface for assertion generation
// services. It abstracts the process of obtaining a signed assertion over
// caller-supplied data from an assertion generator enclave.
type AssertionProvider interface {
	// GenerateAssertion requests an assertion over the given payload.
	GenerateAssertion(payload []byte) (*attestation.Assertion, error)
}

// AssertionRequest carries the data the caller wants asserted.
type AssertionRequest struct {
	// Payload is the caller-supplied data to sign.
	Payload []byte `json:"payload"`
}

// AssertionResponse carries a generated assertion.
type AssertionResponse struct {
	Assertion attestation.Assertion `json:"assertion"`
}

// CertificationResponse exposes everything a certifier needs to issue
// certificate chains for the attestation key: the serialized sign-report
// payload, the report data derived from it, and a hardware quote binding
// that report data.
type CertificationResponse struct {
	// SignReportPayload is the serialized payload the quote attests to.
	SignReportPayload []byte `json:"sign_report_payload"`

	// ReportData is the 64-byte digest embedded in the quote's user-data
	// field, derived from SignReportPayload.
	ReportData []byte `json:"report_data"`

	// AttestationType identifies the quoting mechanism.
	AttestationType string `json:"attestation_type"`

	// Quote is the hardware-signed report over ReportData.
	Quote []byte `json:"quote"`
}

// CertificateUpdateRequest replaces the certificate chains bound to the
// sealed attestation key. The request must be endorsed by an authorized
// operator.
type CertificateUpdateRequest struct {
	// CertificateChains are the new chains; each must certify the current
	// attestation public key.
	CertificateChains []interfaces.CertificateChain `json:"certificate_chains"`

	// OperatorSignature is a secp256k1 signature over the keccak256 hash
	// of the canonical request bytes.
	OperatorSignature []byte `json:"operator_signature"`
}

// CanonicalBytes returns the deterministic byte encoding of the request
// content that operator endorsements sign.
func (r CertificateUpdateRequest) CanonicalBytes() ([]byte, error) {
	data, err := json.Marshal(r.CertificateChains)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize certificate chains: %w", err)
	}
	return data, nil
}

// SignUpdateRequest endorses the request with the operator's secp256k1
// private key, filling in OperatorSignature.
func SignUpdateRequest(r *CertificateUpdateRequest, privKeyHex string) error {
	privateKey, err := crypto.HexToECDSA(privKeyHex)
	if err != nil {
		return fmt.Errorf("failed to parse operator private key: %w", err)
	}

	canonical, err := r.CanonicalBytes()
	if err != nil {
		return err
	}

	signature, err := crypto.Sign(crypto.Keccak256(canonical), privateKey)
	if err != nil {
		return fmt.Errorf("failed to sign update request: %w", err)
	}

	r.OperatorSignature = signature
	return nil
}

// RecoverOperator recovers the endorsing operator's address from the
// request signature.
func RecoverOperator(r CertificateUpdateRequest) (interfaces.OperatorAddress, error) {
	canonical, err := r.CanonicalBytes()
	if err != nil {
		return interfaces.OperatorAddress{}, err
	}

	pubkey, err := crypto.SigToPub(crypto.Keccak256(canonical), r.OperatorSignature)
	if err != nil {
		return interfaces.OperatorAddress{}, fmt.Errorf("failed to recover operator from signature: %w", err)
	}

	return interfaces.NewOperatorAddressFromBytes(crypto.PubkeyToAddress(*pubkey).Bytes())
}
