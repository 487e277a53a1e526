package cryptoutils

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// EcdsaP256SigningKey implements interfaces.SigningKey with ECDSA over NIST
// P-256 and SHA-256 message digests, the scheme the assertion protocol uses
// for attestation keys. Private keys serialize to SEC 1 DER, public keys to
// PKIX DER.
type EcdsaP256SigningKey struct {
	priv *ecdsa.PrivateKey
}

// EcdsaP256VerifyingKey implements interfaces.VerifyingKey for the same scheme.
type EcdsaP256VerifyingKey struct {
	pub *ecdsa.PublicKey
}

// NewEcdsaP256SigningKey generates a fresh random P-256 signing key.
func NewEcdsaP256SigningKey() (*EcdsaP256SigningKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate P-256 key: %w", err)
	}
	return &EcdsaP256SigningKey{priv: priv}, nil
}

// SigningKeyFromDER reconstructs a signing key from its SEC 1 DER encoding.
func SigningKeyFromDER(der []byte) (*EcdsaP256SigningKey, error) {
	priv, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC private key: %w", err)
	}
	if priv.Curve != elliptic.P256() {
		return nil, errors.New("unexpected curve: only P-256 signing keys are supported")
	}
	return &EcdsaP256SigningKey{priv: priv}, nil
}

// VerifyingKeyFromDER reconstructs a verifying key from its PKIX DER encoding.
func VerifyingKeyFromDER(der []byte) (*EcdsaP256VerifyingKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected public key type %T", parsed)
	}
	if pub.Curve != elliptic.P256() {
		return nil, errors.New("unexpected curve: only P-256 verifying keys are supported")
	}
	return &EcdsaP256VerifyingKey{pub: pub}, nil
}

// SerializeToDER returns the SEC 1 DER encoding of the private key.
func (k *EcdsaP256SigningKey) SerializeToDER() ([]byte, error) {
	return x509.MarshalECPrivateKey(k.priv)
}

// GetSignatureScheme identifies the scheme this key signs with.
func (k *EcdsaP256SigningKey) GetSignatureScheme() interfaces.SignatureScheme {
	return interfaces.EcdsaP256Sha256
}

// Sign signs the SHA-256 digest of message, returning an ASN.1 DER signature.
func (k *EcdsaP256SigningKey) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig, err := ecdsa.SignASN1(rand.Reader, k.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing failed: %w", err)
	}
	return sig, nil
}

// VerifyingKey returns the public half of this key.
func (k *EcdsaP256SigningKey) VerifyingKey() (interfaces.VerifyingKey, error) {
	return &EcdsaP256VerifyingKey{pub: &k.priv.PublicKey}, nil
}

// Signer exposes the underlying key for X.509 certificate issuance.
func (k *EcdsaP256SigningKey) Signer() crypto.Signer {
	return k.priv
}

// SerializeToDER returns the PKIX DER encoding of the public key.
func (k *EcdsaP256VerifyingKey) SerializeToDER() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k.pub)
}

// GetSignatureScheme identifies the scheme this key verifies with.
func (k *EcdsaP256VerifyingKey) GetSignatureScheme() interfaces.SignatureScheme {
	return interfaces.EcdsaP256Sha256
}

// Verify checks an ASN.1 DER signature over the SHA-256 digest of message.
func (k *EcdsaP256VerifyingKey) Verify(message, signature []byte) error {
	digest := sha256.Sum256(message)
	if !ecdsa.VerifyASN1(k.pub, digest[:], signature) {
		return errors.New("signature verification failed")
	}
	return nil
}

// PublicKey exposes the underlying ECDSA public key for comparisons.
func (k *EcdsaP256VerifyingKey) PublicKey() *ecdsa.PublicKey {
	return k.pub
}
