package attestation

import (
	"crypto/x509"
	"errors"
	"fmt"
	"sync"

	"github.com/ZacharyEspiritu/tee-assertion-generator/cryptoutils"
	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
)

// Assertion is a signed statement over caller-supplied data, carrying the
// certificate chains a verifier needs to trust the signature.
type Assertion struct {
	// Payload is the caller-supplied data the assertion covers.
	Payload []byte `json:"payload"`

	// Signature is the attestation key's signature over Payload.
	Signature []byte `json:"signature"`

	// Scheme identifies the signature scheme.
	Scheme interfaces.SignatureScheme `json:"scheme"`

	// CertificateChains vouch for the attestation key, each rooted in a
	// different authority.
	CertificateChains []interfaces.CertificateChain `json:"certificate_chains"`
}

// AssertionGenerator serves assertions signed by the enclave's attestation
// key. It is the one stateful component in the service: the unsealed key
// and the current certificate chains, guarded for concurrent request
// handling. The sealed-secret core itself stays stateless.
type AssertionGenerator struct {
	mu     sync.RWMutex
	key    interfaces.SigningKey
	chains []interfaces.CertificateChain
}

// NewAssertionGenerator creates a generator serving the given unsealed key
// and certificate chains.
func NewAssertionGenerator(key interfaces.SigningKey, chains []interfaces.CertificateChain) (*AssertionGenerator, error) {
	if key == nil {
		return nil, errors.New("attestation key is required")
	}
	return &AssertionGenerator{key: key, chains: chains}, nil
}

// GenerateAssertion signs userData with the attestation key and attaches
// the current certificate chains.
func (g *AssertionGenerator) GenerateAssertion(userData []byte) (Assertion, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	signature, err := g.key.Sign(userData)
	if err != nil {
		return Assertion{}, fmt.Errorf("failed to sign assertion: %w", err)
	}

	chains := make([]interfaces.CertificateChain, len(g.chains))
	copy(chains, g.chains)

	return Assertion{
		Payload:           userData,
		Signature:         signature,
		Scheme:            g.key.GetSignatureScheme(),
		CertificateChains: chains,
	}, nil
}

// PublicKeyDER returns the attestation public key in PKIX DER form.
func (g *AssertionGenerator) PublicKeyDER() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	verifying, err := g.key.VerifyingKey()
	if err != nil {
		return nil, err
	}
	return verifying.SerializeToDER()
}

// VerifyingKey returns the public half of the attestation key.
func (g *AssertionGenerator) VerifyingKey() (interfaces.VerifyingKey, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.key.VerifyingKey()
}

// SigningKey returns the attestation key, for resealing on certificate
// updates.
func (g *AssertionGenerator) SigningKey() interfaces.SigningKey {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.key
}

// CertificateChains returns a copy of the current chains.
func (g *AssertionGenerator) CertificateChains() []interfaces.CertificateChain {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chains := make([]interfaces.CertificateChain, len(g.chains))
	copy(chains, g.chains)
	return chains
}

// ValidateCertificateChains checks that every chain certifies the current
// attestation public key, without touching the served chains.
func (g *AssertionGenerator) ValidateCertificateChains(chains []interfaces.CertificateChain) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.validateChains(chains)
}

func (g *AssertionGenerator) validateChains(chains []interfaces.CertificateChain) error {
	verifying, err := g.key.VerifyingKey()
	if err != nil {
		return err
	}
	pubDER, err := verifying.SerializeToDER()
	if err != nil {
		return err
	}

	for i, chain := range chains {
		if err := cryptoutils.VerifyAttestationKeyChain(chain, pubDER, nil); err != nil {
			return fmt.Errorf("certificate chain %d does not certify the attestation key: %w", i, err)
		}
	}
	return nil
}

// UpdateCertificateChains replaces the served chains after checking every
// chain certifies the current attestation public key. The caller reseals
// and persists the secret with the new chains before invoking this; the
// swap only changes what subsequent assertions carry.
func (g *AssertionGenerator) UpdateCertificateChains(chains []interfaces.CertificateChain) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.validateChains(chains); err != nil {
		return err
	}

	g.chains = chains
	return nil
}

// VerifyAssertion is the client-side check: the signature must verify
// under the leaf key of every chain, and every chain must verify to the
// caller's trusted roots. A nil root pool anchors each chain at its own
// last certificate, for callers that pin chains out of band.
func VerifyAssertion(assertion Assertion, roots *x509.CertPool) error {
	if len(assertion.CertificateChains) == 0 {
		return errors.New("assertion carries no certificate chains")
	}

	for i, chain := range assertion.CertificateChains {
		certs, err := cryptoutils.ParseChainCertificates(chain)
		if err != nil {
			return fmt.Errorf("certificate chain %d: %w", i, err)
		}

		leafDER, err := x509.MarshalPKIXPublicKey(certs[0].PublicKey)
		if err != nil {
			return fmt.Errorf("certificate chain %d: failed to serialize leaf key: %w", i, err)
		}
		if err := cryptoutils.VerifyAttestationKeyChain(chain, leafDER, roots); err != nil {
			return fmt.Errorf("certificate chain %d: %w", i, err)
		}

		leafKey, err := cryptoutils.VerifyingKeyFromDER(leafDER)
		if err != nil {
			return fmt.Errorf("certificate chain %d: %w", i, err)
		}
		if err := leafKey.Verify(assertion.Payload, assertion.Signature); err != nil {
			return fmt.Errorf("certificate chain %d: %w", i, err)
		}
	}
	return nil
}
