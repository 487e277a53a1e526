// Package cryptoutils provides the cryptographic building blocks for the
// assertion generator service.
//
// This package implements the concrete asymmetric key pair used as the
// enclave's attestation key, certificate chain handling for the material
// that vouches for that key, and the attestation providers that produce
// hardware quotes binding a report-data value to this instance.
//
// # Attestation Keys
//
// EcdsaP256SigningKey and EcdsaP256VerifyingKey implement the
// interfaces.SigningKey and interfaces.VerifyingKey contracts with ECDSA
// over NIST P-256 and SHA-256 message digests:
//
//   - Private keys serialize to SEC 1 DER (SigningKeyFromDER reconstructs)
//   - Public keys serialize to PKIX DER (VerifyingKeyFromDER reconstructs)
//   - Signatures are ASN.1 DER encoded
//
// # Certificate Chains
//
// ParseChainCertificates and VerifyAttestationKeyChain handle the ordered,
// leaf-first certificate chains bound to a sealed secret. Chain verification
// checks both the X.509 path and that the leaf certifies exactly the
// expected attestation public key, byte for byte.
//
// NewCACertificate and IssueKeyCertificate support operator tooling that
// issues chains over a freshly generated attestation key.
//
// # Attestation
//
// AttestationProvider implementations produce hardware quotes over a 64-byte
// report data value: DCAPAttestationProvider uses the local TDX guest
// device, RemoteAttestationProvider calls a quote provider service, and
// DummyAttestationProvider supports development outside any TEE.
// VerifyDCAPAttestation checks a quote and extracts its measurement
// registers.
//
// # Key Hygiene
//
// Zeroize and ZeroizeAll scrub buffers holding private key material.
// Deferred at the point a buffer is created, they run on every exit path,
// so an early error return cannot leave key bytes behind.
package cryptoutils
