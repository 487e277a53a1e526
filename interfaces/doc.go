// Package interfaces defines the core interfaces and types for the
// assertion generator service, separating interface definitions from
// implementations.
//
// # Sealing Interfaces
//
// Sealer: Produces and consumes opaque sealed envelopes. A sealer binds a
// confidential secret, cleartext additional data, and a serialized identity
// header into one tamper-evident unit under a hardware-derived sealing key.
//
// EnvelopeStore: Persists sealed envelopes to untrusted storage across
// multiple backend types (file, S3, Vault, IPFS).
//
// StorageBackendFactory: Creates envelope stores from URI strings and
// manages multi-backend configurations for redundant storage.
//
// # Key Interfaces
//
// SigningKey and VerifyingKey: The asymmetric key pair abstraction used for
// assertion signing. Keys serialize to DER and identify their own signature
// scheme.
//
// ReportDataGenerator: Derives the digest bound into a hardware report's
// user-data field from an arbitrary payload.
//
// # Core Types
//
// The package also defines the data model shared across the protocol:
//
//   - SecretIdentity: the name/version/purpose triple scoping a sealed secret
//   - SealedEnvelope: the persistable sealed unit
//   - KeyRecord: the portable form of a signing or verifying key
//   - CertificateChain: an ordered sequence of certificates, leaf first
//   - Measurement: a 32-byte enclave measurement value
//   - ReportData: the fixed 64-byte hardware report user-data field
//   - OperatorAddress: a 20-byte operator identity for endorsements
package interfaces
