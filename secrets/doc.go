// Package secrets implements the sealed-secret protocol protecting the
// enclave's attestation key and the certificate chains that vouch for it.
//
// A sealed secret is one tamper-evident unit with three parts: a
// domain-separation header (the fixed name/version/purpose triple), the
// confidential attestation key, and the cleartext but authenticated
// certificate chains. The header scopes the secret to this protocol: an
// envelope sealed for any other purpose is rejected before its ciphertext
// is ever touched.
//
// # Sealing
//
// Seal encodes the attestation key into its portable record form, wraps it
// as the protected payload, binds the certificate chains as additional
// authenticated data, and drives an external interfaces.Sealer to produce
// the opaque envelope. The sealer is constructed with the signer-scoped
// policy so a secret sealed by one build can be reopened by any build
// signed by the same authority.
//
// # Unsealing
//
// Unseal validates the envelope header against the fixed identity triple
// before invoking the sealer. Header mismatch aborts immediately; this
// ordering is deliberate and fail-closed. After decryption the protected
// payload and the additional data are parsed independently, the chains are
// returned verbatim in their original order, and the attestation key is
// reconstructed through the key-record codec.
//
// Buffers holding decrypted private key bytes are scrubbed on every exit
// path, success or failure.
//
// # Key Records
//
// EncodeSigningKey, EncodeVerifyingKey and DecodeSigningKey convert between
// live keys and portable interfaces.KeyRecord values. Only DER records
// reconstruct; PEM is recognized but unsupported, and unknown encodings or
// non-signing key types are rejected outright.
//
// All operations are synchronous, allocate no shared state, and are safe
// for concurrent use as long as the sealer is.
package secrets
