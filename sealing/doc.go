// Package sealing provides the envelope sealer backing the sealed-secret
// protocol, plus the root-secret plumbing around it.
//
// LocalSealer encrypts and authenticates secrets with AES-256-GCM under a
// key derived per envelope via HKDF-SHA256 from a root secret, a random
// salt, and the sealing policy's enclave measurement. The signer policy
// binds the key to the code-signer measurement so any build signed by the
// same authority can unseal; the instance policy binds it to one exact
// instance.
//
// The root secret itself comes from one of several sources: a hex literal
// (development), a file, a TPM 2.0 sealed blob that only the same machine
// can reopen, or recombined Shamir shares held by operators.
package sealing
