// Package main (cmd/operator) implements an operator client for the assertion
// generator service. Certificate chains certifying the enclave's attestation
// key are issued out of band by a certificate authority; before an instance
// accepts them, an authorized operator must endorse the update with their
// secp256k1 key. This tool signs the canonical update request and submits it
// to the instance's admin endpoint.
//
// The instance recovers the signer address from the endorsement and checks it
// against its operator allowlist, so only chains approved by a configured
// operator ever reach the sealed envelope.
package main
