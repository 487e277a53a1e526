// Package main (cmd/assertion-generator) runs the assertion generator
// service. On startup it recovers the enclave's attestation key from a
// sealed envelope in persistent storage, or with --bootstrap generates and
// seals a fresh key awaiting certification. It then serves assertion
// requests from mutually attested peers, certification material for the
// certificate authority flow, and operator-endorsed certificate updates.
package main
