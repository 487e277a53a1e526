// Package assertionhandler implements the HTTP surface of the assertion
// generator service.
//
// Three route groups:
//
//   - /api/attested/assert serves assertions to mutually attested peers.
//     The attested-TLS terminating proxy verifies the caller's hardware
//     attestation and injects measurement headers; the handler authorizes
//     only peers whose signer measurement matches this enclave's trust
//     domain.
//   - /api/public/certification exposes the sign-report payload, its
//     report data, and a hardware quote over it, so a certifier can issue
//     certificate chains for the attestation key. Nothing here is secret.
//   - /api/admin/certificates swaps the certificate chains bound to the
//     sealed attestation key, gated by an operator endorsement and
//     followed by a reseal-and-persist before the serving state changes.
//
// Client is the corresponding HTTP client.
package assertionhandler
