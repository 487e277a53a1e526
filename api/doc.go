/*
Package api defines the HTTP API surface of the assertion generator
service: request and response types, the operator endorsement scheme, and
the shared server configuration.

# Endpoints

The service exposes three route groups, implemented in the
assertionhandler subpackage:

1. Attested - assertion generation for mutually attested peers
2. Public - certification material for the attestation key
3. Admin - operator-endorsed certificate chain updates

# Operator Endorsements

Administrative requests carry a secp256k1 signature over the keccak256
hash of the request's canonical bytes. The handler recovers the signing
address and checks it against a configured operator allowlist; requests
without a valid endorsement from an allowlisted operator are rejected
before any state is touched.

# Security Model

The data-plane trust decision is made per request from attestation
evidence: the attested-TLS terminating proxy verifies the peer's hardware
attestation and injects measurement headers, and the handler authorizes
only peers whose signer measurement matches its own trust domain. Both
ends prove they are enclaves in the same trust domain before any
assertion is served.
*/
package api
