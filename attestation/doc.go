// Package attestation implements the assertion service built on the sealed
// attestation key, and the report-binding protocol that gets the key
// certified in the first place.
//
// AssertionGenerator holds the unsealed signing key and the certificate
// chains vouching for it, and signs caller-supplied data into assertions a
// remote verifier checks with VerifyAssertion.
//
// BuildSignReportPayload and ReportDataForSignReport implement the
// cross-enclave binding: the attestation public key is serialized with
// fixed version and purpose tags, and the resulting bytes are collapsed
// into the 64-byte report user-data field through a generator variant
// named by fixed UUIDs. A certifying enclave that embeds that digest in
// its hardware-signed report attests to having observed exactly this
// serialized key, so no other key can be substituted at verification time.
package attestation
