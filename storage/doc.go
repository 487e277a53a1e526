// Package storage persists sealed envelopes on untrusted storage with
// pluggable backends.
//
// A store holds opaque sealed blobs in named slots. The stores never see
// key material: everything they hold is ciphertext plus authenticated
// cleartext, and tampering with either is detected at unseal time, not
// here. Available backends:
//
//   - File system storage for local deployments and development
//   - S3-compatible object storage for cloud deployments
//   - IPFS MFS storage for decentralized replication
//   - Vault KV v2 storage
//
// # Storage URI Format
//
// Stores are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/assertion-generator/
//   - s3://bucket-name/prefix/?region=us-west-2
//   - ipfs://ipfs.example.com:5001/assertion-generator
//   - vault://vault.example.com:8200/secret/assertion-generator?token=...
//
// # Multi-Store Replication
//
// CreateMultiStore aggregates several stores into one: saves replicate to
// every available backend, loads fall back through the backends in order.
// One surviving copy of the envelope is enough to recover the identity
// key, so partial replication degrades durability, not correctness.
package storage
