package interfaces

// SigningKey is the private half of the assertion key pair. Implementations
// serialize to DER, identify their own signature scheme, and sign arbitrary
// messages (hashing internally as the scheme requires).
type SigningKey interface {
	// SerializeToDER returns the DER encoding of the private key.
	SerializeToDER() ([]byte, error)

	// GetSignatureScheme identifies the scheme this key signs with.
	GetSignatureScheme() SignatureScheme

	// Sign signs a message, returning the encoded signature.
	Sign(message []byte) ([]byte, error)

	// VerifyingKey returns the public half of this key.
	VerifyingKey() (VerifyingKey, error)
}

// VerifyingKey is the public half of the assertion key pair.
type VerifyingKey interface {
	// SerializeToDER returns the DER encoding of the public key.
	SerializeToDER() ([]byte, error)

	// GetSignatureScheme identifies the scheme this key verifies with.
	GetSignatureScheme() SignatureScheme

	// Verify checks a signature over a message, nil on success.
	Verify(message, signature []byte) error
}

// ReportDataGenerator derives the digest bound into a hardware report's
// user-data field from an arbitrary payload. Each generator variant is
// scoped to one protocol and always produces output of one fixed length.
type ReportDataGenerator interface {
	Generate(payload []byte) ([]byte, error)
}
