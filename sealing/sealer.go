package sealing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"golang.org/x/crypto/hkdf"
)

const (
	saltSize = 32

	// sealingKeyInfo is the fixed HKDF info prefix, separating sealing
	// keys from any other key derived from the same root secret.
	sealingKeyInfo = "tee-assertion-generator sealing key v1"
)

// LocalSealer implements interfaces.Sealer with AES-256-GCM envelopes.
//
// The per-envelope sealing key is derived with HKDF-SHA256 from a root
// secret, a fresh random salt, and an info string binding the sealing
// policy and the selected enclave measurement. A sealer constructed with
// the signer policy and the same signer measurement derives the same key
// for the same salt, so any build signed by the same authority can unseal;
// an instance-scoped sealer binds the key to this exact instance.
//
// The envelope header bytes and the additional data are authenticated via
// the AEAD additional-data input, each length-prefixed to keep the two
// fields unambiguous. The ciphertext blob is salt || nonce || ciphertext.
type LocalSealer struct {
	rootSecret    []byte
	policy        interfaces.SealingPolicy
	measurement   interfaces.Measurement
	defaultHeader interfaces.SecretIdentity
}

// LocalSealerConfig parameterizes a LocalSealer.
type LocalSealerConfig struct {
	// RootSecret is the hardware-rooted secret sealing keys derive from.
	// Must be at least 32 bytes.
	RootSecret []byte

	// Policy selects which measurement the sealing key binds to.
	Policy interfaces.SealingPolicy

	// SignerMeasurement identifies the enclave's code signer. Used when
	// Policy is SealToSigner.
	SignerMeasurement interfaces.Measurement

	// InstanceMeasurement identifies this exact enclave instance. Used
	// when Policy is SealToInstance.
	InstanceMeasurement interfaces.Measurement

	// DefaultHeader is returned by DefaultHeader and merged under the
	// caller identity on seal.
	DefaultHeader interfaces.SecretIdentity
}

// NewLocalSealer creates a sealer from the given configuration.
func NewLocalSealer(cfg LocalSealerConfig) (*LocalSealer, error) {
	if len(cfg.RootSecret) < 32 {
		return nil, fmt.Errorf("root secret must be at least 32 bytes, got %d", len(cfg.RootSecret))
	}

	measurement := cfg.SignerMeasurement
	if cfg.Policy == interfaces.SealToInstance {
		measurement = cfg.InstanceMeasurement
	}

	root := make([]byte, len(cfg.RootSecret))
	copy(root, cfg.RootSecret)

	return &LocalSealer{
		rootSecret:    root,
		policy:        cfg.Policy,
		measurement:   measurement,
		defaultHeader: cfg.DefaultHeader,
	}, nil
}

// DefaultHeader returns the sealer's configured default identity header.
func (s *LocalSealer) DefaultHeader() interfaces.SecretIdentity {
	return s.defaultHeader
}

// Seal encrypts secret under a freshly derived key and binds header and
// additionalData to the ciphertext.
func (s *LocalSealer) Seal(header interfaces.SecretIdentity, additionalData, secret []byte) (interfaces.SealedEnvelope, error) {
	headerBytes, err := header.Serialize()
	if err != nil {
		return interfaces.SealedEnvelope{}, fmt.Errorf("failed to serialize envelope header: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return interfaces.SealedEnvelope{}, fmt.Errorf("failed to generate sealing salt: %w", err)
	}

	aead, err := s.deriveAEAD(salt)
	if err != nil {
		return interfaces.SealedEnvelope{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return interfaces.SealedEnvelope{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, secret, authenticatedInput(headerBytes, additionalData))

	blob := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return interfaces.SealedEnvelope{
		Header:         headerBytes,
		AdditionalData: additionalData,
		Ciphertext:     blob,
	}, nil
}

// Unseal authenticates the envelope and returns the decrypted secret. Any
// modification of the header bytes, the additional data or the ciphertext
// after sealing fails with ErrSealedEnvelopeTampered.
func (s *LocalSealer) Unseal(env interfaces.SealedEnvelope) ([]byte, error) {
	if len(env.Ciphertext) < saltSize {
		return nil, fmt.Errorf("sealed blob too short: %w", interfaces.ErrSealedEnvelopeTampered)
	}
	salt := env.Ciphertext[:saltSize]

	aead, err := s.deriveAEAD(salt)
	if err != nil {
		return nil, err
	}

	rest := env.Ciphertext[saltSize:]
	if len(rest) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed blob too short: %w", interfaces.ErrSealedEnvelopeTampered)
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, authenticatedInput(env.Header, env.AdditionalData))
	if err != nil {
		return nil, interfaces.ErrSealedEnvelopeTampered
	}
	return plaintext, nil
}

// deriveAEAD derives the per-envelope AES-256-GCM cipher from the root
// secret, the salt, and the policy-scoped measurement.
func (s *LocalSealer) deriveAEAD(salt []byte) (cipher.AEAD, error) {
	info := fmt.Sprintf("%s|%s|%s", sealingKeyInfo, s.policy, s.measurement)

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.rootSecret, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AEAD: %w", err)
	}
	return aead, nil
}

// authenticatedInput encodes the header bytes and the additional data into
// one AEAD additional-data input. Each field is length-prefixed so no
// (header, aad) pair collides with any other.
func authenticatedInput(headerBytes, additionalData []byte) []byte {
	out := make([]byte, 0, 8+len(headerBytes)+len(additionalData))
	out = binary.BigEndian.AppendUint32(out, uint32(len(headerBytes)))
	out = append(out, headerBytes...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(additionalData)))
	out = append(out, additionalData...)
	return out
}
