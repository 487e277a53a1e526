package sealing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"
	"github.com/google/go-tpm/tpmutil"
)

// tpmBlobLabel scopes TPM-sealed root secret blobs to this service.
const tpmBlobLabel = "assertion-generator-root-secret"

// tpmSealedBlob is the persisted form of a TPM-sealed root secret.
type tpmSealedBlob struct {
	V     int    `json:"v"`
	Label string `json:"label"`
	Priv  []byte `json:"priv"`
	Pub   []byte `json:"pub"`
}

// TPMSealer seals and unseals the root secret against a TPM 2.0 owner
// hierarchy. The secret never leaves the machine in cleartext; the
// persisted blob can only be unsealed by the same TPM.
type TPMSealer struct {
	// Device is an open TPM transport, typically /dev/tpmrm0. The caller
	// owns it and closes it.
	Device io.ReadWriter

	// OwnerAuth is the owner hierarchy password, empty for the default.
	OwnerAuth string
}

// SealRootSecret seals the root secret into a persistable blob.
func (s *TPMSealer) SealRootSecret(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("root secret is empty")
	}

	parent, err := s.createPrimary()
	if err != nil {
		return nil, err
	}
	defer tpm2.FlushContext(s.Device, parent)

	// A sealed-data object is a KeyedHash object with a null scheme.
	pub := tpm2.Public{
		Type:    tpm2.AlgKeyedHash,
		NameAlg: tpm2.AlgSHA256,
		Attributes: tpm2.FlagFixedTPM |
			tpm2.FlagFixedParent |
			tpm2.FlagUserWithAuth |
			tpm2.FlagNoDA,
		KeyedHashParameters: &tpm2.KeyedHashParams{
			Alg: tpm2.AlgNull,
		},
	}

	privBlob, pubBlob, _, _, _, err := tpm2.CreateKeyWithSensitive(
		s.Device,
		parent,
		tpm2.PCRSelection{},
		"",
		s.OwnerAuth,
		pub,
		secret,
	)
	if err != nil {
		return nil, fmt.Errorf("tpm seal failed: %w", err)
	}

	out, err := json.Marshal(tpmSealedBlob{
		V:     1,
		Label: tpmBlobLabel,
		Priv:  privBlob,
		Pub:   pubBlob,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tpm sealed blob: %w", err)
	}
	return out, nil
}

// UnsealRootSecret recovers the root secret from a blob produced by
// SealRootSecret on the same TPM.
func (s *TPMSealer) UnsealRootSecret(blob []byte) ([]byte, error) {
	var sb tpmSealedBlob
	if err := json.Unmarshal(blob, &sb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tpm sealed blob: %w", err)
	}
	if sb.V != 1 {
		return nil, fmt.Errorf("unsupported tpm sealed blob version: %d", sb.V)
	}
	if sb.Label != tpmBlobLabel {
		return nil, errors.New("tpm sealed blob label mismatch")
	}

	parent, err := s.createPrimary()
	if err != nil {
		return nil, err
	}
	defer tpm2.FlushContext(s.Device, parent)

	handle, _, err := tpm2.Load(s.Device, parent, "", sb.Pub, sb.Priv)
	if err != nil {
		return nil, fmt.Errorf("tpm load failed: %w", err)
	}
	defer tpm2.FlushContext(s.Device, handle)

	secret, err := tpm2.Unseal(s.Device, handle, "")
	if err != nil {
		return nil, fmt.Errorf("tpm unseal failed: %w", err)
	}
	return secret, nil
}

// createPrimary recreates the deterministic primary storage key under the
// owner hierarchy. The same TPM and template always yield the same key, so
// nothing about the parent needs to persist.
func (s *TPMSealer) createPrimary() (tpmutil.Handle, error) {
	template := tpm2.Public{
		Type:    tpm2.AlgECC,
		NameAlg: tpm2.AlgSHA256,
		Attributes: tpm2.FlagDecrypt |
			tpm2.FlagRestricted |
			tpm2.FlagFixedTPM |
			tpm2.FlagFixedParent |
			tpm2.FlagSensitiveDataOrigin |
			tpm2.FlagUserWithAuth,
		ECCParameters: &tpm2.ECCParams{
			CurveID: tpm2.CurveNISTP256,
		},
	}

	handle, _, err := tpm2.CreatePrimary(
		s.Device,
		tpm2.HandleOwner,
		tpm2.PCRSelection{},
		"",
		s.OwnerAuth,
		template,
	)
	if err != nil {
		return 0, fmt.Errorf("tpm create primary failed: %w", err)
	}
	return handle, nil
}
