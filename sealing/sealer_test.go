package sealing

import (
	"testing"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHeader = interfaces.SecretIdentity{
	Name:    "Test Secret",
	Version: "Test Secret v1",
	Purpose: "Testing",
}

func newSealer(t *testing.T, cfg LocalSealerConfig) *LocalSealer {
	t.Helper()

	if cfg.RootSecret == nil {
		secret, err := GenerateRootSecret()
		require.NoError(t, err)
		cfg.RootSecret = secret
	}
	if cfg.DefaultHeader == (interfaces.SecretIdentity{}) {
		cfg.DefaultHeader = testHeader
	}

	sealer, err := NewLocalSealer(cfg)
	require.NoError(t, err)
	return sealer
}

func TestNewLocalSealerRejectsShortRootSecret(t *testing.T) {
	_, err := NewLocalSealer(LocalSealerConfig{RootSecret: make([]byte, 16)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestSealUnsealRoundTrip(t *testing.T) {
	sealer := newSealer(t, LocalSealerConfig{
		Policy:            interfaces.SealToSigner,
		SignerMeasurement: interfaces.Measurement{0xaa},
	})

	secret := []byte("attestation key bytes")
	aad := []byte(`{"certificate_chains":[]}`)

	env, err := sealer.Seal(testHeader, aad, secret)
	require.NoError(t, err)
	assert.Equal(t, aad, env.AdditionalData)
	assert.NotContains(t, string(env.Ciphertext), string(secret))

	plaintext, err := sealer.Unseal(env)
	require.NoError(t, err)
	assert.Equal(t, secret, plaintext)
}

func TestSealProducesFreshCiphertexts(t *testing.T) {
	sealer := newSealer(t, LocalSealerConfig{})

	first, err := sealer.Seal(testHeader, nil, []byte("secret"))
	require.NoError(t, err)
	second, err := sealer.Seal(testHeader, nil, []byte("secret"))
	require.NoError(t, err)

	// Fresh salt and nonce per envelope.
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestUnsealDetectsTampering(t *testing.T) {
	sealer := newSealer(t, LocalSealerConfig{})

	env, err := sealer.Seal(testHeader, []byte("bound data"), []byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(env *interfaces.SealedEnvelope)
	}{
		{"ciphertext bit flip", func(env *interfaces.SealedEnvelope) {
			env.Ciphertext[len(env.Ciphertext)-1] ^= 0x01
		}},
		{"salt bit flip", func(env *interfaces.SealedEnvelope) {
			env.Ciphertext[0] ^= 0x01
		}},
		{"additional data swap", func(env *interfaces.SealedEnvelope) {
			env.AdditionalData = []byte("other data")
		}},
		{"header swap", func(env *interfaces.SealedEnvelope) {
			header, err := interfaces.SecretIdentity{Name: "Other"}.Serialize()
			require.NoError(t, err)
			env.Header = header
		}},
		{"short blob", func(env *interfaces.SealedEnvelope) {
			env.Ciphertext = env.Ciphertext[:8]
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tampered := env
			tampered.Ciphertext = append([]byte(nil), env.Ciphertext...)
			tc.mutate(&tampered)

			_, err := sealer.Unseal(tampered)
			assert.ErrorIs(t, err, interfaces.ErrSealedEnvelopeTampered)
		})
	}
}

func TestUnsealAcrossSealersSameRoot(t *testing.T) {
	rootSecret, err := GenerateRootSecret()
	require.NoError(t, err)
	signer := interfaces.Measurement{0xaa}

	sealOnce := newSealer(t, LocalSealerConfig{
		RootSecret:        rootSecret,
		Policy:            interfaces.SealToSigner,
		SignerMeasurement: signer,
	})
	env, err := sealOnce.Seal(testHeader, nil, []byte("secret"))
	require.NoError(t, err)

	// A second sealer with the same root, policy, and measurement models a
	// restarted or upgraded build from the same signer. It can unseal.
	sameDomain := newSealer(t, LocalSealerConfig{
		RootSecret:        rootSecret,
		Policy:            interfaces.SealToSigner,
		SignerMeasurement: signer,
	})
	plaintext, err := sameDomain.Unseal(env)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), plaintext)

	// A different signer measurement derives a different key.
	otherSigner := newSealer(t, LocalSealerConfig{
		RootSecret:        rootSecret,
		Policy:            interfaces.SealToSigner,
		SignerMeasurement: interfaces.Measurement{0xbb},
	})
	_, err = otherSigner.Unseal(env)
	assert.ErrorIs(t, err, interfaces.ErrSealedEnvelopeTampered)

	// So does the instance policy, even with a matching measurement value.
	instanceScoped := newSealer(t, LocalSealerConfig{
		RootSecret:          rootSecret,
		Policy:              interfaces.SealToInstance,
		InstanceMeasurement: signer,
	})
	_, err = instanceScoped.Unseal(env)
	assert.ErrorIs(t, err, interfaces.ErrSealedEnvelopeTampered)
}

func TestUnsealWithDifferentRootSecret(t *testing.T) {
	sealer := newSealer(t, LocalSealerConfig{SignerMeasurement: interfaces.Measurement{0xaa}})
	other := newSealer(t, LocalSealerConfig{SignerMeasurement: interfaces.Measurement{0xaa}})

	env, err := sealer.Seal(testHeader, nil, []byte("secret"))
	require.NoError(t, err)

	_, err = other.Unseal(env)
	assert.ErrorIs(t, err, interfaces.ErrSealedEnvelopeTampered)
}

func TestDefaultHeader(t *testing.T) {
	sealer := newSealer(t, LocalSealerConfig{})
	assert.True(t, testHeader.Equal(sealer.DefaultHeader()))
}
