package sealing

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRootSecret(t *testing.T) {
	first, err := GenerateRootSecret()
	require.NoError(t, err)
	assert.Len(t, first, RootSecretSize)

	second, err := GenerateRootSecret()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestRootSecretFromHex(t *testing.T) {
	secret, err := GenerateRootSecret()
	require.NoError(t, err)

	parsed, err := RootSecretFromHex(hex.EncodeToString(secret))
	require.NoError(t, err)
	assert.Equal(t, secret, parsed)

	prefixed, err := RootSecretFromHex("0x" + hex.EncodeToString(secret))
	require.NoError(t, err)
	assert.Equal(t, secret, prefixed)

	_, err = RootSecretFromHex("deadbeef")
	assert.Error(t, err, "short secrets must be rejected")

	_, err = RootSecretFromHex("not hex at all")
	assert.Error(t, err)
}

func TestRootSecretFromFile(t *testing.T) {
	secret, err := GenerateRootSecret()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "root-secret")
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(secret)+"\n"), 0o600))

	parsed, err := RootSecretFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, secret, parsed)

	_, err = RootSecretFromFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSplitCombineRootSecret(t *testing.T) {
	secret, err := GenerateRootSecret()
	require.NoError(t, err)

	shares, err := SplitRootSecret(secret, 5, 3)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	// Any threshold subset recombines, in any order.
	recovered, err := CombineRootSecret([][]byte{shares[4], shares[0], shares[2]})
	require.NoError(t, err)
	assert.Equal(t, secret, recovered)

	// Below the threshold the combination yields something else entirely.
	wrong, err := CombineRootSecret([][]byte{shares[0], shares[1]})
	if err == nil {
		assert.NotEqual(t, secret, wrong)
	}
}

func TestSplitRootSecretValidation(t *testing.T) {
	secret, err := GenerateRootSecret()
	require.NoError(t, err)

	_, err = SplitRootSecret(secret[:16], 5, 3)
	assert.Error(t, err)

	_, err = SplitRootSecret(secret, 2, 3)
	assert.Error(t, err)

	_, err = SplitRootSecret(secret, 5, 1)
	assert.Error(t, err)

	_, err = CombineRootSecret([][]byte{{0x01}})
	assert.Error(t, err)
}
