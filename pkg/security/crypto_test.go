package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifySnapshot(t *testing.T) {
	priv, pub, err := GenerateKeyPair()
	require.NoError(t, err)

	_, sigHex := SignSnapshot(priv, "deadbeef", "2024-01-01T00:00:00Z", "default")
	assert.NotEmpty(t, sigHex)

	sig, _ := SignSnapshot(priv, "deadbeef", "2024-01-01T00:00:00Z", "default")
	assert.True(t, VerifySnapshot(pub, sig, "deadbeef", "2024-01-01T00:00:00Z", "default"))

	_, otherPub, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, VerifySnapshot(otherPub, sig, "deadbeef", "2024-01-01T00:00:00Z", "default"))

	assert.False(t, VerifySnapshot(pub, sig, "tampered", "2024-01-01T00:00:00Z", "default"))
}

func TestKeyFromSeedDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	priv1, err := KeyFromSeed(seed)
	require.NoError(t, err)
	priv2, err := KeyFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, priv1, priv2)

	_, err = KeyFromSeed([]byte("too short"))
	assert.Error(t, err)
}

func TestKeyRegistryRegisterIsIdempotent(t *testing.T) {
	r, err := NewKeyRegistry(t.TempDir())
	require.NoError(t, err)

	pub1, err := r.RegisterNamespaceKey("default")
	require.NoError(t, err)
	pub2, err := r.RegisterNamespaceKey("default")
	require.NoError(t, err)
	assert.Equal(t, pub1, pub2)

	assert.Contains(t, r.ListNamespaceKeys(), "default")
}

func TestKeyRegistrySignVerifyRoundTrip(t *testing.T) {
	r, err := NewKeyRegistry(t.TempDir())
	require.NoError(t, err)
	_, err = r.RegisterNamespaceKey("ns1")
	require.NoError(t, err)

	priv, err := r.GetNamespaceKey("ns1")
	require.NoError(t, err)
	pub, err := r.GetNamespacePublicKey("ns1")
	require.NoError(t, err)

	sig, _ := SignSnapshot(priv, "root", "2024-01-01T00:00:00Z", "ns1")
	assert.True(t, VerifySnapshot(pub, sig, "root", "2024-01-01T00:00:00Z", "ns1"))
}

func TestTrustedKeyNamespaceScope(t *testing.T) {
	r, err := NewKeyRegistry(t.TempDir())
	require.NoError(t, err)
	_, pub, err := GenerateKeyPair()
	require.NoError(t, err)

	r.PinTrustedKey("ext-1", "ns1", pub)

	got, err := r.TrustedKey("ext-1", "ns1")
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	_, err = r.TrustedKey("ext-1", "ns2")
	assert.Error(t, err)
}
