package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKMSCreateGetDeleteKey(t *testing.T) {
	k, err := NewKMS(t.TempDir(), nil)
	require.NoError(t, err)

	rec, err := k.CreateKey("k1", KeyTypeAES256, nil, map[string]string{"purpose": "test"})
	require.NoError(t, err)
	assert.Equal(t, "k1", rec.KeyID)

	_, err = k.CreateKey("k1", KeyTypeAES256, nil, nil)
	assert.Error(t, err)

	got, err := k.GetKey("k1")
	require.NoError(t, err)
	assert.Equal(t, rec.Material, got.Material)

	deleted, err := k.DeleteKey("k1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = k.GetKey("k1")
	assert.Error(t, err)
}

func TestKMSExpiredKeyIsLazilyPurged(t *testing.T) {
	k, err := NewKMS(t.TempDir(), nil)
	require.NoError(t, err)

	ttl := -time.Second // already expired
	_, err = k.CreateKey("expired", KeyTypeAES256, &ttl, nil)
	require.NoError(t, err)

	_, err = k.GetKey("expired")
	assert.Error(t, err)

	keys := k.ListKeys()
	assert.Empty(t, keys)
}

func TestGenerateAndUnwrapDataKey(t *testing.T) {
	k, err := NewKMS(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = k.CreateKey("k1", KeyTypeAES256, nil, nil)
	require.NoError(t, err)

	plaintext, wrapped, nonce, err := k.GenerateDataKey("k1")
	require.NoError(t, err)
	assert.Len(t, plaintext, 32)

	unwrapped, err := k.UnwrapDataKey("k1", nonce, wrapped)
	require.NoError(t, err)
	assert.Equal(t, plaintext, unwrapped)
}

func TestSealOpenRoundTrip(t *testing.T) {
	k, err := NewKMS(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = k.CreateKey("k1", KeyTypeAES256, nil, nil)
	require.NoError(t, err)

	framed, err := k.Seal("k1", []byte("hello world"))
	require.NoError(t, err)

	plaintext, err := k.Open(framed)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(plaintext))
}

func TestOpenRejectsBadMagic(t *testing.T) {
	k, err := NewKMS(t.TempDir(), nil)
	require.NoError(t, err)
	_, err = k.Open([]byte("not a chunk file"))
	assert.Error(t, err)
}

func TestRotateKeyChangesMaterial(t *testing.T) {
	k, err := NewKMS(t.TempDir(), nil)
	require.NoError(t, err)
	rec, err := k.CreateKey("k1", KeyTypeAES256, nil, nil)
	require.NoError(t, err)
	original := append([]byte(nil), rec.Material...)

	require.NoError(t, k.RotateKey("k1"))

	got, err := k.GetKey("k1")
	require.NoError(t, err)
	assert.NotEqual(t, original, got.Material)
}
