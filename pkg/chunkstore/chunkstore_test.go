package chunkstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetExistsDelete(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	data := []byte("framed-chunk-bytes")
	id := Hash(data)

	assert.False(t, s.Exists(id))
	require.NoError(t, s.Put(id, data))
	assert.True(t, s.Exists(id))

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	// Put is a no-op for already-stored content.
	require.NoError(t, s.Put(id, data))

	removed, err := s.Delete(id)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, s.Exists(id))
}

func TestGetMissing(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("deadbeef")
	assert.Error(t, err)
}

func TestInfo(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	data := []byte("some framed chunk")
	id := Hash(data)
	require.NoError(t, s.Put(id, data))

	info, err := s.Info(id)
	require.NoError(t, err)
	assert.EqualValues(t, len(data), info.Size)
	assert.False(t, info.StoredAt.IsZero())

	_, err = s.Info("deadbeef")
	assert.Error(t, err)
}
