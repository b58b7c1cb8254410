package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndSearchOrdersByDistance(t *testing.T) {
	idx, err := Open(t.TempDir(), 2)
	require.NoError(t, err)

	require.NoError(t, idx.Add("near", []float32{1, 1}))
	require.NoError(t, idx.Add("far", []float32{10, 10}))
	require.NoError(t, idx.Add("exact", []float32{0, 0}))

	matches, err := idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].AssetID)
	assert.Equal(t, "near", matches[1].AssetID)
}

func TestAddRejectsWrongDimension(t *testing.T) {
	idx, err := Open(t.TempDir(), 3)
	require.NoError(t, err)
	err = idx.Add("bad", []float32{1, 2})
	assert.Error(t, err)
}

func TestDeleteRemovesAllEntriesForAsset(t *testing.T) {
	idx, err := Open(t.TempDir(), 2)
	require.NoError(t, err)
	require.NoError(t, idx.Add("chunked", []float32{1, 0}))
	require.NoError(t, idx.Add("chunked", []float32{0, 1}))
	require.NoError(t, idx.Add("other", []float32{5, 5}))

	removed, err := idx.Delete("chunked")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 1, idx.Count())

	removed, err = idx.Delete("chunked")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open(dir, 2)
	require.NoError(t, err)
	require.NoError(t, idx.Add("a", []float32{1, 2}))

	reopened, err := Open(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count())
}
