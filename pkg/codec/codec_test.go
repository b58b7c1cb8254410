package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensorRoundTrip(t *testing.T) {
	tensor := Tensor{
		DType:    "float32",
		Shape:    []int64{2, 3},
		Data:     []byte{1, 2, 3, 4, 5, 6},
		Metadata: map[string]any{"name": "weights"},
	}
	encoded, err := EncodeTensor(tensor)
	require.NoError(t, err)

	decoded, err := DecodeTensor(encoded)
	require.NoError(t, err)
	assert.Equal(t, tensor.DType, decoded.DType)
	assert.Equal(t, tensor.Shape, decoded.Shape)
	assert.Equal(t, tensor.Data, decoded.Data)
	assert.Equal(t, "weights", decoded.Metadata["name"])
}

func TestEmbeddingRoundTrip(t *testing.T) {
	emb := Embedding{
		Vector:         []float32{0.1, 0.2, 0.3},
		Model:          "text-embed-3",
		Dimension:      3,
		DistanceMetric: "cosine",
		Metadata:       map[string]any{"asset_id": "abc"},
	}
	encoded, err := EncodeEmbedding(emb)
	require.NoError(t, err)

	decoded, err := DecodeEmbedding(encoded)
	require.NoError(t, err)
	assert.Equal(t, emb.Model, decoded.Model)
	assert.Equal(t, emb.Dimension, decoded.Dimension)
	assert.Equal(t, emb.DistanceMetric, decoded.DistanceMetric)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.3}, toFloat64(decoded.Vector), 1e-6)
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func TestArtifactRoundTripAndChecksum(t *testing.T) {
	art := Artifact{
		Files:    []ArtifactFile{{Path: "model.bin", Size: 4}},
		Manifest: map[string]any{"version": "1"},
		ZIPData:  []byte{0x50, 0x4b, 0x03, 0x04},
	}
	encoded, err := EncodeArtifact(art)
	require.NoError(t, err)

	decoded, err := DecodeArtifact(encoded)
	require.NoError(t, err)
	assert.Equal(t, art.ZIPData, decoded.ZIPData)
	assert.Equal(t, art.Files, decoded.Files)
}

func TestDecodeTensorRejectsTruncatedFrame(t *testing.T) {
	tensor := Tensor{DType: "float32", Shape: []int64{2}, Data: []byte{1, 2, 3, 4}, Metadata: map[string]any{}}
	encoded, err := EncodeTensor(tensor)
	require.NoError(t, err)

	_, err = DecodeTensor(encoded[:len(encoded)-3])
	assert.Error(t, err)
}

func TestDecodeTensorRejectsTrailingGarbage(t *testing.T) {
	tensor := Tensor{DType: "float32", Shape: []int64{2}, Data: []byte{1, 2, 3, 4}, Metadata: map[string]any{}}
	encoded, err := EncodeTensor(tensor)
	require.NoError(t, err)

	_, err = DecodeTensor(append(encoded, 0xff))
	assert.Error(t, err)
}

func TestDecodeEmbeddingRejectsTruncatedFrame(t *testing.T) {
	emb := Embedding{Vector: []float32{0.1, 0.2}, Model: "m", Dimension: 2, DistanceMetric: "cosine", Metadata: map[string]any{}}
	encoded, err := EncodeEmbedding(emb)
	require.NoError(t, err)

	_, err = DecodeEmbedding(encoded[:len(encoded)-3])
	assert.Error(t, err)
}

func TestDecodeEmbeddingRejectsTrailingGarbage(t *testing.T) {
	emb := Embedding{Vector: []float32{0.1, 0.2}, Model: "m", Dimension: 2, DistanceMetric: "cosine", Metadata: map[string]any{}}
	encoded, err := EncodeEmbedding(emb)
	require.NoError(t, err)

	_, err = DecodeEmbedding(append(encoded, 0xff))
	assert.Error(t, err)
}

func TestDecodeArtifactRejectsTamperedChecksum(t *testing.T) {
	art := Artifact{ZIPData: []byte("hello"), Manifest: map[string]any{}}
	encoded, err := EncodeArtifact(art)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(encoded, &wire))
	wire["zip_checksum"] = "0000000000000000000000000000000000000000000000000000000000000000"
	tampered, err := json.Marshal(wire)
	require.NoError(t, err)

	_, err = DecodeArtifact(tampered)
	assert.Error(t, err)
}
