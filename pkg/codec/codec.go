// Package codec implements the wire encodings for AIFS's four asset kinds:
// blob (raw bytes, no framing), tensor, embed, and artifact — a
// length-prefixed binary format for tensor/embedding payloads and a JSON
// envelope for artifacts, rather than a schema compiler (protobuf/
// flatbuffers) for one payload type.
package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"

	"github.com/cuemby/aifs/pkg/aifserrors"
	"lukechampine.com/blake3"
)

// Tensor is the decoded form of a tensor asset's payload.
type Tensor struct {
	DType    string
	Shape    []int64
	Data     []byte
	Metadata map[string]any
}

// EncodeTensor packs a Tensor into the wire format:
// dtype_len(u32)|dtype | shape_len(u32)|shape(shape_len x i64) |
// data_len(u32)|data | metadata_len(u32)|metadata(json).
func EncodeTensor(t Tensor) ([]byte, error) {
	metaJSON, err := json.Marshal(nonNilMap(t.Metadata))
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "marshal tensor metadata", err)
	}

	var buf bytes.Buffer
	writeLenPrefixed(&buf, []byte(t.DType))

	shapeBytes := make([]byte, 8*len(t.Shape))
	for i, dim := range t.Shape {
		binary.LittleEndian.PutUint64(shapeBytes[i*8:], uint64(dim))
	}
	writeU32(&buf, uint32(len(t.Shape)))
	buf.Write(shapeBytes)

	writeLenPrefixed(&buf, t.Data)
	writeLenPrefixed(&buf, metaJSON)
	return buf.Bytes(), nil
}

// DecodeTensor reverses EncodeTensor.
func DecodeTensor(data []byte) (Tensor, error) {
	r := bytes.NewReader(data)

	dtype, err := readLenPrefixed(r)
	if err != nil {
		return Tensor{}, err
	}

	shapeLen, err := readU32(r)
	if err != nil {
		return Tensor{}, err
	}
	shapeBytes := make([]byte, 8*shapeLen)
	if _, err := io.ReadFull(r, shapeBytes); err != nil {
		return Tensor{}, aifserrors.Wrap(aifserrors.DataCorruption, "read tensor shape", err)
	}
	shape := make([]int64, shapeLen)
	for i := range shape {
		shape[i] = int64(binary.LittleEndian.Uint64(shapeBytes[i*8:]))
	}

	tdata, err := readLenPrefixed(r)
	if err != nil {
		return Tensor{}, err
	}
	metaJSON, err := readLenPrefixed(r)
	if err != nil {
		return Tensor{}, err
	}
	var meta map[string]any
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return Tensor{}, aifserrors.Wrap(aifserrors.DataCorruption, "unmarshal tensor metadata", err)
	}
	if r.Len() != 0 {
		return Tensor{}, aifserrors.New(aifserrors.DataCorruption, "trailing bytes after tensor frame", nil)
	}

	return Tensor{DType: string(dtype), Shape: shape, Data: tdata, Metadata: meta}, nil
}

// Embedding is the decoded form of an embed asset's payload.
type Embedding struct {
	Vector         []float32
	Model          string
	Dimension      uint32
	DistanceMetric string
	Metadata       map[string]any
}

// EncodeEmbedding packs an Embedding into the wire format:
// model_len(u32)|model | dimension(u32) | metric_len(u32)|metric |
// vector_len(u32)|vector(f32 le) | metadata_len(u32)|metadata(json).
func EncodeEmbedding(e Embedding) ([]byte, error) {
	metaJSON, err := json.Marshal(nonNilMap(e.Metadata))
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "marshal embedding metadata", err)
	}

	var buf bytes.Buffer
	writeLenPrefixed(&buf, []byte(e.Model))
	writeU32(&buf, e.Dimension)
	writeLenPrefixed(&buf, []byte(e.DistanceMetric))

	vecBytes := make([]byte, 4*len(e.Vector))
	for i, f := range e.Vector {
		binary.LittleEndian.PutUint32(vecBytes[i*4:], math.Float32bits(f))
	}
	writeLenPrefixed(&buf, vecBytes)
	writeLenPrefixed(&buf, metaJSON)
	return buf.Bytes(), nil
}

// DecodeEmbedding reverses EncodeEmbedding.
func DecodeEmbedding(data []byte) (Embedding, error) {
	r := bytes.NewReader(data)

	model, err := readLenPrefixed(r)
	if err != nil {
		return Embedding{}, err
	}
	dim, err := readU32(r)
	if err != nil {
		return Embedding{}, err
	}
	metric, err := readLenPrefixed(r)
	if err != nil {
		return Embedding{}, err
	}
	vecBytes, err := readLenPrefixed(r)
	if err != nil {
		return Embedding{}, err
	}
	if len(vecBytes)%4 != 0 {
		return Embedding{}, aifserrors.New(aifserrors.DataCorruption, "embedding vector length not a multiple of 4", nil)
	}
	vector := make([]float32, len(vecBytes)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(vecBytes[i*4:]))
	}

	metaJSON, err := readLenPrefixed(r)
	if err != nil {
		return Embedding{}, err
	}
	var meta map[string]any
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return Embedding{}, aifserrors.Wrap(aifserrors.DataCorruption, "unmarshal embedding metadata", err)
	}
	if r.Len() != 0 {
		return Embedding{}, aifserrors.New(aifserrors.DataCorruption, "trailing bytes after embedding frame", nil)
	}

	return Embedding{
		Vector:         vector,
		Model:          string(model),
		Dimension:      dim,
		DistanceMetric: string(metric),
		Metadata:       meta,
	}, nil
}

// ArtifactFile is one member file's manifest entry within an artifact.
type ArtifactFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Artifact is the decoded form of an artifact asset's payload: a bundle of
// files packaged as a zip with an accompanying manifest.
type Artifact struct {
	Files        []ArtifactFile    `json:"files"`
	Manifest     map[string]any    `json:"manifest"`
	Dependencies []map[string]any  `json:"dependencies,omitempty"`
	ZIPData      []byte            `json:"-"`
}

type artifactWire struct {
	Files        []ArtifactFile   `json:"files"`
	Manifest     map[string]any   `json:"manifest"`
	Dependencies []map[string]any `json:"dependencies"`
	ZIPHex       string           `json:"zip_data"`
	ZIPChecksum  string           `json:"zip_checksum"`
	ZIPSize      int              `json:"zip_size"`
}

// EncodeArtifact packs an Artifact as the JSON envelope the original
// implementation uses: zip bytes hex-encoded alongside a BLAKE3 checksum
// and the manifest/file list.
func EncodeArtifact(a Artifact) ([]byte, error) {
	sum := blake3.Sum256(a.ZIPData)
	wire := artifactWire{
		Files:        a.Files,
		Manifest:     nonNilMap(a.Manifest),
		Dependencies: a.Dependencies,
		ZIPHex:       hex.EncodeToString(a.ZIPData),
		ZIPChecksum:  hex.EncodeToString(sum[:]),
		ZIPSize:      len(a.ZIPData),
	}
	out, err := json.Marshal(wire)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "marshal artifact", err)
	}
	return out, nil
}

// DecodeArtifact reverses EncodeArtifact, verifying the embedded zip
// checksum so corruption is caught at decode time rather than on use.
func DecodeArtifact(data []byte) (Artifact, error) {
	var wire artifactWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return Artifact{}, aifserrors.Wrap(aifserrors.DataCorruption, "unmarshal artifact", err)
	}
	zipData, err := hex.DecodeString(wire.ZIPHex)
	if err != nil {
		return Artifact{}, aifserrors.Wrap(aifserrors.DataCorruption, "decode artifact zip hex", err)
	}
	sum := blake3.Sum256(zipData)
	if hex.EncodeToString(sum[:]) != wire.ZIPChecksum {
		return Artifact{}, aifserrors.New(aifserrors.DataCorruption, "artifact zip checksum mismatch", nil)
	}
	return Artifact{
		Files:        wire.Files,
		Manifest:     wire.Manifest,
		Dependencies: wire.Dependencies,
		ZIPData:      zipData,
	}, nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) {
	writeU32(buf, uint32(len(data)))
	buf.Write(data)
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, aifserrors.Wrap(aifserrors.DataCorruption, "read length prefix", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readLenPrefixed(r *bytes.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, aifserrors.Wrap(aifserrors.DataCorruption, "read length-prefixed field", err)
		}
	}
	return out, nil
}
