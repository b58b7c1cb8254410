package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"

	"github.com/cuemby/aifs/pkg/aifserrors"
)

// AES-256-GCM is the sole symmetric primitive used throughout envelope
// encryption. nonceSize is the standard GCM nonce length used both for
// wrapping data keys and for encrypting chunk bodies (spec §4.2's
// wrap_nonce/data_nonce, both 12 bytes).
const nonceSize = 12

var chunkMagic = [4]byte{'A', 'I', 'F', 'S'}

const chunkVersion = 1

func aeadFor(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "create GCM mode", err)
	}
	return gcm, nil
}

// wrapDataKey AES-256-GCM-encrypts dataKey under masterMaterial, using aad
// (the KMS key ID) as associated data, per spec §4.2.
func wrapDataKey(masterMaterial, aad, dataKey []byte) (wrapped, nonce []byte, err error) {
	gcm, err := aeadFor(masterMaterial)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, aifserrors.Wrap(aifserrors.Internal, "generate wrap nonce", err)
	}
	wrapped = gcm.Seal(nil, nonce, dataKey, aad)
	return wrapped, nonce, nil
}

func unwrapDataKey(masterMaterial, aad, nonce, wrapped []byte) ([]byte, error) {
	gcm, err := aeadFor(masterMaterial)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, wrapped, aad)
}

// SealedChunk is a decoded AIFS chunk file (spec §4.2/§6.2).
type SealedChunk struct {
	KMSKeyID       string
	WrapNonce      []byte
	WrappedDataKey []byte
	DataNonce      []byte
	CipherAndTag   []byte
}

// Seal encrypts plaintext (already compressed by the caller) with a fresh
// data key wrapped under kmsKeyID, and frames the result per the chunk-file
// format:
//
//	header := kms_key_id_len(u16) | kms_key_id | wrap_nonce(12B) | wrapped_data_key_len(u16) | wrapped_data_key
//	body   := data_nonce(12B) | ciphertext_and_tag
//	file   := magic(4B) | version(u8) | header | body
func (k *KMS) Seal(kmsKeyID string, plaintext []byte) ([]byte, error) {
	dataKey, wrapped, wrapNonce, err := k.GenerateDataKey(kmsKeyID)
	if err != nil {
		return nil, err
	}
	gcm, err := aeadFor(dataKey)
	if err != nil {
		return nil, err
	}
	dataNonce := make([]byte, nonceSize)
	if _, err := rand.Read(dataNonce); err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "generate data nonce", err)
	}
	cipherAndTag := gcm.Seal(nil, dataNonce, plaintext, nil)

	buf := &bytes.Buffer{}
	buf.Write(chunkMagic[:])
	buf.WriteByte(chunkVersion)

	writeU16Prefixed(buf, []byte(kmsKeyID))
	buf.Write(wrapNonce)
	writeU16Prefixed(buf, wrapped)

	buf.Write(dataNonce)
	buf.Write(cipherAndTag)

	return buf.Bytes(), nil
}

// Open reverses Seal, returning the decrypted (still compressed) plaintext.
func (k *KMS) Open(framed []byte) ([]byte, error) {
	chunk, err := DecodeChunk(framed)
	if err != nil {
		return nil, err
	}
	dataKey, err := k.UnwrapDataKey(chunk.KMSKeyID, chunk.WrapNonce, chunk.WrappedDataKey)
	if err != nil {
		return nil, err
	}
	gcm, err := aeadFor(dataKey)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, chunk.DataNonce, chunk.CipherAndTag, nil)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "chunk body decryption failed", err)
	}
	return plaintext, nil
}

// DecodeChunk parses the chunk-file framing without decrypting anything,
// useful for Info()-style metadata lookups (spec §4.1's info()).
func DecodeChunk(framed []byte) (*SealedChunk, error) {
	r := bytes.NewReader(framed)

	var magic [4]byte
	if _, err := r.Read(magic[:]); err != nil || magic != chunkMagic {
		return nil, aifserrors.New(aifserrors.DataCorruption, "bad chunk magic", nil)
	}
	version, err := r.ReadByte()
	if err != nil || version != chunkVersion {
		return nil, aifserrors.New(aifserrors.DataCorruption, "unsupported chunk version", nil)
	}

	keyID, err := readU16Prefixed(r)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "read kms_key_id", err)
	}
	wrapNonce := make([]byte, nonceSize)
	if _, err := r.Read(wrapNonce); err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "read wrap_nonce", err)
	}
	wrapped, err := readU16Prefixed(r)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "read wrapped_data_key", err)
	}
	dataNonce := make([]byte, nonceSize)
	if _, err := r.Read(dataNonce); err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "read data_nonce", err)
	}
	cipherAndTag := make([]byte, r.Len())
	if _, err := r.Read(cipherAndTag); err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "read ciphertext", err)
	}

	return &SealedChunk{
		KMSKeyID:       string(keyID),
		WrapNonce:      wrapNonce,
		WrappedDataKey: wrapped,
		DataNonce:      dataNonce,
		CipherAndTag:   cipherAndTag,
	}, nil
}

func writeU16Prefixed(buf *bytes.Buffer, data []byte) {
	var length [2]byte
	binary.LittleEndian.PutUint16(length[:], uint16(len(data)))
	buf.Write(length[:])
	buf.Write(data)
}

func readU16Prefixed(r *bytes.Reader) ([]byte, error) {
	var length [2]byte
	if _, err := r.Read(length[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint16(length[:])
	data := make([]byte, n)
	if _, err := r.Read(data); err != nil {
		return nil, err
	}
	return data, nil
}
