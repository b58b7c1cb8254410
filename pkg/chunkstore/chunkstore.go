// Package chunkstore implements AIFS's content-addressed byte storage
// (spec §4.1): BLAKE3 digests name chunks, sharded two hex bytes deep, with
// atomic temp-file-then-rename writes.
package chunkstore

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"lukechampine.com/blake3"

	"github.com/cuemby/aifs/pkg/aifserrors"
)

// Store is a durable, content-addressed byte store. Callers are responsible
// for any encryption/compression layering above it (pkg/manager composes
// chunkstore with pkg/security and pkg/compression); Store itself only
// guarantees that what comes back out hashes to the ID it was asked for.
type Store struct {
	chunksDir string
}

// Open creates or opens a chunk store rooted at rootDir/chunks.
func Open(rootDir string) (*Store, error) {
	chunksDir := filepath.Join(rootDir, "chunks")
	if err := os.MkdirAll(chunksDir, 0o755); err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "create chunks directory", err)
	}
	return &Store{chunksDir: chunksDir}, nil
}

// Hash returns the lowercase-hex BLAKE3 digest of data (the canonical asset ID).
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// pathFor shards two levels deep, one directory level per hex byte of the
// id's first two bytes (chunks/ab/cd/abcd...), per spec §4.1.
func (s *Store) pathFor(id string) string {
	if len(id) < 4 {
		return filepath.Join(s.chunksDir, id)
	}
	return filepath.Join(s.chunksDir, id[:2], id[2:4], id)
}

// Put stores the raw framed bytes for id, writing atomically via a temp file
// and rename. A no-op if the content already exists (content-addressed, so
// an existing file with this name is byte-for-byte identical by construction).
func (s *Store) Put(id string, framed []byte) error {
	path := s.pathFor(id)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "create shard directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, framed, 0o644); err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "write chunk", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return aifserrors.Wrap(aifserrors.Internal, "finalize chunk", err)
	}
	return nil
}

// Get returns the raw framed bytes stored for id.
func (s *Store) Get(id string) ([]byte, error) {
	data, err := os.ReadFile(s.pathFor(id))
	if os.IsNotExist(err) {
		return nil, aifserrors.NotFoundf("chunk", id)
	}
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "read chunk", err)
	}
	return data, nil
}

// Exists reports whether a chunk with the given id is stored.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

// Info is the on-disk bookkeeping spec §4.1's info() operation exposes:
// stored (framed) size and modification time. The KMS key ID isn't
// recoverable from this layer alone — callers decode the chunk framing
// (pkg/security.DecodeChunk) for that.
type Info struct {
	Size     int64
	StoredAt time.Time
}

// Info stats the chunk for id without reading or decrypting its body.
func (s *Store) Info(id string) (Info, error) {
	fi, err := os.Stat(s.pathFor(id))
	if os.IsNotExist(err) {
		return Info{}, aifserrors.NotFoundf("chunk", id)
	}
	if err != nil {
		return Info{}, aifserrors.Wrap(aifserrors.Internal, "stat chunk", err)
	}
	return Info{Size: fi.Size(), StoredAt: fi.ModTime()}, nil
}

// Delete removes the chunk for id, best-effort removing its now-empty shard
// directory, mirroring storage.py's delete().
func (s *Store) Delete(id string) (bool, error) {
	path := s.pathFor(id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, aifserrors.Wrap(aifserrors.Internal, "delete chunk", err)
	}
	_ = os.Remove(filepath.Dir(path))
	return true, nil
}
