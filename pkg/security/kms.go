package security

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/aifs/pkg/aifserrors"
)

// masterKeySize is the size in bytes of a master key and of a generated data key.
const masterKeySize = 32

// kmsKeyRecord is the on-disk representation of one KMS key: bookkeeping
// (id, type, timestamps) plus the raw key material. save() writes Material
// to kms_keys.json unencrypted; the KMS master key is not applied to it.
type kmsKeyRecord struct {
	KeyID     string            `json:"key_id"`
	KeyType   string            `json:"key_type"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Material  []byte            `json:"material"` // raw AES key bytes
}

type kmsFile struct {
	MasterKeyHash string                  `json:"master_key_hash"`
	Keys          map[string]*kmsKeyRecord `json:"keys"`
}

// KMS is the registry of data-key-wrapping keys (spec §4.2): store-backed
// persistence with an in-memory cache, and lazy expiry purge rather than a
// background sweep. The master key it holds is not used to wrap the
// persisted key records.
type KMS struct {
	mu         sync.RWMutex
	masterKey  [masterKeySize]byte
	keys       map[string]*kmsKeyRecord
	storePath  string
}

// NewKMS creates a KMS backed by storePath/kms_keys.json, using masterKey if
// supplied (must be exactly 32 bytes) or generating a fresh random one
// otherwise (spec §6.4's kms_master_key option).
func NewKMS(storeDir string, masterKey []byte) (*KMS, error) {
	k := &KMS{
		keys:      make(map[string]*kmsKeyRecord),
		storePath: filepath.Join(storeDir, "kms_keys.json"),
	}
	switch {
	case masterKey == nil:
		if _, err := rand.Read(k.masterKey[:]); err != nil {
			return nil, aifserrors.Wrap(aifserrors.Internal, "generate master key", err)
		}
	case len(masterKey) == masterKeySize:
		copy(k.masterKey[:], masterKey)
	default:
		return nil, aifserrors.InvalidArgumentf("kms_master_key", "must be exactly 32 bytes")
	}
	if err := k.load(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *KMS) load() error {
	data, err := os.ReadFile(k.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "read kms store", err)
	}
	var f kmsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "parse kms store", err)
	}
	k.keys = f.Keys
	if k.keys == nil {
		k.keys = make(map[string]*kmsKeyRecord)
	}
	return nil
}

func (k *KMS) save() error {
	f := kmsFile{Keys: k.keys}
	data, err := json.Marshal(f)
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "marshal kms store", err)
	}
	if err := os.MkdirAll(filepath.Dir(k.storePath), 0o755); err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "create kms store dir", err)
	}
	return os.WriteFile(k.storePath, data, 0o600)
}

// CreateKey registers a new symmetric key under keyID. Fails with
// AlreadyExists if keyID is taken, matching kms.py's create_key.
func (k *KMS) CreateKey(keyID string, keyType KeyType, ttl *time.Duration, metadata map[string]string) (*kmsKeyRecord, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.keys[keyID]; exists {
		return nil, aifserrors.AlreadyExistsf("kms_key", keyID)
	}

	size := masterKeySize
	if keyType == KeyTypeAES128 {
		size = 16
	}
	material := make([]byte, size)
	if _, err := rand.Read(material); err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "generate key material", err)
	}

	rec := &kmsKeyRecord{
		KeyID:     keyID,
		KeyType:   string(keyType),
		CreatedAt: time.Now().UTC(),
		Metadata:  metadata,
		Material:  material,
	}
	if ttl != nil {
		exp := rec.CreatedAt.Add(*ttl)
		rec.ExpiresAt = &exp
	}
	k.keys[keyID] = rec
	if err := k.save(); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetKey returns the key for keyID, lazily purging and reporting NotFound if
// it has expired — matching kms.py's get_key.
func (k *KMS) GetKey(keyID string) (*kmsKeyRecord, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.getKeyLocked(keyID)
}

func (k *KMS) getKeyLocked(keyID string) (*kmsKeyRecord, error) {
	rec, ok := k.keys[keyID]
	if !ok {
		return nil, aifserrors.NotFoundf("kms_key", keyID)
	}
	if rec.ExpiresAt != nil && time.Now().UTC().After(*rec.ExpiresAt) {
		delete(k.keys, keyID)
		_ = k.save()
		return nil, aifserrors.NotFoundf("kms_key", keyID)
	}
	return rec, nil
}

// DeleteKey removes a key, returning false if it was not present.
func (k *KMS) DeleteKey(keyID string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[keyID]; !ok {
		return false, nil
	}
	delete(k.keys, keyID)
	return true, k.save()
}

// ListKeys returns all non-expired keys, purging expired ones first.
func (k *KMS) ListKeys() []*kmsKeyRecord {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := time.Now().UTC()
	out := make([]*kmsKeyRecord, 0, len(k.keys))
	for id, rec := range k.keys {
		if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
			delete(k.keys, id)
			continue
		}
		out = append(out, rec)
	}
	_ = k.save()
	return out
}

// RotateKey regenerates a key's material in place, keeping its KeyID. Per
// spec's design notes, rotation is logical: data keys wrapped under the old
// material remain unwrappable only until their chunks are rewritten — this
// implementation, like kms.py's rotate_key, does not attempt to re-wrap
// existing data keys.
func (k *KMS) RotateKey(keyID string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	rec, err := k.getKeyLocked(keyID)
	if err != nil {
		return err
	}
	material := make([]byte, len(rec.Material))
	if _, err := rand.Read(material); err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "generate rotated key material", err)
	}
	rec.Material = material
	rec.CreatedAt = time.Now().UTC()
	return k.save()
}

// Stats reports a coarse summary of the key registry.
type Stats struct {
	TotalKeys   int
	ExpiredKeys int
}

func (k *KMS) Statistics() Stats {
	k.mu.RLock()
	defer k.mu.RUnlock()
	now := time.Now().UTC()
	s := Stats{TotalKeys: len(k.keys)}
	for _, rec := range k.keys {
		if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
			s.ExpiredKeys++
		}
	}
	return s
}

// KeyType names the symmetric algorithm backing a KMS key.
type KeyType string

const (
	KeyTypeAES256 KeyType = "aes-256"
	KeyTypeAES128 KeyType = "aes-128"
)

// GenerateDataKey mints a fresh plaintext data key and wraps it under keyID's
// master key, returning (plaintext, wrapped, wrapNonce) per spec §4.2's
// generate_data_key(kms_key_id) contract.
func (k *KMS) GenerateDataKey(keyID string) (plaintext, wrapped, wrapNonce []byte, err error) {
	k.mu.Lock()
	rec, gerr := k.getKeyLocked(keyID)
	k.mu.Unlock()
	if gerr != nil {
		return nil, nil, nil, gerr
	}

	plaintext = make([]byte, masterKeySize)
	if _, err := rand.Read(plaintext); err != nil {
		return nil, nil, nil, aifserrors.Wrap(aifserrors.Internal, "generate data key", err)
	}
	wrapped, wrapNonce, err = wrapDataKey(rec.Material, []byte(keyID), plaintext)
	if err != nil {
		return nil, nil, nil, err
	}
	return plaintext, wrapped, wrapNonce, nil
}

// UnwrapDataKey reverses GenerateDataKey's wrap step given the key ID used to
// wrap it, the nonce, and the wrapped bytes.
func (k *KMS) UnwrapDataKey(keyID string, wrapNonce, wrapped []byte) ([]byte, error) {
	// getKeyLocked may delete an expired key and persist the change, so it
	// needs the exclusive lock, not RLock — matching GetKey.
	k.mu.Lock()
	rec, err := k.getKeyLocked(keyID)
	k.mu.Unlock()
	if err != nil {
		return nil, err
	}
	plaintext, err := unwrapDataKey(rec.Material, []byte(keyID), wrapNonce, wrapped)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "unwrap data key", err)
	}
	return plaintext, nil
}
