package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/aifs/pkg/aifserrors"
)

// Ed25519 is implemented with the standard library (crypto/ed25519). No
// third-party signing library is wired here: Ed25519 is a fixed algorithm
// and the standard library's implementation is complete, constant-time,
// and dependency-free, so there is nothing an ecosystem package would add.

// GenerateKeyPair returns a fresh Ed25519 key pair.
func GenerateKeyPair() (priv ed25519.PrivateKey, pub ed25519.PublicKey, err error) {
	pub, priv, err = ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, aifserrors.Wrap(aifserrors.Internal, "generate ed25519 keypair", err)
	}
	return priv, pub, nil
}

// KeyFromSeed derives a private key deterministically from a 32-byte seed.
func KeyFromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, aifserrors.InvalidArgumentf("seed", fmt.Sprintf("must be exactly %d bytes", ed25519.SeedSize))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// snapshotMessage builds the canonical signed message for a snapshot,
// matching spec §4.5 exactly: merkle_root + ":" + created_at + ":" + namespace.
func snapshotMessage(merkleRoot, createdAt, namespace string) []byte {
	return []byte(merkleRoot + ":" + createdAt + ":" + namespace)
}

// SignSnapshot signs a snapshot's canonical message with priv.
func SignSnapshot(priv ed25519.PrivateKey, merkleRoot, createdAt, namespace string) (sig []byte, sigHex string) {
	sig = ed25519.Sign(priv, snapshotMessage(merkleRoot, createdAt, namespace))
	return sig, hex.EncodeToString(sig)
}

// VerifySnapshot verifies a snapshot signature. A false return is a normal
// outcome, never an error (spec §7): any malformed input (wrong-length key,
// bad hex) simply fails to verify.
func VerifySnapshot(pub ed25519.PublicKey, sig []byte, merkleRoot, createdAt, namespace string) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, snapshotMessage(merkleRoot, createdAt, namespace), sig)
}

// SignData signs arbitrary bytes with priv; pkg/manager's TokenManager uses
// it to sign capability tokens.
func SignData(priv ed25519.PrivateKey, data []byte) []byte {
	return ed25519.Sign(priv, data)
}

// VerifyData verifies a SignData signature.
func VerifyData(pub ed25519.PublicKey, data, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, data, sig)
}

// namespaceKeyRecord is the persisted form of one namespace's signing key.
type namespaceKeyRecord struct {
	Namespace string `json:"namespace"`
	PublicKey string `json:"public_key_hex"`
	PrivateKey string `json:"private_key_hex"`
}

// KeyRegistry owns namespace Ed25519 signing keys plus a set of externally
// issued trusted public keys: store-backed persistence with an in-memory
// cache guarded by a single mutex.
type KeyRegistry struct {
	mu         sync.RWMutex
	namespaces map[string]*namespaceKeyRecord
	trusted    map[string]trustedKey
	storePath  string
}

type trustedKey struct {
	Namespace string // empty = unscoped
	PublicKey ed25519.PublicKey
}

// NewKeyRegistry opens (or creates) a registry backed by storeDir/namespace_keys.json.
func NewKeyRegistry(storeDir string) (*KeyRegistry, error) {
	r := &KeyRegistry{
		namespaces: make(map[string]*namespaceKeyRecord),
		trusted:    make(map[string]trustedKey),
		storePath:  filepath.Join(storeDir, "namespace_keys.json"),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *KeyRegistry) load() error {
	data, err := os.ReadFile(r.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "read namespace key store", err)
	}
	var records map[string]*namespaceKeyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "parse namespace key store", err)
	}
	r.namespaces = records
	if r.namespaces == nil {
		r.namespaces = make(map[string]*namespaceKeyRecord)
	}
	return nil
}

func (r *KeyRegistry) save() error {
	data, err := json.Marshal(r.namespaces)
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "marshal namespace key store", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.storePath), 0o755); err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "create namespace key store dir", err)
	}
	return os.WriteFile(r.storePath, data, 0o600)
}

// RegisterNamespaceKey generates and persists a fresh signing key for namespace,
// returning its public key as hex. Idempotent: calling it again for an
// existing namespace returns the existing public key rather than rotating it.
func (r *KeyRegistry) RegisterNamespaceKey(namespace string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.namespaces[namespace]; ok {
		return rec.PublicKey, nil
	}

	priv, pub, err := GenerateKeyPair()
	if err != nil {
		return "", err
	}
	rec := &namespaceKeyRecord{
		Namespace:  namespace,
		PublicKey:  hex.EncodeToString(pub),
		PrivateKey: hex.EncodeToString(priv),
	}
	r.namespaces[namespace] = rec
	if err := r.save(); err != nil {
		return "", err
	}
	return rec.PublicKey, nil
}

// GetNamespaceKey returns the private signing key for namespace.
func (r *KeyRegistry) GetNamespaceKey(namespace string) (ed25519.PrivateKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.namespaces[namespace]
	if !ok {
		return nil, aifserrors.NotFoundf("namespace_key", namespace)
	}
	priv, err := hex.DecodeString(rec.PrivateKey)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "decode namespace private key", err)
	}
	return ed25519.PrivateKey(priv), nil
}

// GetNamespacePublicKey returns the public signing key for namespace.
func (r *KeyRegistry) GetNamespacePublicKey(namespace string) (ed25519.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.namespaces[namespace]
	if !ok {
		return nil, aifserrors.NotFoundf("namespace_key", namespace)
	}
	pub, err := hex.DecodeString(rec.PublicKey)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "decode namespace public key", err)
	}
	return ed25519.PublicKey(pub), nil
}

// ListNamespaceKeys returns the namespaces with a registered signing key.
func (r *KeyRegistry) ListNamespaceKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		out = append(out, ns)
	}
	return out
}

// PinTrustedKey registers an externally issued public key the verifier can
// look up by keyID, optionally scoped to a namespace (spec §4.5's
// trusted-key pinning).
func (r *KeyRegistry) PinTrustedKey(keyID, namespace string, pub ed25519.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trusted[keyID] = trustedKey{Namespace: namespace, PublicKey: pub}
}

// TrustedKey looks up a pinned public key by ID, optionally checking that it
// is scoped to namespace (empty namespace argument skips the check).
func (r *KeyRegistry) TrustedKey(keyID, namespace string) (ed25519.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tk, ok := r.trusted[keyID]
	if !ok {
		return nil, aifserrors.NotFoundf("trusted_key", keyID)
	}
	if tk.Namespace != "" && namespace != "" && tk.Namespace != namespace {
		return nil, aifserrors.PermissionDeniedf("trusted_key", keyID)
	}
	return tk.PublicKey, nil
}
