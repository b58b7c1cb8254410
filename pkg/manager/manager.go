package manager

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/aifs/pkg/aifserrors"
	"github.com/cuemby/aifs/pkg/chunkstore"
	"github.com/cuemby/aifs/pkg/codec"
	"github.com/cuemby/aifs/pkg/compression"
	"github.com/cuemby/aifs/pkg/merkle"
	"github.com/cuemby/aifs/pkg/security"
	"github.com/cuemby/aifs/pkg/storage"
	"github.com/cuemby/aifs/pkg/types"
	"github.com/cuemby/aifs/pkg/vectorindex"
)

// defaultKMSKeyID names the KMS key every namespace's chunks are sealed
// under absent a per-namespace key policy — one default key keeps the
// single-process engine usable out of the box.
const defaultKMSKeyID = "default"

// Config configures an AssetManager.
type Config struct {
	DataDir          string
	VectorDimension  int
	CompressionLevel int // zstd level, [1, 22]; 0 selects the default of 1
	KMSMasterKey     []byte
	StrongCausality  bool
}

// AssetManager is AIFS's orchestration layer (spec §4.10): a single struct
// holding every subsystem handle — chunk store, KMS, compression,
// Merkle/snapshot subsystem, vector index, metadata store, transaction
// manager — constructed once at startup and threaded through the RPC layer.
type AssetManager struct {
	store storage.Store
	chunk *chunkstore.Store
	kms   *security.KMS
	keys  *security.KeyRegistry
	comp  *compression.Service
	vidx  *vectorindex.Index
	txns  *TxnManager

	strongCausality bool
}

// NewAssetManager wires up every subsystem under cfg.DataDir and returns a
// ready-to-use AssetManager.
func NewAssetManager(cfg *Config) (*AssetManager, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "create data directory", err)
	}

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	chunk, err := chunkstore.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	kms, err := security.NewKMS(filepath.Join(cfg.DataDir, "kms"), cfg.KMSMasterKey)
	if err != nil {
		return nil, err
	}
	if _, err := kms.CreateKey(defaultKMSKeyID, security.KeyTypeAES256, nil, nil); err != nil && !aifserrors.Is(err, aifserrors.AlreadyExists) {
		return nil, err
	}

	keys, err := security.NewKeyRegistry(filepath.Join(cfg.DataDir, "keys"))
	if err != nil {
		return nil, err
	}

	level := cfg.CompressionLevel
	if level == 0 {
		level = 1
	}
	comp, err := compression.New(level)
	if err != nil {
		return nil, err
	}

	dim := cfg.VectorDimension
	if dim == 0 {
		dim = 128
	}
	vidx, err := vectorindex.Open(cfg.DataDir, dim)
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		store:           store,
		chunk:           chunk,
		kms:             kms,
		keys:            keys,
		comp:            comp,
		vidx:            vidx,
		txns:            NewTxnManager(store, cfg.StrongCausality),
		strongCausality: cfg.StrongCausality,
	}, nil
}

// ParentDependency is one declared parent of a put_asset call: the
// producing transform's name and digest, plus the parent's asset ID.
type ParentDependency struct {
	ParentID        string
	TransformName   string
	TransformDigest string
}

// PutAssetRequest bundles put_asset's parameters (spec §4.10).
type PutAssetRequest struct {
	Data         []byte
	Kind         types.AssetKind
	Embedding    []float32
	UserMetadata map[string]string
	Parents      []ParentDependency
	// TransactionID, if set, enrolls the asset in a caller-managed
	// transaction instead of an implicit auto-transaction wrapping this
	// call alone.
	TransactionID string
}

// PutAsset validates data against kind's codec, chunk-store-writes it
// (compressed, KMS-sealed), records metadata and any lineage/embedding
// rows, and enrolls the result in a transaction — either the caller's or
// an implicit one that commits before PutAsset returns. With strong
// causality on, the asset is only visible to non-transactional readers
// once its transaction commits and every declared parent is already
// visible.
func (m *AssetManager) PutAsset(req PutAssetRequest) (string, error) {
	if err := validateKind(req.Kind, req.Data); err != nil {
		return "", err
	}

	assetID := chunkstore.Hash(req.Data)

	if !m.chunk.Exists(assetID) {
		compressed, err := m.comp.Compress(req.Data)
		if err != nil {
			return "", err
		}
		framed, err := m.kms.Seal(defaultKMSKeyID, compressed)
		if err != nil {
			return "", err
		}
		if err := m.chunk.Put(assetID, framed); err != nil {
			return "", err
		}
	}

	if err := m.store.CreateAsset(&types.Asset{
		AssetID:      assetID,
		Kind:         req.Kind,
		Size:         int64(len(req.Data)),
		UserMetadata: req.UserMetadata,
		CreatedAt:    time.Now(),
	}); err != nil && !aifserrors.Is(err, aifserrors.AlreadyExists) {
		return "", err
	}

	for _, p := range req.Parents {
		if err := m.store.CreateLineageEdge(&types.LineageEdge{
			ChildID:         assetID,
			ParentID:        p.ParentID,
			TransformName:   p.TransformName,
			TransformDigest: p.TransformDigest,
			CreatedAt:       time.Now(),
		}); err != nil {
			return "", err
		}
	}

	if req.Embedding != nil {
		if err := m.vidx.Add(assetID, req.Embedding); err != nil {
			return "", err
		}
	}

	txnID := req.TransactionID
	autoTxn := txnID == ""
	if autoTxn {
		var err error
		txnID, err = m.txns.Begin()
		if err != nil {
			return "", err
		}
	}
	if err := m.txns.AddAsset(txnID, assetID); err != nil {
		return "", err
	}
	for _, p := range req.Parents {
		if err := m.txns.AddDependency(txnID, p.ParentID); err != nil {
			return "", err
		}
	}
	if autoTxn {
		ok, err := m.txns.Commit(txnID)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", aifserrors.FailedPreconditionf("commit", "auto-transaction for "+assetID+" could not commit: a declared parent is not yet visible")
		}
	}

	return assetID, nil
}

// validateKind round-trip-decodes data against kind's codec, matching
// spec §4.3's per-codec `validate: bytes -> bool` contract: a malformed
// frame for a non-blob kind is InvalidArgument, not a later DataCorruption.
func validateKind(kind types.AssetKind, data []byte) error {
	switch kind {
	case types.AssetKindBlob:
		return nil
	case types.AssetKindTensor:
		if _, err := codec.DecodeTensor(data); err != nil {
			return aifserrors.InvalidArgumentf("data", "not a valid tensor frame: "+err.Error())
		}
	case types.AssetKindEmbedding:
		if _, err := codec.DecodeEmbedding(data); err != nil {
			return aifserrors.InvalidArgumentf("data", "not a valid embedding frame: "+err.Error())
		}
	case types.AssetKindArtifact:
		if _, err := codec.DecodeArtifact(data); err != nil {
			return aifserrors.InvalidArgumentf("data", "not a valid artifact frame: "+err.Error())
		}
	default:
		return aifserrors.InvalidArgumentf("kind", "unknown asset kind "+string(kind))
	}
	return nil
}

// AssetRecord is the result shape of GetAsset: the decrypted plaintext
// alongside its metadata and lineage.
type AssetRecord struct {
	Asset    *types.Asset
	Data     []byte
	Parents  []*types.LineageEdge
	Children []*types.LineageEdge
}

// GetAsset returns assetID's plaintext and metadata. With strong causality
// on, an enrolled-but-not-yet-visible asset reads as NotFound, matching
// spec §4.10's "returns None for invisible assets".
func (m *AssetManager) GetAsset(assetID string) (*AssetRecord, error) {
	if m.strongCausality {
		visible, err := m.store.IsVisible(assetID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, aifserrors.NotFoundf("asset", assetID)
		}
	}

	asset, err := m.store.GetAsset(assetID)
	if err != nil {
		return nil, err
	}

	framed, err := m.chunk.Get(assetID)
	if err != nil {
		return nil, err
	}
	compressed, err := m.kms.Open(framed)
	if err != nil {
		return nil, err
	}
	data, err := m.comp.Decompress(compressed)
	if err != nil {
		return nil, err
	}
	if chunkstore.Hash(data) != assetID {
		return nil, aifserrors.New(aifserrors.DataCorruption, "decoded asset digest does not match asset_id", nil)
	}

	parents, err := m.store.ListParents(assetID)
	if err != nil {
		return nil, err
	}
	children, err := m.store.ListChildren(assetID)
	if err != nil {
		return nil, err
	}

	return &AssetRecord{Asset: asset, Data: data, Parents: parents, Children: children}, nil
}

// DeleteAsset removes assetID. It unconditionally refuses when any snapshot
// still references the asset; it refuses when a visible child exists
// unless force is set (force never overrides the snapshot check).
func (m *AssetManager) DeleteAsset(assetID string, force bool) (bool, error) {
	referenced, err := m.referencedBySnapshot(assetID)
	if err != nil {
		return false, err
	}
	if referenced {
		return false, aifserrors.FailedPreconditionf("delete_asset", "asset "+assetID+" is referenced by a snapshot")
	}

	if !force {
		children, err := m.store.ListChildren(assetID)
		if err != nil {
			return false, err
		}
		for _, edge := range children {
			visible, err := m.store.IsVisible(edge.ChildID)
			if err != nil {
				return false, err
			}
			if visible {
				return false, aifserrors.FailedPreconditionf("delete_asset", "asset "+assetID+" has a visible child "+edge.ChildID)
			}
		}
	}

	if _, err := m.chunk.Delete(assetID); err != nil {
		return false, err
	}
	if err := m.store.DeleteAsset(assetID); err != nil {
		return false, err
	}
	_ = m.store.ClearVisibility(assetID)
	_, _ = m.vidx.Delete(assetID)
	return true, nil
}

func (m *AssetManager) referencedBySnapshot(assetID string) (bool, error) {
	namespaces, err := m.store.ListNamespaces()
	if err != nil {
		return false, err
	}
	for _, ns := range namespaces {
		snaps, err := m.store.ListSnapshotsByNamespace(ns.Name)
		if err != nil {
			return false, err
		}
		for _, snap := range snaps {
			for _, member := range snap.Members {
				if member == assetID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// VectorSearch ranks the k nearest embeddings to query by ascending L2 distance.
func (m *AssetManager) VectorSearch(query []float32, k int) ([]vectorindex.Match, error) {
	return m.vidx.Search(query, k)
}

// CreateSnapshot builds a Merkle tree over the sorted member set, signs it
// under namespace's Ed25519 key (registering one if this is the namespace's
// first snapshot), and persists the signed snapshot record. Snapshot
// identity is a pure function of (merkle_root, created_at): two snapshots
// built from the same inputs at the same instant share an ID.
func (m *AssetManager) CreateSnapshot(namespace string, assetIDs []string, userMetadata map[string]string) (string, error) {
	sorted := append([]string(nil), assetIDs...)
	sort.Strings(sorted)

	tree := merkle.New(sorted)
	root := tree.RootHash()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	priv, err := m.namespaceSigningKey(namespace)
	if err != nil {
		return "", err
	}
	_, sigHex := security.SignSnapshot(priv, root, createdAt, namespace)

	snapshotID := chunkstore.Hash([]byte(root + ":" + createdAt))
	if err := m.store.CreateSnapshot(&types.Snapshot{
		SnapshotID:   snapshotID,
		Namespace:    namespace,
		MerkleRoot:   root,
		CreatedAt:    createdAt,
		SignatureHex: sigHex,
		UserMetadata: userMetadata,
		Members:      sorted,
	}); err != nil {
		return "", err
	}
	return snapshotID, nil
}

// namespaceSigningKey returns namespace's Ed25519 private key, registering
// one on first use (a namespace created only implicitly by its first
// snapshot still gets a stable signing identity).
func (m *AssetManager) namespaceSigningKey(namespace string) (ed25519.PrivateKey, error) {
	priv, err := m.keys.GetNamespaceKey(namespace)
	if err == nil {
		return priv, nil
	}
	if !aifserrors.Is(err, aifserrors.NotFound) {
		return nil, err
	}
	if _, err := m.keys.RegisterNamespaceKey(namespace); err != nil {
		return nil, err
	}
	return m.keys.GetNamespaceKey(namespace)
}

// GetSnapshot returns snapshotID's record without re-verifying its signature.
func (m *AssetManager) GetSnapshot(snapshotID string) (*types.Snapshot, error) {
	return m.store.GetSnapshot(snapshotID)
}

// VerifySnapshot reports whether snapshotID's signature verifies under its
// namespace's current public key.
func (m *AssetManager) VerifySnapshot(snapshotID string) (bool, error) {
	snap, err := m.store.GetSnapshot(snapshotID)
	if err != nil {
		return false, err
	}
	return m.verify(snap)
}

func (m *AssetManager) verify(snap *types.Snapshot) (bool, error) {
	pub, err := m.keys.GetNamespacePublicKey(snap.Namespace)
	if err != nil {
		return false, nil
	}
	sig, err := hex.DecodeString(snap.SignatureHex)
	if err != nil {
		return false, nil
	}
	return security.VerifySnapshot(pub, sig, snap.MerkleRoot, snap.CreatedAt, snap.Namespace), nil
}

// ListVerifiedSnapshots returns every snapshot in namespace whose signature
// verifies, filtering out (rather than erroring on) any that don't.
func (m *AssetManager) ListVerifiedSnapshots(namespace string) ([]*types.Snapshot, error) {
	all, err := m.store.ListSnapshotsByNamespace(namespace)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Snapshot, 0, len(all))
	for _, snap := range all {
		ok, err := m.verify(snap)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

// CreateNamespace registers a namespace, provisioning its Ed25519 signing key.
func (m *AssetManager) CreateNamespace(name, description string, metadata map[string]string) (*types.Namespace, error) {
	pubHex, err := m.keys.RegisterNamespaceKey(name)
	if err != nil {
		return nil, err
	}
	ns := &types.Namespace{
		Name:         name,
		Description:  description,
		Metadata:     metadata,
		PublicKeyHex: pubHex,
		CreatedAt:    time.Now(),
	}
	if err := m.store.CreateNamespace(ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func (m *AssetManager) GetNamespace(name string) (*types.Namespace, error) { return m.store.GetNamespace(name) }
func (m *AssetManager) ListNamespaces() ([]*types.Namespace, error)        { return m.store.ListNamespaces() }
func (m *AssetManager) DeleteNamespace(name string) error                  { return m.store.DeleteNamespace(name) }

// UpdateBranch creates namespace/branchName pointing at snapshotID if it
// does not yet exist, or repoints it and appends a history entry if it
// does — spec §4.10's "create_branch / update_branch (same entry point)".
func (m *AssetManager) UpdateBranch(namespace, branchName, snapshotID string, metadata map[string]string) (*types.Branch, error) {
	existing, err := m.store.GetBranch(namespace, branchName)
	if err != nil && !aifserrors.Is(err, aifserrors.NotFound) {
		return nil, err
	}

	now := time.Now()
	branch := &types.Branch{
		Namespace:  namespace,
		BranchName: branchName,
		SnapshotID: snapshotID,
		Metadata:   metadata,
		UpdatedAt:  now,
	}
	if existing != nil {
		branch.CreatedAt = existing.CreatedAt
	} else {
		branch.CreatedAt = now
	}
	if err := m.store.UpsertBranch(branch); err != nil {
		return nil, err
	}

	if existing != nil && existing.SnapshotID != snapshotID {
		if err := m.store.AppendBranchHistory(&types.BranchHistoryEntry{
			Namespace:     namespace,
			BranchName:    branchName,
			OldSnapshotID: existing.SnapshotID,
			NewSnapshotID: snapshotID,
			UpdatedAt:     now,
		}); err != nil {
			return nil, err
		}
	}
	return branch, nil
}

func (m *AssetManager) GetBranch(namespace, branchName string) (*types.Branch, error) {
	return m.store.GetBranch(namespace, branchName)
}
func (m *AssetManager) ListBranches(namespace string) ([]*types.Branch, error) {
	return m.store.ListBranches(namespace)
}
func (m *AssetManager) BranchHistory(namespace, branchName string) ([]*types.BranchHistoryEntry, error) {
	return m.store.ListBranchHistory(namespace, branchName)
}
func (m *AssetManager) DeleteBranch(namespace, branchName string) error {
	return m.store.DeleteBranch(namespace, branchName)
}

// CreateTag binds namespace/tagName to snapshotID. Tags are write-once: the
// underlying store treats a re-creation with the same snapshotID as an
// idempotent success and only rejects a rebind to a different snapshotID.
func (m *AssetManager) CreateTag(namespace, tagName, snapshotID string, metadata map[string]string) (*types.Tag, error) {
	tag := &types.Tag{Namespace: namespace, TagName: tagName, SnapshotID: snapshotID, Metadata: metadata, CreatedAt: time.Now()}
	if err := m.store.CreateTag(tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (m *AssetManager) GetTag(namespace, tagName string) (*types.Tag, error) {
	return m.store.GetTag(namespace, tagName)
}
func (m *AssetManager) ListTags(namespace string) ([]*types.Tag, error) {
	return m.store.ListTags(namespace)
}

// DeleteTag removes namespace/tagName. Callers are expected to have already
// enforced the admin-permission policy gate (spec §4.10: "delete is
// policy-gated") at the RPC authorization layer before reaching here.
func (m *AssetManager) DeleteTag(namespace, tagName string) error {
	return m.store.DeleteTag(namespace, tagName)
}

// BeginTransaction opens a new PENDING transaction a caller can enroll
// multiple PutAsset calls into before committing them together.
func (m *AssetManager) BeginTransaction() (string, error) {
	return m.txns.Begin()
}

// CommitTransaction attempts to commit txnID, returning false (no error) if
// the commit is refused because a declared dependency is not yet visible.
func (m *AssetManager) CommitTransaction(txnID string) (bool, error) {
	return m.txns.Commit(txnID)
}

// RollbackTransaction discards txnID, clearing visibility for any asset
// that had already been marked visible under relaxed causality.
func (m *AssetManager) RollbackTransaction(txnID string) (bool, error) {
	return m.txns.Rollback(txnID)
}

// TransactionDependenciesSatisfied reports whether every dependency
// declared under txnID is currently visible.
func (m *AssetManager) TransactionDependenciesSatisfied(txnID string) (bool, error) {
	return m.txns.DependenciesSatisfied(txnID)
}

// GetTransaction returns transactionID's current record.
func (m *AssetManager) GetTransaction(transactionID string) (*types.Transaction, error) {
	return m.store.GetTransaction(transactionID)
}

// Stats summarizes manager state for metrics/health reporting.
type Stats struct {
	Assets       int
	Namespaces   int
	VectorCount  int
	KMSKeys      int
	KMSExpired   int
	Transactions map[types.TransactionState]int
}

// Statistics gathers a point-in-time snapshot of manager state.
func (m *AssetManager) Statistics() (Stats, error) {
	assets, err := m.store.ListAssets()
	if err != nil {
		return Stats{}, err
	}
	namespaces, err := m.store.ListNamespaces()
	if err != nil {
		return Stats{}, err
	}

	kmsStats := m.kms.Statistics()

	txnCounts := make(map[types.TransactionState]int)
	for _, state := range []types.TransactionState{
		types.TransactionPending, types.TransactionCommitting, types.TransactionCommitted,
		types.TransactionRollingBack, types.TransactionRolledBack, types.TransactionFailed,
	} {
		txns, err := m.store.ListTransactionsByState(state)
		if err != nil {
			return Stats{}, err
		}
		txnCounts[state] = len(txns)
	}

	return Stats{
		Assets:       len(assets),
		Namespaces:   len(namespaces),
		VectorCount:  m.vidx.Count(),
		KMSKeys:      kmsStats.TotalKeys,
		KMSExpired:   kmsStats.ExpiredKeys,
		Transactions: txnCounts,
	}, nil
}

// Shutdown releases the durable metadata store.
func (m *AssetManager) Shutdown() error {
	return m.store.Close()
}
