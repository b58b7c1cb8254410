package storage

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/aifs/pkg/aifserrors"
	"github.com/cuemby/aifs/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketAssets        = []byte("assets")
	bucketLineage        = []byte("lineage")
	bucketNamespaces     = []byte("namespaces")
	bucketSnapshots      = []byte("snapshots")
	bucketBranches       = []byte("branches")
	bucketBranchHistory  = []byte("branch_history")
	bucketTags           = []byte("tags")
	bucketTransactions   = []byte("transactions")
	bucketVisibility     = []byte("asset_visibility")
)

// BoltStore implements Store using go.etcd.io/bbolt: one JSON-encoded
// value per key and one bucket per entity.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) a bbolt database at dataDir/aifs.db.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "aifs.db")

	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "open metadata database", err)
	}

	buckets := [][]byte{
		bucketAssets, bucketLineage, bucketNamespaces, bucketSnapshots,
		bucketBranches, bucketBranchHistory, bucketTags, bucketTransactions,
		bucketVisibility,
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, aifserrors.Wrap(aifserrors.Internal, "create metadata buckets", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func put(tx *bolt.Tx, bucket []byte, key string, v any) error {
	b := tx.Bucket(bucket)
	data, err := json.Marshal(v)
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "marshal record", err)
	}
	return b.Put([]byte(key), data)
}

func get(tx *bolt.Tx, bucket []byte, key string, resourceType string, v any) error {
	b := tx.Bucket(bucket)
	data := b.Get([]byte(key))
	if data == nil {
		return aifserrors.NotFoundf(resourceType, key)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return aifserrors.Wrap(aifserrors.DataCorruption, "unmarshal "+resourceType, err)
	}
	return nil
}

// --- Assets ---

func (s *BoltStore) CreateAsset(asset *types.Asset) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAssets)
		if b.Get([]byte(asset.AssetID)) != nil {
			return aifserrors.AlreadyExistsf("asset", asset.AssetID)
		}
		return put(tx, bucketAssets, asset.AssetID, asset)
	})
}

func (s *BoltStore) GetAsset(assetID string) (*types.Asset, error) {
	var asset types.Asset
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, bucketAssets, assetID, "asset", &asset)
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *BoltStore) ListAssets() ([]*types.Asset, error) {
	var assets []*types.Asset
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssets).ForEach(func(k, v []byte) error {
			var a types.Asset
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			assets = append(assets, &a)
			return nil
		})
	})
	return assets, err
}

func (s *BoltStore) DeleteAsset(assetID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAssets).Delete([]byte(assetID))
	})
}

// --- Lineage ---

func (s *BoltStore) CreateLineageEdge(edge *types.LineageEdge) error {
	key := edge.ChildID + ":" + edge.ParentID
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketLineage, key, edge)
	})
}

func (s *BoltStore) ListParents(childID string) ([]*types.LineageEdge, error) {
	return s.scanLineage(func(e *types.LineageEdge) bool { return e.ChildID == childID })
}

func (s *BoltStore) ListChildren(parentID string) ([]*types.LineageEdge, error) {
	return s.scanLineage(func(e *types.LineageEdge) bool { return e.ParentID == parentID })
}

func (s *BoltStore) scanLineage(match func(*types.LineageEdge) bool) ([]*types.LineageEdge, error) {
	var edges []*types.LineageEdge
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLineage).ForEach(func(k, v []byte) error {
			var e types.LineageEdge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if match(&e) {
				edges = append(edges, &e)
			}
			return nil
		})
	})
	return edges, err
}

// --- Namespaces ---

func (s *BoltStore) CreateNamespace(ns *types.Namespace) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNamespaces)
		if b.Get([]byte(ns.Name)) != nil {
			return aifserrors.AlreadyExistsf("namespace", ns.Name)
		}
		return put(tx, bucketNamespaces, ns.Name, ns)
	})
}

func (s *BoltStore) GetNamespace(name string) (*types.Namespace, error) {
	var ns types.Namespace
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, bucketNamespaces, name, "namespace", &ns)
	})
	if err != nil {
		return nil, err
	}
	return &ns, nil
}

func (s *BoltStore) ListNamespaces() ([]*types.Namespace, error) {
	var out []*types.Namespace
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNamespaces).ForEach(func(k, v []byte) error {
			var ns types.Namespace
			if err := json.Unmarshal(v, &ns); err != nil {
				return err
			}
			out = append(out, &ns)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteNamespace(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNamespaces).Delete([]byte(name))
	})
}

// --- Snapshots ---

func (s *BoltStore) CreateSnapshot(snap *types.Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if b.Get([]byte(snap.SnapshotID)) != nil {
			return aifserrors.AlreadyExistsf("snapshot", snap.SnapshotID)
		}
		return put(tx, bucketSnapshots, snap.SnapshotID, snap)
	})
}

func (s *BoltStore) GetSnapshot(snapshotID string) (*types.Snapshot, error) {
	var snap types.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, bucketSnapshots, snapshotID, "snapshot", &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *BoltStore) ListSnapshotsByNamespace(namespace string) ([]*types.Snapshot, error) {
	var out []*types.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			var snap types.Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			if snap.Namespace == namespace {
				out = append(out, &snap)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteSnapshot(snapshotID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte(snapshotID))
	})
}

// --- Branches ---

func branchKey(namespace, branchName string) string { return namespace + ":" + branchName }

func (s *BoltStore) UpsertBranch(branch *types.Branch) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketBranches, branchKey(branch.Namespace, branch.BranchName), branch)
	})
}

func (s *BoltStore) GetBranch(namespace, branchName string) (*types.Branch, error) {
	var branch types.Branch
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, bucketBranches, branchKey(namespace, branchName), "branch", &branch)
	})
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (s *BoltStore) ListBranches(namespace string) ([]*types.Branch, error) {
	var out []*types.Branch
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBranches).ForEach(func(k, v []byte) error {
			var branch types.Branch
			if err := json.Unmarshal(v, &branch); err != nil {
				return err
			}
			if branch.Namespace == namespace {
				out = append(out, &branch)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteBranch(namespace, branchName string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBranches).Delete([]byte(branchKey(namespace, branchName)))
	})
}

func (s *BoltStore) AppendBranchHistory(entry *types.BranchHistoryEntry) error {
	key := branchKey(entry.Namespace, entry.BranchName) + ":" + entry.UpdatedAt.Format("20060102T150405.000000000")
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketBranchHistory, key, entry)
	})
}

func (s *BoltStore) ListBranchHistory(namespace, branchName string) ([]*types.BranchHistoryEntry, error) {
	var out []*types.BranchHistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBranchHistory).ForEach(func(k, v []byte) error {
			var entry types.BranchHistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			if entry.Namespace == namespace && entry.BranchName == branchName {
				out = append(out, &entry)
			}
			return nil
		})
	})
	return out, err
}

// --- Tags ---

func tagKey(namespace, tagName string) string { return namespace + ":" + tagName }

// CreateTag binds namespace/tagName to snapshotID. Tags are write-once: a
// re-creation with the same snapshot_id is an idempotent no-op success
// (spec §8's "Tag re-creation with the same (namespace, tag_name,
// snapshot_id): idempotent success"); a re-creation with a different
// snapshot_id is AlreadyExists.
func (s *BoltStore) CreateTag(tag *types.Tag) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTags)
		key := tagKey(tag.Namespace, tag.TagName)
		if existing := b.Get([]byte(key)); existing != nil {
			var prev types.Tag
			if err := json.Unmarshal(existing, &prev); err != nil {
				return aifserrors.Wrap(aifserrors.Internal, "unmarshal existing tag", err)
			}
			if prev.SnapshotID == tag.SnapshotID {
				return nil
			}
			return aifserrors.AlreadyExistsf("tag", key)
		}
		return put(tx, bucketTags, key, tag)
	})
}

func (s *BoltStore) GetTag(namespace, tagName string) (*types.Tag, error) {
	var tag types.Tag
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, bucketTags, tagKey(namespace, tagName), "tag", &tag)
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// DeleteTag removes namespace/tagName. Tags are otherwise write-once; this
// exists only for the policy-gated delete_tag operation (spec §4.10), whose
// gating is enforced by the caller (the asset manager's authorization
// layer), not by the store.
func (s *BoltStore) DeleteTag(namespace, tagName string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTags).Delete([]byte(tagKey(namespace, tagName)))
	})
}

func (s *BoltStore) ListTags(namespace string) ([]*types.Tag, error) {
	var out []*types.Tag
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTags).ForEach(func(k, v []byte) error {
			var tag types.Tag
			if err := json.Unmarshal(v, &tag); err != nil {
				return err
			}
			if tag.Namespace == namespace {
				out = append(out, &tag)
			}
			return nil
		})
	})
	return out, err
}

// --- Transactions ---

func (s *BoltStore) CreateTransaction(txn *types.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		if b.Get([]byte(txn.TransactionID)) != nil {
			return aifserrors.AlreadyExistsf("transaction", txn.TransactionID)
		}
		return put(tx, bucketTransactions, txn.TransactionID, txn)
	})
}

func (s *BoltStore) GetTransaction(transactionID string) (*types.Transaction, error) {
	var txn types.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, bucketTransactions, transactionID, "transaction", &txn)
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (s *BoltStore) UpdateTransaction(txn *types.Transaction) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketTransactions).Get([]byte(txn.TransactionID)) == nil {
			return aifserrors.NotFoundf("transaction", txn.TransactionID)
		}
		return put(tx, bucketTransactions, txn.TransactionID, txn)
	})
}

func (s *BoltStore) ListTransactionsByState(state types.TransactionState) ([]*types.Transaction, error) {
	var out []*types.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTransactions).ForEach(func(k, v []byte) error {
			var txn types.Transaction
			if err := json.Unmarshal(v, &txn); err != nil {
				return err
			}
			if txn.State == state {
				out = append(out, &txn)
			}
			return nil
		})
	})
	return out, err
}

// CleanupOldTransactions purges terminal (committed, rolled back, or
// failed) transactions whose UpdatedAt predates olderThan.
func (s *BoltStore) CleanupOldTransactions(olderThan time.Time) (int, error) {
	terminal := map[types.TransactionState]bool{
		types.TransactionCommitted:  true,
		types.TransactionRolledBack: true,
		types.TransactionFailed:     true,
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTransactions)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var txn types.Transaction
			if err := json.Unmarshal(v, &txn); err != nil {
				return err
			}
			if terminal[txn.State] && txn.UpdatedAt.Before(olderThan) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

// --- Visibility (spec §4.9's asset_visibility table) ---

type visibilityRecord struct {
	TransactionID string    `json:"transaction_id"`
	CommittedAt   time.Time `json:"committed_at"`
	Visible       bool      `json:"visible"`
}

// SetVisible records assetID as visible, stamped with the committing
// transaction and commit time. Commit (spec §4.9) calls this once per
// enrolled asset inside the same atomic step that flips the transaction's
// state, so every enrolled asset becomes visible simultaneously from any
// reader's perspective (no partial visibility of a transaction's set).
func (s *BoltStore) SetVisible(assetID, transactionID string, committedAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketVisibility, assetID, visibilityRecord{
			TransactionID: transactionID,
			CommittedAt:   committedAt,
			Visible:       true,
		})
	})
}

// IsVisible reports whether assetID has a visibility row with Visible=true.
// A missing row (never committed, or cleared by rollback or asset delete)
// is not visible.
func (s *BoltStore) IsVisible(assetID string) (bool, error) {
	var rec visibilityRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return get(tx, bucketVisibility, assetID, "asset_visibility", &rec)
	})
	if aifserrors.Is(err, aifserrors.NotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Visible, nil
}

// ClearVisibility removes assetID's visibility row, used by rollback to
// revoke visibility for every asset enrolled in a rolled-back transaction.
func (s *BoltStore) ClearVisibility(assetID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVisibility).Delete([]byte(assetID))
	})
}

// ListVisibleSince returns the IDs of assets that became visible at or
// after since, ordered by commit time — the access pattern the spec's
// design notes call out as needing to "remain cheap" via an index on
// (visible, committed_at); here that's a single bucket scan over a table
// that only ever holds visible rows.
func (s *BoltStore) ListVisibleSince(since time.Time) ([]string, error) {
	type idAt struct {
		id string
		at time.Time
	}
	var out []idAt
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketVisibility).ForEach(func(k, v []byte) error {
			var rec visibilityRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.Visible && !rec.CommittedAt.Before(since) {
				out = append(out, idAt{id: string(k), at: rec.CommittedAt})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	ids := make([]string, len(out))
	for i, e := range out {
		ids[i] = e.id
	}
	return ids, nil
}
