// Package storage is AIFS's durable metadata store: everything except chunk
// bytes themselves (which live in pkg/chunkstore) — assets, lineage,
// snapshots, namespaces, branches, tags, transactions.
package storage

import (
	"time"

	"github.com/cuemby/aifs/pkg/types"
)

// Store is the durable metadata backend for the asset manager.
type Store interface {
	// Assets
	CreateAsset(asset *types.Asset) error
	GetAsset(assetID string) (*types.Asset, error)
	ListAssets() ([]*types.Asset, error)
	DeleteAsset(assetID string) error

	// Lineage
	CreateLineageEdge(edge *types.LineageEdge) error
	ListParents(childID string) ([]*types.LineageEdge, error)
	ListChildren(parentID string) ([]*types.LineageEdge, error)

	// Namespaces
	CreateNamespace(ns *types.Namespace) error
	GetNamespace(name string) (*types.Namespace, error)
	ListNamespaces() ([]*types.Namespace, error)
	DeleteNamespace(name string) error

	// Snapshots
	CreateSnapshot(snap *types.Snapshot) error
	GetSnapshot(snapshotID string) (*types.Snapshot, error)
	ListSnapshotsByNamespace(namespace string) ([]*types.Snapshot, error)
	DeleteSnapshot(snapshotID string) error

	// Branches
	UpsertBranch(branch *types.Branch) error
	GetBranch(namespace, branchName string) (*types.Branch, error)
	ListBranches(namespace string) ([]*types.Branch, error)
	DeleteBranch(namespace, branchName string) error
	AppendBranchHistory(entry *types.BranchHistoryEntry) error
	ListBranchHistory(namespace, branchName string) ([]*types.BranchHistoryEntry, error)

	// Tags (write-once; delete is a policy-gated escape hatch — spec §4.10)
	CreateTag(tag *types.Tag) error
	GetTag(namespace, tagName string) (*types.Tag, error)
	ListTags(namespace string) ([]*types.Tag, error)
	DeleteTag(namespace, tagName string) error

	// Transactions
	CreateTransaction(tx *types.Transaction) error
	GetTransaction(transactionID string) (*types.Transaction, error)
	UpdateTransaction(tx *types.Transaction) error
	ListTransactionsByState(state types.TransactionState) ([]*types.Transaction, error)
	// CleanupOldTransactions purges terminal transactions (COMMITTED,
	// ROLLED_BACK, FAILED) whose UpdatedAt is older than olderThan.
	CleanupOldTransactions(olderThan time.Time) (int, error)

	// Visibility (spec §4.9's asset_visibility table). Strong causality
	// is enforced entirely through this table: an asset is readable by
	// non-transactional lookups only once SetVisible has been called for
	// it.
	SetVisible(assetID, transactionID string, committedAt time.Time) error
	IsVisible(assetID string) (bool, error)
	ClearVisibility(assetID string) error
	ListVisibleSince(since time.Time) ([]string, error)

	Close() error
}
