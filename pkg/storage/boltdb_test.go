package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/aifs/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssetCreateGetDelete(t *testing.T) {
	s := newTestStore(t)
	asset := &types.Asset{AssetID: "a1", Kind: types.AssetKindBlob, Size: 10, CreatedAt: time.Now()}

	require.NoError(t, s.CreateAsset(asset))
	err := s.CreateAsset(asset)
	assert.Error(t, err)

	got, err := s.GetAsset("a1")
	require.NoError(t, err)
	assert.Equal(t, asset.Size, got.Size)

	require.NoError(t, s.DeleteAsset("a1"))
	_, err = s.GetAsset("a1")
	assert.Error(t, err)
}

func TestLineageParentsAndChildren(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateLineageEdge(&types.LineageEdge{ChildID: "c1", ParentID: "p1", TransformName: "resize"}))
	require.NoError(t, s.CreateLineageEdge(&types.LineageEdge{ChildID: "c1", ParentID: "p2", TransformName: "crop"}))

	parents, err := s.ListParents("c1")
	require.NoError(t, err)
	assert.Len(t, parents, 2)

	children, err := s.ListChildren("p1")
	require.NoError(t, err)
	assert.Len(t, children, 1)
	assert.Equal(t, "c1", children[0].ChildID)
}

func TestNamespaceLifecycle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateNamespace(&types.Namespace{Name: "default"}))
	assert.Error(t, s.CreateNamespace(&types.Namespace{Name: "default"}))

	list, err := s.ListNamespaces()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteNamespace("default"))
	_, err = s.GetNamespace("default")
	assert.Error(t, err)
}

func TestBranchUpsertAndHistory(t *testing.T) {
	s := newTestStore(t)
	branch := &types.Branch{Namespace: "ns", BranchName: "main", SnapshotID: "s1", UpdatedAt: time.Now()}
	require.NoError(t, s.UpsertBranch(branch))

	got, err := s.GetBranch("ns", "main")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SnapshotID)

	branch.SnapshotID = "s2"
	branch.UpdatedAt = time.Now()
	require.NoError(t, s.UpsertBranch(branch))
	require.NoError(t, s.AppendBranchHistory(&types.BranchHistoryEntry{
		Namespace: "ns", BranchName: "main", OldSnapshotID: "s1", NewSnapshotID: "s2", UpdatedAt: time.Now(),
	}))

	history, err := s.ListBranchHistory("ns", "main")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTagIsWriteOnce(t *testing.T) {
	s := newTestStore(t)
	tag := &types.Tag{Namespace: "ns", TagName: "v1", SnapshotID: "s1"}
	require.NoError(t, s.CreateTag(tag))

	// Re-creating with the same snapshot_id is an idempotent success.
	require.NoError(t, s.CreateTag(&types.Tag{Namespace: "ns", TagName: "v1", SnapshotID: "s1"}))

	// Re-creating with a different snapshot_id is AlreadyExists.
	assert.Error(t, s.CreateTag(&types.Tag{Namespace: "ns", TagName: "v1", SnapshotID: "s2"}))

	got, err := s.GetTag("ns", "v1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SnapshotID)
}

func TestTransactionLifecycle(t *testing.T) {
	s := newTestStore(t)
	txn := &types.Transaction{TransactionID: "t1", State: types.TransactionPending}
	require.NoError(t, s.CreateTransaction(txn))

	txn.State = types.TransactionCommitted
	require.NoError(t, s.UpdateTransaction(txn))

	committed, err := s.ListTransactionsByState(types.TransactionCommitted)
	require.NoError(t, err)
	assert.Len(t, committed, 1)

	_, err = s.GetTransaction("t1")
	require.NoError(t, err)

	err = s.UpdateTransaction(&types.Transaction{TransactionID: "missing"})
	assert.Error(t, err)
}

func TestVisibilitySetClear(t *testing.T) {
	s := newTestStore(t)

	visible, err := s.IsVisible("a1")
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, s.SetVisible("a1", "t1", time.Now()))
	visible, err = s.IsVisible("a1")
	require.NoError(t, err)
	assert.True(t, visible)

	require.NoError(t, s.ClearVisibility("a1"))
	visible, err = s.IsVisible("a1")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestCleanupOldTransactions(t *testing.T) {
	s := newTestStore(t)
	old := &types.Transaction{TransactionID: "old", State: types.TransactionCommitted, UpdatedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &types.Transaction{TransactionID: "fresh", State: types.TransactionCommitted, UpdatedAt: time.Now()}
	pending := &types.Transaction{TransactionID: "pending", State: types.TransactionPending, UpdatedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, s.CreateTransaction(old))
	require.NoError(t, s.CreateTransaction(fresh))
	require.NoError(t, s.CreateTransaction(pending))

	removed, err := s.CleanupOldTransactions(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.GetTransaction("old")
	assert.Error(t, err)
	_, err = s.GetTransaction("fresh")
	assert.NoError(t, err)
	_, err = s.GetTransaction("pending")
	assert.NoError(t, err)
}
