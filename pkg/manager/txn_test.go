package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/aifs/pkg/storage"
)

func newTestTxnManager(t *testing.T, strongCausality bool) *TxnManager {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewTxnManager(store, strongCausality)
}

func TestTxnBasicCommit(t *testing.T) {
	m := newTestTxnManager(t, true)

	txn, err := m.Begin()
	require.NoError(t, err)

	require.NoError(t, m.AddAsset(txn, "a1"))

	visible, err := m.IsVisible("a1")
	require.NoError(t, err)
	assert.False(t, visible, "strong causality defers visibility to commit")

	ok, err := m.Commit(txn)
	require.NoError(t, err)
	assert.True(t, ok)

	visible, err = m.IsVisible("a1")
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestTxnStrongCausalityOrdering(t *testing.T) {
	m := newTestTxnManager(t, true)

	t1, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.AddAsset(t1, "parent"))

	t2, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.AddAsset(t2, "child"))
	require.NoError(t, m.AddDependency(t2, "parent"))

	ok, err := m.Commit(t2)
	require.NoError(t, err)
	assert.False(t, ok, "commit must be refused while the parent is not yet visible")

	visible, err := m.IsVisible("child")
	require.NoError(t, err)
	assert.False(t, visible)

	ok, err = m.Commit(t1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Commit(t2)
	require.NoError(t, err)
	assert.True(t, ok, "commit succeeds once the dependency is visible")

	visible, err = m.IsVisible("child")
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestTxnRollbackClearsVisibility(t *testing.T) {
	m := newTestTxnManager(t, false)

	txn, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.AddAsset(txn, "a1"))

	visible, err := m.IsVisible("a1")
	require.NoError(t, err)
	assert.True(t, visible, "strong causality off makes assets visible on enrollment")

	ok, err := m.Rollback(txn)
	require.NoError(t, err)
	assert.True(t, ok)

	visible, err = m.IsVisible("a1")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestTxnCycleDeadlocksCommit(t *testing.T) {
	m := newTestTxnManager(t, true)

	ta, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.AddAsset(ta, "a"))
	require.NoError(t, m.AddDependency(ta, "b"))

	tb, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.AddAsset(tb, "b"))
	require.NoError(t, m.AddDependency(tb, "a"))

	okA, err := m.Commit(ta)
	require.NoError(t, err)
	assert.False(t, okA)

	okB, err := m.Commit(tb)
	require.NoError(t, err)
	assert.False(t, okB)
}

func TestTxnAddAssetRejectsDoubleEnrollment(t *testing.T) {
	m := newTestTxnManager(t, true)

	t1, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.AddAsset(t1, "a1"))

	t2, err := m.Begin()
	require.NoError(t, err)
	err = m.AddAsset(t2, "a1")
	assert.Error(t, err)
}

func TestWaitForDependenciesTimesOut(t *testing.T) {
	m := newTestTxnManager(t, true)

	txn, err := m.Begin()
	require.NoError(t, err)
	require.NoError(t, m.AddDependency(txn, "never-committed"))

	ok, err := m.WaitForDependencies(txn, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
