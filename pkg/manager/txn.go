package manager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/aifs/pkg/aifserrors"
	"github.com/cuemby/aifs/pkg/storage"
	"github.com/cuemby/aifs/pkg/types"
)

// TxnManager is AIFS's transaction manager (spec §4.9): the component that
// turns "write then read" into strong causal visibility between a committed
// child asset and every parent it declares a dependency on. It serializes
// all state transitions behind a single (non-reentrant) mutex; readers consult
// the store's asset_visibility table directly and never take this lock.
type TxnManager struct {
	mu    sync.Mutex
	store storage.Store

	// strongCausality, when false, makes every enrolled asset visible
	// immediately rather than deferring visibility to commit (spec §6.4's
	// enable_strong_causality, used for bulk-load bootstrap).
	strongCausality bool
}

// NewTxnManager returns a transaction manager backed by store.
func NewTxnManager(store storage.Store, strongCausality bool) *TxnManager {
	return &TxnManager{store: store, strongCausality: strongCausality}
}

// Begin creates a fresh PENDING transaction and returns its ID.
func (m *TxnManager) Begin() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := &types.Transaction{
		TransactionID: uuid.NewString(),
		State:         types.TransactionPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := m.store.CreateTransaction(txn); err != nil {
		return "", err
	}
	return txn.TransactionID, nil
}

// AddAsset enrolls assetID in txn. Only legal while txn is PENDING; asserts
// the asset is not already enrolled in a different live (non-terminal)
// transaction.
func (m *TxnManager) AddAsset(txnID, assetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := m.requirePending(txnID)
	if err != nil {
		return err
	}
	if owner, err := m.ownerOf(assetID, txnID); err != nil {
		return err
	} else if owner != "" {
		return aifserrors.FailedPreconditionf("asset already enrolled", "asset "+assetID+" is already enrolled in transaction "+owner)
	}

	for _, a := range txn.Assets {
		if a == assetID {
			return nil
		}
	}
	txn.Assets = append(txn.Assets, assetID)
	txn.UpdatedAt = time.Now()
	if err := m.store.UpdateTransaction(txn); err != nil {
		return err
	}

	if !m.strongCausality {
		return m.store.SetVisible(assetID, txnID, txn.UpdatedAt)
	}
	return nil
}

// ownerOf returns the transaction ID of any other live transaction that
// already has assetID enrolled, or "" if none does.
func (m *TxnManager) ownerOf(assetID, excludeTxnID string) (string, error) {
	for _, state := range []types.TransactionState{types.TransactionPending, types.TransactionCommitting, types.TransactionRollingBack} {
		txns, err := m.store.ListTransactionsByState(state)
		if err != nil {
			return "", err
		}
		for _, t := range txns {
			if t.TransactionID == excludeTxnID {
				continue
			}
			for _, a := range t.Assets {
				if a == assetID {
					return t.TransactionID, nil
				}
			}
		}
	}
	return "", nil
}

// AddDependency declares that txn's enrolled assets depend on parentAssetID.
// Only legal while txn is PENDING.
func (m *TxnManager) AddDependency(txnID, parentAssetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := m.requirePending(txnID)
	if err != nil {
		return err
	}
	for _, d := range txn.Dependencies {
		if d == parentAssetID {
			return nil
		}
	}
	txn.Dependencies = append(txn.Dependencies, parentAssetID)
	txn.UpdatedAt = time.Now()
	return m.store.UpdateTransaction(txn)
}

// DependenciesSatisfied reports whether every parent txn declared is visible.
func (m *TxnManager) DependenciesSatisfied(txnID string) (bool, error) {
	txn, err := m.store.GetTransaction(txnID)
	if err != nil {
		return false, err
	}
	for _, parent := range txn.Dependencies {
		visible, err := m.store.IsVisible(parent)
		if err != nil {
			return false, err
		}
		if !visible {
			return false, nil
		}
	}
	return true, nil
}

// Commit requires DependenciesSatisfied; on success it atomically moves txn
// through COMMITTING to COMMITTED, publishing visibility for every enrolled
// asset stamped with the same committed_at so the set becomes visible
// simultaneously from any observer's perspective. On any failure it sets
// FAILED and leaves visibility untouched, returning false.
func (m *TxnManager) Commit(txnID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := m.requirePending(txnID)
	if err != nil {
		return false, err
	}

	ok, err := m.dependenciesSatisfiedLocked(txn)
	if err != nil {
		return false, err
	}
	if !ok {
		// Refused: stays PENDING per the state machine.
		return false, nil
	}

	txn.State = types.TransactionCommitting
	txn.UpdatedAt = time.Now()
	if err := m.store.UpdateTransaction(txn); err != nil {
		return false, m.fail(txn, err)
	}

	committedAt := time.Now()
	for _, assetID := range txn.Assets {
		if err := m.store.SetVisible(assetID, txn.TransactionID, committedAt); err != nil {
			return false, m.fail(txn, err)
		}
	}

	txn.State = types.TransactionCommitted
	txn.UpdatedAt = time.Now()
	if err := m.store.UpdateTransaction(txn); err != nil {
		return false, m.fail(txn, err)
	}
	return true, nil
}

// Rollback moves txn through ROLLING_BACK to ROLLED_BACK, clearing any
// visibility rows associated with its enrolled assets (relevant when
// strong causality is off and assets were made visible on enrollment).
func (m *TxnManager) Rollback(txnID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn, err := m.requirePending(txnID)
	if err != nil {
		return false, err
	}

	txn.State = types.TransactionRollingBack
	txn.UpdatedAt = time.Now()
	if err := m.store.UpdateTransaction(txn); err != nil {
		return false, m.fail(txn, err)
	}

	for _, assetID := range txn.Assets {
		if err := m.store.ClearVisibility(assetID); err != nil {
			return false, m.fail(txn, err)
		}
	}

	txn.State = types.TransactionRolledBack
	txn.UpdatedAt = time.Now()
	if err := m.store.UpdateTransaction(txn); err != nil {
		return false, m.fail(txn, err)
	}
	return true, nil
}

// IsVisible reports whether assetID is currently readable to non-transactional lookups.
func (m *TxnManager) IsVisible(assetID string) (bool, error) {
	return m.store.IsVisible(assetID)
}

// WaitForDependencies polls DependenciesSatisfied until it is true or timeout
// elapses. It is advisory: it never mutates transaction state and returning
// false on expiry is not itself a failure.
func (m *TxnManager) WaitForDependencies(txnID string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 10 * time.Millisecond
	for {
		ok, err := m.DependenciesSatisfied(txnID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(pollInterval)
	}
}

// requirePending loads txnID and asserts it is PENDING.
func (m *TxnManager) requirePending(txnID string) (*types.Transaction, error) {
	txn, err := m.store.GetTransaction(txnID)
	if err != nil {
		return nil, err
	}
	if txn.State != types.TransactionPending {
		return nil, aifserrors.FailedPreconditionf("transaction not pending", "transaction "+txnID+" is in state "+string(txn.State))
	}
	return txn, nil
}

// dependenciesSatisfiedLocked is DependenciesSatisfied for a transaction
// already loaded under m.mu.
func (m *TxnManager) dependenciesSatisfiedLocked(txn *types.Transaction) (bool, error) {
	for _, parent := range txn.Dependencies {
		visible, err := m.store.IsVisible(parent)
		if err != nil {
			return false, err
		}
		if !visible {
			return false, nil
		}
	}
	return true, nil
}

// fail moves txn to FAILED and swallows (logs via the returned error chain)
// any secondary error from the state-update attempt itself, surfacing the
// original cause to the caller.
func (m *TxnManager) fail(txn *types.Transaction, cause error) error {
	txn.State = types.TransactionFailed
	txn.UpdatedAt = time.Now()
	_ = m.store.UpdateTransaction(txn)
	return aifserrors.Wrap(aifserrors.Internal, "transaction commit/rollback failed", cause)
}
