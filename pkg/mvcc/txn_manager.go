package mvcc

import "sort"

// TransactionManager allocates transaction ids and tracks the set of
// transactions currently in progress.
type TransactionManager struct {
	nextTxnID TxnID
	active    map[TxnID]*Transaction
}

// NewTransactionManager creates a manager whose first transaction receives
// id 1.
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{
		nextTxnID: 1,
		active:    make(map[TxnID]*Transaction),
	}
}

// Begin allocates the next id, snapshots the current active set, and
// registers the new transaction as active. The new transaction is excluded
// from its own snapshot.
func (tm *TransactionManager) Begin() *Transaction {
	id := tm.nextTxnID
	tm.nextTxnID++

	active := make([]TxnID, 0, len(tm.active))
	for other := range tm.active {
		if other < id {
			active = append(active, other)
		}
	}

	txn := NewTransaction(id, NewSnapshot(id, active))
	tm.active[id] = txn
	return txn
}

// Commit removes the transaction from the active table. Recording the
// terminal status in the commit table is the caller's responsibility.
func (tm *TransactionManager) Commit(txn *Transaction) {
	delete(tm.active, txn.ID)
}

// Abort removes the transaction from the active table.
func (tm *TransactionManager) Abort(txn *Transaction) {
	delete(tm.active, txn.ID)
}

// IsActive reports whether the transaction is still in progress.
func (tm *TransactionManager) IsActive(id TxnID) bool {
	_, ok := tm.active[id]
	return ok
}

// Get returns the active transaction with the given id, or nil.
func (tm *TransactionManager) Get(id TxnID) *Transaction {
	return tm.active[id]
}

// NextTxnID returns the id the next transaction will receive.
func (tm *TransactionManager) NextTxnID() TxnID {
	return tm.nextTxnID
}

// ActiveTxns returns the ids of all in-progress transactions, sorted.
func (tm *TransactionManager) ActiveTxns() []TxnID {
	ids := make([]TxnID, 0, len(tm.active))
	for id := range tm.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GlobalOldestXmin returns the horizon below which no live snapshot can
// observe anything: the minimum snapshot xmin over active transactions, or
// the next id to be assigned when none are active.
func (tm *TransactionManager) GlobalOldestXmin() TxnID {
	if len(tm.active) == 0 {
		return tm.nextTxnID
	}

	oldest := TxnID(0)
	for _, txn := range tm.active {
		if oldest == 0 || txn.Snapshot.Xmin < oldest {
			oldest = txn.Snapshot.Xmin
		}
	}
	return oldest
}
