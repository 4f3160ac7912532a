package mvcc

import "sort"

// Transaction holds the per-transaction state: the id, the snapshot frozen
// at BEGIN, the buffered writes, and the set of keys read. Writes stay in
// the buffer until commit applies them to the row store.
type Transaction struct {
	ID       TxnID
	Snapshot *Snapshot

	writes    map[string][]*VersionedRow
	writeKeys []string
	reads     map[string]bool
}

// NewTransaction creates a transaction bound to the given snapshot. Most
// callers obtain transactions through TransactionManager.Begin; direct
// construction is for tests exercising the kernel pieces in isolation.
func NewTransaction(id TxnID, snap *Snapshot) *Transaction {
	return &Transaction{
		ID:       id,
		Snapshot: snap,
		writes:   make(map[string][]*VersionedRow),
		reads:    make(map[string]bool),
	}
}

// AddRead records that the transaction read the key.
func (t *Transaction) AddRead(key string) {
	t.reads[key] = true
}

// AddWrite appends a version to the key's pending write list. Order is
// preserved: an update buffers the tombstone of the prior version followed
// by the replacement, and both are applied at commit in that order.
func (t *Transaction) AddWrite(key string, row *VersionedRow) {
	if _, ok := t.writes[key]; !ok {
		t.writeKeys = append(t.writeKeys, key)
	}
	t.writes[key] = append(t.writes[key], row)
}

// Writes returns the pending write buffer keyed by row key.
func (t *Transaction) Writes() map[string][]*VersionedRow {
	return t.writes
}

// WriteKeys returns the keys with pending writes in first-write order.
func (t *Transaction) WriteKeys() []string {
	return t.writeKeys
}

// Reads returns the keys the transaction has read, sorted.
func (t *Transaction) Reads() []string {
	keys := make([]string, 0, len(t.reads))
	for key := range t.reads {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
