// Package mvcc implements the multi-version concurrency control kernel for
// TupleDB: transaction ids, snapshots, versioned rows, the visibility rules,
// write buffering, first-committer-wins conflict detection, and version
// garbage collection. All state is in memory and operations are serialized
// by the caller.
package mvcc

import "sort"

// TxnID is a unique transaction identifier. IDs are allocated from a
// strictly monotone counter starting at 1 and are never reused.
type TxnID uint64

// Snapshot is a frozen view of the transaction universe taken at BEGIN.
// It is immutable after construction.
type Snapshot struct {
	// Xmin is the smallest transaction id that was still in progress when
	// the snapshot was taken, or Xmax when none were.
	Xmin TxnID

	// Xmax is the id assigned to the owning transaction at BEGIN. Any
	// transaction with an id >= Xmax started after this snapshot.
	Xmax TxnID

	// Active holds the ids of transactions that were in progress at BEGIN,
	// sorted ascending. The owner is never included. Every element is
	// strictly less than Xmax.
	Active []TxnID

	// TxnID is the id of the transaction that owns this snapshot.
	// It always equals Xmax.
	TxnID TxnID
}

// NewSnapshot builds a snapshot for the transaction that was just assigned
// xmax. The active list is copied and sorted; xmin is derived from it.
func NewSnapshot(xmax TxnID, active []TxnID) *Snapshot {
	ids := make([]TxnID, len(active))
	copy(ids, active)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	xmin := xmax
	if len(ids) > 0 {
		xmin = ids[0]
	}

	return &Snapshot{
		Xmin:   xmin,
		Xmax:   xmax,
		Active: ids,
		TxnID:  xmax,
	}
}

// WasActive reports whether the given transaction was in progress when this
// snapshot was taken.
func (s *Snapshot) WasActive(id TxnID) bool {
	idx := sort.Search(len(s.Active), func(i int) bool {
		return s.Active[i] >= id
	})
	return idx < len(s.Active) && s.Active[idx] == id
}
