package mvcc

// VisibilityChecker decides whether a row version can be observed from a
// snapshot. It is a pure function over (row, snapshot) plus the commit
// table it reads.
type VisibilityChecker struct {
	commits *CommitTable
}

// NewVisibilityChecker creates a checker bound to the given commit table.
func NewVisibilityChecker(ct *CommitTable) *VisibilityChecker {
	return &VisibilityChecker{commits: ct}
}

// IsVisible reports whether the version is visible to the snapshot.
//
// Rules, in order:
//
//  1. Our own insert is visible unless we deleted it ourselves.
//  2. The creator must be visible to the snapshot; otherwise the row is not.
//  3. An undeleted row is visible.
//  4. A deleted row is visible only while the deleter is not visible — the
//     deletion has not happened from this snapshot's point of view.
func (vc *VisibilityChecker) IsVisible(row *VersionedRow, snap *Snapshot) bool {
	if row.Xmin == snap.TxnID {
		return row.Xmax != snap.TxnID
	}

	if !vc.txnVisible(row.Xmin, snap) {
		return false
	}

	if row.Xmax == 0 {
		return true
	}

	return !vc.txnVisible(row.Xmax, snap)
}

// txnVisible reports whether the effects of the given transaction are
// visible to the snapshot: it must have started before the snapshot, not
// have been in progress at snapshot time, and have committed.
//
// A transaction in the active set can have an id below Xmax, so the active
// check must not be short-circuited by the numeric comparison alone.
//
// Known approximation: for ids >= snap.Xmax the commit table is not
// consulted. Such a transaction began after this snapshot, so no version it
// stamped can have been observed by this snapshot in the first place.
func (vc *VisibilityChecker) txnVisible(id TxnID, snap *Snapshot) bool {
	if id >= snap.Xmax {
		return false
	}
	if snap.WasActive(id) {
		return false
	}
	return vc.commits.IsCommitted(id)
}

// CanCollect reports whether the version is unreachable from every snapshot
// at or above oldestXmin and may be garbage collected. An undeleted version
// is always retained. Both the creator and the deleter must be below the
// horizon: a deleter that is not yet beneath it could still be invisible to
// some live snapshot, which would then need the row.
func (vc *VisibilityChecker) CanCollect(row *VersionedRow, oldestXmin TxnID) bool {
	if row.Xmax == 0 {
		return false
	}
	return row.Xmin < oldestXmin && row.Xmax < oldestXmin
}
