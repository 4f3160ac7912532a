package mvcc

import "fmt"

// ConflictError reports a write-write conflict detected at commit.
type ConflictError struct {
	Key string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Write-write conflict on key '%s'", e.Key)
}

// ConflictDetector inspects a transaction's write set against the row store
// at commit time and enforces first-committer-wins.
type ConflictDetector struct {
	store   *RowStore
	commits *CommitTable
}

// NewConflictDetector creates a detector bound to the store and commit
// table.
func NewConflictDetector(store *RowStore, commits *CommitTable) *ConflictDetector {
	return &ConflictDetector{store: store, commits: commits}
}

// Detect returns a conflict if any key in the transaction's write set
// carries a version committed by a concurrent transaction, nil otherwise.
//
// The comparison horizon is the snapshot's xmin, not its xmax: a committed
// writer older than every transaction that was in progress at our BEGIN is
// tolerated. A stricter horizon would fail additional commits.
func (cd *ConflictDetector) Detect(txn *Transaction) *ConflictError {
	for _, key := range txn.WriteKeys() {
		for _, row := range cd.store.AllVersions(key) {
			if row.Xmin == txn.ID {
				continue
			}
			if cd.commits.IsCommitted(row.Xmin) && row.Xmin >= txn.Snapshot.Xmin {
				return &ConflictError{Key: key}
			}
		}
	}
	return nil
}
