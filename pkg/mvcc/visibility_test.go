package mvcc

import "testing"

func TestIsVisibleOwnWrites(t *testing.T) {
	ct := NewCommitTable()
	vc := NewVisibilityChecker(ct)
	snap := NewSnapshot(5, nil)

	own := &VersionedRow{Key: "k", Xmin: 5}
	if !vc.IsVisible(own, snap) {
		t.Error("A transaction must see its own uncommitted insert")
	}

	ownDeleted := &VersionedRow{Key: "k", Xmin: 5, Xmax: 5}
	if vc.IsVisible(ownDeleted, snap) {
		t.Error("A transaction must not see a row it deleted itself")
	}
}

func TestIsVisibleCommittedCreator(t *testing.T) {
	ct := NewCommitTable()
	ct.MarkCommitted(1)
	vc := NewVisibilityChecker(ct)
	snap := NewSnapshot(5, nil)

	row := &VersionedRow{Key: "k", Xmin: 1}
	if !vc.IsVisible(row, snap) {
		t.Error("Row from a committed earlier transaction must be visible")
	}
}

func TestIsVisibleUncommittedCreator(t *testing.T) {
	ct := NewCommitTable()
	vc := NewVisibilityChecker(ct)
	snap := NewSnapshot(5, nil)

	row := &VersionedRow{Key: "k", Xmin: 1}
	if vc.IsVisible(row, snap) {
		t.Error("Row from an in-progress transaction must not be visible")
	}

	ct.MarkAborted(1)
	if vc.IsVisible(row, snap) {
		t.Error("Row from an aborted transaction must not be visible")
	}
}

func TestIsVisibleActiveDominatesNumericCheck(t *testing.T) {
	ct := NewCommitTable()
	// Transaction 2 has an id below xmax but was in progress at snapshot
	// time; the active check must win over the numeric comparison.
	ct.MarkCommitted(2)
	vc := NewVisibilityChecker(ct)
	snap := NewSnapshot(5, []TxnID{2})

	row := &VersionedRow{Key: "k", Xmin: 2}
	if vc.IsVisible(row, snap) {
		t.Error("Row from a transaction active at snapshot time must not be visible, even after it commits")
	}
}

func TestIsVisibleFutureCreator(t *testing.T) {
	ct := NewCommitTable()
	ct.MarkCommitted(9)
	vc := NewVisibilityChecker(ct)
	snap := NewSnapshot(5, nil)

	row := &VersionedRow{Key: "k", Xmin: 9}
	if vc.IsVisible(row, snap) {
		t.Error("Row created after the snapshot must not be visible")
	}
}

func TestIsVisibleDeletion(t *testing.T) {
	ct := NewCommitTable()
	ct.MarkCommitted(1)
	vc := NewVisibilityChecker(ct)

	t.Run("committed deleter hides the row", func(t *testing.T) {
		ct.MarkCommitted(2)
		snap := NewSnapshot(5, nil)
		row := &VersionedRow{Key: "k", Xmin: 1, Xmax: 2}
		if vc.IsVisible(row, snap) {
			t.Error("Row deleted by a committed earlier transaction must not be visible")
		}
	})

	t.Run("in-progress deleter leaves the row visible", func(t *testing.T) {
		snap := NewSnapshot(5, []TxnID{3})
		row := &VersionedRow{Key: "k", Xmin: 1, Xmax: 3}
		if !vc.IsVisible(row, snap) {
			t.Error("Deletion by a transaction active at snapshot time has not happened for this snapshot")
		}
	})

	t.Run("future deleter leaves the row visible", func(t *testing.T) {
		// The commit table is deliberately not consulted for deleters with
		// an id at or above xmax; they began after this snapshot.
		snap := NewSnapshot(5, nil)
		row := &VersionedRow{Key: "k", Xmin: 1, Xmax: 8}
		if !vc.IsVisible(row, snap) {
			t.Error("Deletion by a later transaction must not affect this snapshot")
		}
	})
}

func TestCanCollect(t *testing.T) {
	vc := NewVisibilityChecker(NewCommitTable())

	tests := []struct {
		name       string
		row        *VersionedRow
		oldestXmin TxnID
		want       bool
	}{
		{"undeleted version is never collectable", &VersionedRow{Xmin: 1}, 100, false},
		{"both stamps below horizon", &VersionedRow{Xmin: 1, Xmax: 2}, 3, true},
		{"creator at horizon", &VersionedRow{Xmin: 3, Xmax: 4}, 3, false},
		{"deleter at horizon", &VersionedRow{Xmin: 1, Xmax: 3}, 3, false},
		{"deleter above horizon", &VersionedRow{Xmin: 1, Xmax: 9}, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vc.CanCollect(tt.row, tt.oldestXmin); got != tt.want {
				t.Errorf("CanCollect(xmin=%d xmax=%d, %d) = %v, want %v",
					tt.row.Xmin, tt.row.Xmax, tt.oldestXmin, got, tt.want)
			}
		})
	}
}
