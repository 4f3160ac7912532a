package mvcc

import "testing"

func TestRowStoreAppendAndIterationOrder(t *testing.T) {
	store := NewRowStore()

	store.Append(NewVersionedRow("k", map[string]interface{}{"v": 1}, 1))
	store.Append(NewVersionedRow("k", map[string]interface{}{"v": 2}, 2))

	versions := store.AllVersions("k")
	if len(versions) != 2 {
		t.Fatalf("Expected 2 versions, got %d", len(versions))
	}
	if versions[0].Xmin != 1 || versions[1].Xmin != 2 {
		t.Error("Versions must be returned in insertion order")
	}

	latest := store.Latest("k")
	if latest == nil || latest.Xmin != 2 {
		t.Errorf("Expected latest version from txn 2, got %+v", latest)
	}
}

func TestRowStoreMissingKey(t *testing.T) {
	store := NewRowStore()

	if got := store.AllVersions("missing"); len(got) != 0 {
		t.Errorf("Expected no versions, got %d", len(got))
	}
	if store.Latest("missing") != nil {
		t.Error("Expected nil latest for missing key")
	}
}

func TestRowStoreTombstoneReplacesInPlace(t *testing.T) {
	store := NewRowStore()

	live := NewVersionedRow("k", map[string]interface{}{"v": 1}, 1)
	store.Append(live)

	// A commit that tombstones the live version overwrites it in place
	// rather than growing the chain.
	store.Append(live.Tombstone(3))

	versions := store.AllVersions("k")
	if len(versions) != 1 {
		t.Fatalf("Expected tombstone to replace the live version, got %d versions", len(versions))
	}
	if versions[0].Xmin != 1 || versions[0].Xmax != 3 {
		t.Errorf("Expected xmin=1 xmax=3, got xmin=%d xmax=%d", versions[0].Xmin, versions[0].Xmax)
	}
}

func TestRowStoreTombstoneWithoutMatchAppends(t *testing.T) {
	store := NewRowStore()

	// No live version with xmin=5 exists, so the tombstone is appended.
	store.Append(&VersionedRow{Key: "k", Xmin: 5, Xmax: 7})

	if store.VersionCount("k") != 1 {
		t.Fatalf("Expected 1 version, got %d", store.VersionCount("k"))
	}
}

func TestRowStoreAllKeys(t *testing.T) {
	store := NewRowStore()
	store.Append(NewVersionedRow("a", nil, 1))
	store.Append(NewVersionedRow("b", nil, 1))

	keys := store.AllKeys()
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %v", keys)
	}
}

func TestRowStoreGarbageCollect(t *testing.T) {
	store := NewRowStore()
	ct := NewCommitTable()
	checker := NewVisibilityChecker(ct)

	// Deleted version entirely below the horizon: collectable.
	store.Append(&VersionedRow{Key: "old", Xmin: 1, Xmax: 2})
	// Live version: never collectable.
	store.Append(NewVersionedRow("live", map[string]interface{}{"v": 1}, 3))
	// Deleter at the horizon: retained.
	store.Append(&VersionedRow{Key: "edge", Xmin: 1, Xmax: 10})

	removed := store.GarbageCollect(10, checker)
	if removed != 1 {
		t.Errorf("Expected 1 version collected, got %d", removed)
	}
	if store.VersionCount("old") != 0 {
		t.Error("Expected key 'old' to be removed entirely")
	}
	if store.VersionCount("live") != 1 {
		t.Error("Live version must survive GC")
	}
	if store.VersionCount("edge") != 1 {
		t.Error("Version with deleter at the horizon must survive GC")
	}

	// Empty key entries disappear from the key listing.
	for _, key := range store.AllKeys() {
		if key == "old" {
			t.Error("Collected key must not be listed")
		}
	}
}
