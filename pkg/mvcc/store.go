package mvcc

// RowStore holds all committed row versions, keyed by row key. Versions for
// a key are kept in insertion order. The store is mutated only at commit
// and during garbage collection; callers serialize access.
type RowStore struct {
	rows map[string][]*VersionedRow
}

// NewRowStore creates an empty row store.
func NewRowStore() *RowStore {
	return &RowStore{
		rows: make(map[string][]*VersionedRow),
	}
}

// Append adds a version under its key. A tombstone (Xmax set) that matches
// a live version with the same Xmin replaces that version in place: the
// commit marking a row deleted overwrites the live version's Xmax rather
// than growing the chain.
func (rs *RowStore) Append(row *VersionedRow) {
	versions := rs.rows[row.Key]

	if row.Xmax != 0 {
		for i, existing := range versions {
			if existing.Xmin == row.Xmin && existing.Xmax == 0 {
				versions[i] = row
				return
			}
		}
	}

	rs.rows[row.Key] = append(versions, row)
}

// AllVersions returns the stored versions for the key in insertion order.
// The returned slice is the store's own; callers must not mutate it.
func (rs *RowStore) AllVersions(key string) []*VersionedRow {
	return rs.rows[key]
}

// Latest returns the most recently appended version for the key, or nil.
func (rs *RowStore) Latest(key string) *VersionedRow {
	versions := rs.rows[key]
	if len(versions) == 0 {
		return nil
	}
	return versions[len(versions)-1]
}

// AllKeys returns every key that currently has at least one version.
func (rs *RowStore) AllKeys() []string {
	keys := make([]string, 0, len(rs.rows))
	for key := range rs.rows {
		keys = append(keys, key)
	}
	return keys
}

// VersionCount returns the number of versions stored for the key.
func (rs *RowStore) VersionCount(key string) int {
	return len(rs.rows[key])
}

// TotalVersions returns the number of versions across all keys.
func (rs *RowStore) TotalVersions() int {
	total := 0
	for _, versions := range rs.rows {
		total += len(versions)
	}
	return total
}

// GarbageCollect drops every version that no snapshot at or above
// oldestXmin can observe, removes keys left without versions, and returns
// the number of versions dropped.
func (rs *RowStore) GarbageCollect(oldestXmin TxnID, checker *VisibilityChecker) int {
	removed := 0

	for key, versions := range rs.rows {
		kept := versions[:0]
		for _, row := range versions {
			if checker.CanCollect(row, oldestXmin) {
				removed++
				continue
			}
			kept = append(kept, row)
		}

		if len(kept) == 0 {
			delete(rs.rows, key)
			continue
		}
		rs.rows[key] = kept
	}

	return removed
}
