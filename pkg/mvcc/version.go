package mvcc

// VersionedRow is a single version of a row. Xmin is the id of the
// transaction that created the version; Xmax is the id of the transaction
// that deleted it, or 0 while the version is live.
type VersionedRow struct {
	Key  string
	Data map[string]interface{}
	Xmin TxnID
	Xmax TxnID
}

// NewVersionedRow creates a live version stamped with its creator.
func NewVersionedRow(key string, data map[string]interface{}, xmin TxnID) *VersionedRow {
	return &VersionedRow{
		Key:  key,
		Data: data,
		Xmin: xmin,
	}
}

// Tombstone returns a copy of the row marked deleted by the given
// transaction. The original Xmin is preserved so garbage collection bounds
// stay meaningful.
func (r *VersionedRow) Tombstone(deleter TxnID) *VersionedRow {
	return &VersionedRow{
		Key:  r.Key,
		Data: r.Data,
		Xmin: r.Xmin,
		Xmax: deleter,
	}
}

// Deleted reports whether the version carries a deletion stamp.
func (r *VersionedRow) Deleted() bool {
	return r.Xmax != 0
}

// Clone returns a copy of the version with its own payload map.
func (r *VersionedRow) Clone() *VersionedRow {
	data := make(map[string]interface{}, len(r.Data))
	for k, v := range r.Data {
		data[k] = v
	}
	return &VersionedRow{
		Key:  r.Key,
		Data: data,
		Xmin: r.Xmin,
		Xmax: r.Xmax,
	}
}
