// Package database wires the MVCC kernel into the engine's public service:
// begin, buffered writes, snapshot reads, first-committer-wins commit, and
// version garbage collection after every successful commit.
package database

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mnohosten/tupledb/pkg/changestream"
	"github.com/mnohosten/tupledb/pkg/logger"
	"github.com/mnohosten/tupledb/pkg/metrics"
	"github.com/mnohosten/tupledb/pkg/mvcc"
)

// Record is a flattened select result: the row key under "key" plus the
// payload fields.
type Record map[string]interface{}

// Config holds database construction options.
type Config struct {
	// Logger overrides the process-wide logger. Optional.
	Logger *slog.Logger
}

// Database orchestrates the transactional kernel. All public methods are
// serialized by an internal mutex so callers such as the HTTP server can
// share one instance; the kernel itself stays single-threaded.
type Database struct {
	mu sync.Mutex

	txnMgr     *mvcc.TransactionManager
	commits    *mvcc.CommitTable
	visibility *mvcc.VisibilityChecker
	store      *mvcc.RowStore
	detector   *mvcc.ConflictDetector

	collector *metrics.Collector
	streams   *changestream.Broker
	log       *slog.Logger
}

// Open creates an empty in-memory database. A nil config selects defaults.
func Open(cfg *Config) *Database {
	log := logger.Get()
	if cfg != nil && cfg.Logger != nil {
		log = cfg.Logger
	}

	commits := mvcc.NewCommitTable()
	store := mvcc.NewRowStore()

	return &Database{
		txnMgr:     mvcc.NewTransactionManager(),
		commits:    commits,
		visibility: mvcc.NewVisibilityChecker(commits),
		store:      store,
		detector:   mvcc.NewConflictDetector(store, commits),
		collector:  metrics.NewCollector(),
		streams:    changestream.NewBroker(),
		log:        log,
	}
}

// Close shuts down the change stream broker. The engine is volatile; all
// data is discarded with the process.
func (db *Database) Close() {
	db.streams.Close()
}

// Metrics returns the engine's metrics collector.
func (db *Database) Metrics() *metrics.Collector {
	return db.collector
}

// Watch subscribes to commit events with the given buffer size.
func (db *Database) Watch(buffer int) *changestream.Subscription {
	return db.streams.Subscribe(buffer)
}

// WatcherCount returns the number of attached commit-event subscribers.
func (db *Database) WatcherCount() int {
	return db.streams.SubscriberCount()
}

// Begin starts a new transaction under a fresh snapshot.
func (db *Database) Begin() *mvcc.Transaction {
	db.mu.Lock()
	defer db.mu.Unlock()

	txn := db.txnMgr.Begin()
	db.collector.RecordBegin()
	db.refreshGauges()
	db.log.Debug("transaction begun", "txn", txn.ID, "xmin", txn.Snapshot.Xmin)
	return txn
}

// Insert buffers a new row version in the transaction. It performs no
// visibility or uniqueness check and never fails on an active transaction.
func (db *Database) Insert(txn *mvcc.Transaction, key string, data map[string]interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.txnMgr.IsActive(txn.ID) {
		return mvcc.ErrTransactionNotActive
	}

	txn.AddWrite(key, mvcc.NewVersionedRow(key, data, txn.ID))
	db.collector.RecordInsert()
	return nil
}

// Update buffers a tombstone of the currently visible version followed by
// its replacement. The replacement payload is the visible payload shallowly
// overlaid with data.
func (db *Database) Update(txn *mvcc.Transaction, key string, data map[string]interface{}) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.txnMgr.IsActive(txn.ID) {
		return mvcc.ErrTransactionNotActive
	}

	visible, err := db.visibleVersion(txn, key)
	if err != nil {
		db.collector.RecordUpdate(false)
		return err
	}

	txn.AddWrite(key, visible.Tombstone(txn.ID))
	txn.AddWrite(key, mvcc.NewVersionedRow(key, merge(visible.Data, data), txn.ID))
	db.collector.RecordUpdate(true)
	return nil
}

// Delete buffers a tombstone of the currently visible version. The original
// xmin is preserved so garbage collection bounds stay meaningful.
func (db *Database) Delete(txn *mvcc.Transaction, key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.txnMgr.IsActive(txn.ID) {
		return mvcc.ErrTransactionNotActive
	}

	visible, err := db.visibleVersion(txn, key)
	if err != nil {
		db.collector.RecordDelete(false)
		return err
	}

	txn.AddWrite(key, visible.Tombstone(txn.ID))
	db.collector.RecordDelete(true)
	return nil
}

// Select returns the visible version of each requested key, flattened as
// {key, ...fields}. With no keys it scans every stored key in sorted order.
// Keys with no visible version are skipped.
func (db *Database) Select(txn *mvcc.Transaction, keys ...string) ([]Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.txnMgr.IsActive(txn.ID) {
		return nil, mvcc.ErrTransactionNotActive
	}

	if len(keys) == 0 {
		keys = db.store.AllKeys()
		sort.Strings(keys)
	}

	results := make([]Record, 0, len(keys))
	for _, key := range keys {
		txn.AddRead(key)

		// Own buffered writes win over the store: the last pending row for
		// the key is the transaction's current view of it. A trailing
		// tombstone means the transaction deleted the key.
		row := db.firstVisible(txn, key)
		if pending := txn.Writes()[key]; len(pending) > 0 {
			last := pending[len(pending)-1]
			if last.Deleted() {
				continue
			}
			row = last
		}
		if row == nil {
			continue
		}

		record := make(Record, len(row.Data)+1)
		record["key"] = key
		for field, value := range row.Data {
			record[field] = value
		}
		results = append(results, record)
	}

	db.collector.RecordSelect()
	return results, nil
}

// Commit runs conflict detection and, if clean, applies the write buffer to
// the store, marks the transaction committed, and runs a garbage collection
// pass. On conflict the transaction is aborted and the conflict returned.
func (db *Database) Commit(txn *mvcc.Transaction) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.txnMgr.IsActive(txn.ID) {
		return mvcc.ErrTransactionNotActive
	}

	start := time.Now()

	if conflict := db.detector.Detect(txn); conflict != nil {
		db.abortLocked(txn)
		db.collector.RecordConflict()
		db.log.Warn("commit rejected", "txn", txn.ID, "key", conflict.Key)
		return conflict
	}

	writeKeys := txn.WriteKeys()
	for _, key := range writeKeys {
		for _, row := range txn.Writes()[key] {
			db.store.Append(row)
		}
	}

	db.commits.MarkCommitted(txn.ID)
	db.txnMgr.Commit(txn)
	db.collector.RecordCommit(time.Since(start))

	reclaimed := db.garbageCollectLocked()

	db.refreshGauges()
	db.log.Debug("transaction committed", "txn", txn.ID, "keys", len(writeKeys), "reclaimed", reclaimed)

	if len(writeKeys) > 0 {
		db.streams.Publish(&changestream.Event{
			TxnID:     uint64(txn.ID),
			Keys:      writeKeys,
			Timestamp: time.Now(),
		})
	}
	return nil
}

// Abort marks the transaction aborted and discards its write buffer.
func (db *Database) Abort(txn *mvcc.Transaction) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !db.txnMgr.IsActive(txn.ID) {
		return mvcc.ErrTransactionNotActive
	}

	db.abortLocked(txn)
	db.log.Debug("transaction aborted", "txn", txn.ID)
	return nil
}

// GarbageCollect drops versions below the global horizon and returns the
// number reclaimed. Commit runs this automatically; calling it at any other
// time is safe.
func (db *Database) GarbageCollect() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	reclaimed := db.garbageCollectLocked()
	db.refreshGauges()
	return reclaimed
}

// Stats describes the current engine state for the stats endpoint.
type Stats struct {
	ActiveTxns   []uint64         `json:"activeTransactions"`
	NextTxnID    uint64           `json:"nextTxnId"`
	OldestXmin   uint64           `json:"oldestXmin"`
	Keys         int              `json:"keys"`
	Versions     int              `json:"versions"`
	Counters     metrics.Snapshot `json:"counters"`
}

// Stats returns a point-in-time view of the engine.
func (db *Database) Stats() Stats {
	db.mu.Lock()
	defer db.mu.Unlock()

	active := db.txnMgr.ActiveTxns()
	ids := make([]uint64, len(active))
	for i, id := range active {
		ids[i] = uint64(id)
	}

	return Stats{
		ActiveTxns: ids,
		NextTxnID:  uint64(db.txnMgr.NextTxnID()),
		OldestXmin: uint64(db.txnMgr.GlobalOldestXmin()),
		Keys:       len(db.store.AllKeys()),
		Versions:   db.store.TotalVersions(),
		Counters:   db.collector.Snapshot(),
	}
}

// Lookup returns the active transaction with the given id, or nil if it
// has terminated or never existed.
func (db *Database) Lookup(id uint64) *mvcc.Transaction {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.txnMgr.Get(mvcc.TxnID(id))
}

// TransactionManager exposes the kernel's manager for observational use.
func (db *Database) TransactionManager() *mvcc.TransactionManager {
	return db.txnMgr
}

func (db *Database) abortLocked(txn *mvcc.Transaction) {
	db.commits.MarkAborted(txn.ID)
	db.txnMgr.Abort(txn)
	db.collector.RecordAbort()
	db.refreshGauges()
}

func (db *Database) garbageCollectLocked() int {
	oldest := db.txnMgr.GlobalOldestXmin()
	reclaimed := db.store.GarbageCollect(oldest, db.visibility)
	db.collector.RecordGC(reclaimed)
	if reclaimed > 0 {
		db.log.Debug("garbage collected", "horizon", oldest, "reclaimed", reclaimed)
	}
	return reclaimed
}

func (db *Database) refreshGauges() {
	db.collector.SetGauges(len(db.txnMgr.ActiveTxns()), len(db.store.AllKeys()), db.store.TotalVersions())
}

// visibleVersion finds the first version of key visible to the transaction,
// distinguishing a missing key from an invisible one.
func (db *Database) visibleVersion(txn *mvcc.Transaction, key string) (*mvcc.VersionedRow, error) {
	versions := db.store.AllVersions(key)
	if len(versions) == 0 {
		return nil, fmt.Errorf("key '%s': %w", key, ErrKeyNotFound)
	}

	if row := db.firstVisible(txn, key); row != nil {
		return row, nil
	}
	return nil, fmt.Errorf("key '%s': %w", key, ErrKeyNotVisible)
}

func (db *Database) firstVisible(txn *mvcc.Transaction, key string) *mvcc.VersionedRow {
	for _, row := range db.store.AllVersions(key) {
		if db.visibility.IsVisible(row, txn.Snapshot) {
			return row
		}
	}
	return nil
}

// merge overlays the update payload onto the base payload, field by field,
// right biased.
func merge(base, overlay map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
