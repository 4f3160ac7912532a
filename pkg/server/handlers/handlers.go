// Package handlers implements the HTTP handlers for the TupleDB server.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mnohosten/tupledb/pkg/compression"
	"github.com/mnohosten/tupledb/pkg/database"
	"github.com/mnohosten/tupledb/pkg/impex"
	"github.com/mnohosten/tupledb/pkg/mvcc"
)

// Handler carries the database shared by all HTTP handlers.
type Handler struct {
	db *database.Database
}

// New creates a handler set over the database.
func New(db *database.Database) *Handler {
	return &Handler{db: db}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeOpError maps engine errors onto HTTP statuses.
func writeOpError(w http.ResponseWriter, err error) {
	var conflict *mvcc.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, database.ErrKeyNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, database.ErrKeyNotVisible):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, mvcc.ErrTransactionNotActive):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// txn resolves the transaction named in the URL, or writes a 404.
func (h *Handler) txn(w http.ResponseWriter, r *http.Request) *mvcc.Transaction {
	id, err := strconv.ParseUint(chi.URLParam(r, "txnID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid transaction id"))
		return nil
	}

	txn := h.db.Lookup(id)
	if txn == nil {
		writeError(w, http.StatusNotFound, errors.New("no active transaction with that id"))
		return nil
	}
	return txn
}

func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return nil, false
	}
	return data, true
}

// BeginTxn starts a transaction and returns its id and snapshot bounds.
func (h *Handler) BeginTxn(w http.ResponseWriter, r *http.Request) {
	txn := h.db.Begin()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"txnId": uint64(txn.ID),
		"xmin":  uint64(txn.Snapshot.Xmin),
		"xmax":  uint64(txn.Snapshot.Xmax),
	})
}

// CommitTxn commits the transaction.
func (h *Handler) CommitTxn(w http.ResponseWriter, r *http.Request) {
	txn := h.txn(w, r)
	if txn == nil {
		return
	}

	if err := h.db.Commit(txn); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"committed": uint64(txn.ID)})
}

// AbortTxn aborts the transaction.
func (h *Handler) AbortTxn(w http.ResponseWriter, r *http.Request) {
	txn := h.txn(w, r)
	if txn == nil {
		return
	}

	if err := h.db.Abort(txn); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"aborted": uint64(txn.ID)})
}

// InsertRow buffers an insert in the transaction.
func (h *Handler) InsertRow(w http.ResponseWriter, r *http.Request) {
	txn := h.txn(w, r)
	if txn == nil {
		return
	}
	data, ok := decodeBody(w, r)
	if !ok {
		return
	}

	if err := h.db.Insert(txn, chi.URLParam(r, "key"), data); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"buffered": chi.URLParam(r, "key")})
}

// UpdateRow buffers an update in the transaction.
func (h *Handler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	txn := h.txn(w, r)
	if txn == nil {
		return
	}
	data, ok := decodeBody(w, r)
	if !ok {
		return
	}

	if err := h.db.Update(txn, chi.URLParam(r, "key"), data); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"buffered": chi.URLParam(r, "key")})
}

// DeleteRow buffers a delete in the transaction.
func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	txn := h.txn(w, r)
	if txn == nil {
		return
	}

	if err := h.db.Delete(txn, chi.URLParam(r, "key")); err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"buffered": chi.URLParam(r, "key")})
}

// Select reads rows under the transaction's snapshot. Keys come from the
// comma-separated "keys" query parameter; with none, all keys are read.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	txn := h.txn(w, r)
	if txn == nil {
		return
	}

	var keys []string
	if raw := r.URL.Query().Get("keys"); raw != "" {
		keys = strings.Split(raw, ",")
	}

	records, err := h.db.Select(txn, keys...)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

// Health reports liveness and uptime.
func (h *Handler) Health(startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"uptime": time.Since(startTime).String(),
		})
	}
}

// Stats reports the engine state and counters.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.db.Stats())
}

// Export streams the committed dataset, optionally compressed via the
// "algorithm" query parameter.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	algorithm, err := compression.ParseAlgorithm(r.URL.Query().Get("algorithm"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := impex.NewJSONExporter(false, algorithm).Export(w, h.db); err != nil {
		writeError(w, http.StatusInternalServerError, err)
	}
}

// Import loads a dataset produced by Export in one transaction.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	algorithm, err := compression.ParseAlgorithm(r.URL.Query().Get("algorithm"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	imported, err := impex.NewJSONImporter(algorithm).Import(r.Body, h.db)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"imported": imported})
}
