// Package impex exports and imports the committed dataset as JSON, with
// optional compression. Exports read under a single snapshot; imports apply
// under a single transaction, so an import is all-or-nothing.
package impex

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mnohosten/tupledb/pkg/compression"
	"github.com/mnohosten/tupledb/pkg/database"
)

// JSONExporter exports the visible dataset to JSON.
type JSONExporter struct {
	Pretty    bool
	Algorithm compression.Algorithm
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool, algorithm compression.Algorithm) *JSONExporter {
	return &JSONExporter{Pretty: pretty, Algorithm: algorithm}
}

// Export writes every record visible under a fresh snapshot to the writer.
// Returns the number of records exported.
func (e *JSONExporter) Export(w io.Writer, db *database.Database) (int, error) {
	txn := db.Begin()
	records, err := db.Select(txn)
	if err != nil {
		return 0, fmt.Errorf("export read failed: %w", err)
	}
	// The snapshot is read-only; release it without touching the store.
	if err := db.Abort(txn); err != nil {
		return 0, fmt.Errorf("failed to release export snapshot: %w", err)
	}

	var data []byte
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}

	compressed, err := compression.Compress(data, e.Algorithm)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(compressed); err != nil {
		return 0, fmt.Errorf("export write failed: %w", err)
	}
	return len(records), nil
}

// JSONImporter imports records from JSON.
type JSONImporter struct {
	Algorithm compression.Algorithm
}

// NewJSONImporter creates a JSON importer.
func NewJSONImporter(algorithm compression.Algorithm) *JSONImporter {
	return &JSONImporter{Algorithm: algorithm}
}

// Import reads records from the reader and inserts them in one transaction.
// Each record must carry a string "key" field; the remaining fields form
// the payload. Returns the number of records imported.
func (i *JSONImporter) Import(r io.Reader, db *database.Database) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("import read failed: %w", err)
	}

	data, err := compression.Decompress(raw, i.Algorithm)
	if err != nil {
		return 0, err
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	txn := db.Begin()
	for n, record := range records {
		key, ok := record["key"].(string)
		if !ok || key == "" {
			db.Abort(txn)
			return 0, fmt.Errorf("record %d has no key", n)
		}

		payload := make(map[string]interface{}, len(record)-1)
		for field, value := range record {
			if field == "key" {
				continue
			}
			payload[field] = value
		}

		if err := db.Insert(txn, key, payload); err != nil {
			db.Abort(txn)
			return 0, fmt.Errorf("import insert failed: %w", err)
		}
	}

	if err := db.Commit(txn); err != nil {
		return 0, fmt.Errorf("import commit failed: %w", err)
	}
	return len(records), nil
}
