package mvcc

import "testing"

func TestCommitTableStatus(t *testing.T) {
	ct := NewCommitTable()

	if !ct.InProgress(1) {
		t.Error("Unknown transaction should be in progress")
	}

	ct.MarkCommitted(1)
	if !ct.IsCommitted(1) {
		t.Error("Expected transaction 1 committed")
	}
	if ct.IsAborted(1) {
		t.Error("Committed transaction must not be aborted")
	}
	if ct.InProgress(1) {
		t.Error("Committed transaction must not be in progress")
	}

	ct.MarkAborted(2)
	if !ct.IsAborted(2) {
		t.Error("Expected transaction 2 aborted")
	}
	if ct.IsCommitted(2) {
		t.Error("Aborted transaction must not be committed")
	}
}
