package mvcc

import "errors"

var (
	// ErrTransactionNotActive is returned when operating on a transaction
	// that has already committed or aborted.
	ErrTransactionNotActive = errors.New("transaction is not active")
)
