package database

import "errors"

var (
	// ErrKeyNotFound is returned by update and delete when no versions
	// exist under the key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyNotVisible is returned by update and delete when versions
	// exist but none is visible to the transaction's snapshot.
	ErrKeyNotVisible = errors.New("key not visible in snapshot")
)
