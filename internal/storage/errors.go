package storage

import "errors"

var (
	// ErrNotFound is returned when a run or ledger does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned on insert of an existing key.
	// Stores are append-only: a run is never rewritten.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned for records that cannot be stored.
	ErrInvalidInput = errors.New("invalid input")
)
