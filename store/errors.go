package store

import "errors"

var (
	// ErrNotFound is returned when a row doesn't exist.
	ErrNotFound = errors.New("store: row not found")

	// ErrMissingID is returned when saving a row whose id is empty.
	ErrMissingID = errors.New("store: row has no id")

	// ErrUnknownField is returned when a filter references a field the schema does not declare.
	ErrUnknownField = errors.New("store: unknown filter field")

	// ErrUnprocessed is returned when DynamoDB keeps rejecting part of a batch delete.
	ErrUnprocessed = errors.New("store: batch items left unprocessed")
)
