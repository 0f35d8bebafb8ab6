// Package store provides generic filtered persistence for flat entity tables.
//
// Every backend implements [Table], a small contract built around a [Filter]:
// an AND of field IN (values...) conditions over string columns declared in a
// [Schema]. Rows are keyed by a string "id".
//
// # Backends
//
//   - [MemoryTable] keeps rows in process, in insertion order
//   - [DynamoTable] scans DynamoDB with filter expressions, optionally in
//     parallel segments, and deletes through BatchWriteItem
//   - [SQLTable] stores a JSON payload beside one indexed column per schema
//     field, on PostgreSQL (pgx) or SQLite
//
// # Semantics
//
// A condition without values matches nothing, so an empty IN list never turns
// into a full-table delete. Deletes are hard and idempotent: deleting rows
// that are already gone succeeds and reports zero. IN lists larger than the
// backend limit are split into several requests transparently.
//
// # Configuration
//
// Use [DefaultConfig] for a single scan segment and five batch retries:
//
//	cfg := store.DefaultConfig()
//	cfg.TablePrefix = "prod_"
//	cfg.ScanSegments = 8
//
// # Errors
//
//   - [ErrNotFound] - no row with the requested id
//   - [ErrMissingID] - row saved without an id
//   - [ErrUnknownField] - filter names a field the schema does not declare
//   - [ErrUnprocessed] - DynamoDB kept returning unprocessed deletes
package store
