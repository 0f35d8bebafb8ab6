// Package shard provides row key derivation and work splitting for the table backends.
package shard

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// RowKey derives a deterministic key from the given parts.
// Rows without a natural single-column id (bindings) use it as their primary key,
// so saving the same association twice overwrites instead of duplicating.
func RowKey(parts ...string) string {
	data := strings.Join(parts, "#")
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:16]) // 128-bit hash as hex
}

// Split cuts values into consecutive chunks of at most size elements.
// A size below 1 yields a single chunk.
func Split[T any](values []T, size int) [][]T {
	if len(values) == 0 {
		return nil
	}
	if size < 1 || len(values) <= size {
		return [][]T{values}
	}
	chunks := make([][]T, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
