package store

import (
	"context"
	"sync"
)

var _ Table[struct{}] = (*MemoryTable[struct{}])(nil)

// MemoryTable keeps rows in process memory in insertion order.
type MemoryTable[T any] struct {
	schema Schema[T]

	mu    sync.RWMutex
	rows  map[string]T
	order []string
}

// NewMemoryTable creates an empty in-memory table.
func NewMemoryTable[T any](schema Schema[T]) *MemoryTable[T] {
	return &MemoryTable[T]{
		schema: schema,
		rows:   make(map[string]T),
	}
}

// Query returns matching rows in insertion order.
func (t *MemoryTable[T]) Query(ctx context.Context, filter Filter) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.schema.check(filter); err != nil {
		return nil, err
	}
	if filter.MatchesNothing() {
		return nil, nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []T
	for _, id := range t.order {
		row := t.rows[id]
		if t.schema.match(row, filter) {
			out = append(out, row)
		}
	}
	return out, nil
}

// DeleteWhere removes matching rows.
func (t *MemoryTable[T]) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := t.schema.check(filter); err != nil {
		return 0, err
	}
	if filter.MatchesNothing() {
		return 0, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.order[:0]
	deleted := 0
	for _, id := range t.order {
		if t.schema.match(t.rows[id], filter) {
			delete(t.rows, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return deleted, nil
}

// Save inserts or replaces row.
func (t *MemoryTable[T]) Save(ctx context.Context, row T) (T, error) {
	if err := ctx.Err(); err != nil {
		return row, err
	}
	id := t.schema.ID(row)
	if id == "" {
		return row, ErrMissingID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
	return row, nil
}

// FindByID returns the row with the given id.
func (t *MemoryTable[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rows[id]
	if !ok {
		return zero, ErrNotFound
	}
	return row, nil
}

// Len returns the number of stored rows.
func (t *MemoryTable[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
