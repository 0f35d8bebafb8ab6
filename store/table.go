package store

import (
	"context"
	"fmt"
	"sort"
)

// Table is the persistence contract shared by every backend.
type Table[T any] interface {
	// Query returns the rows matching filter.
	Query(ctx context.Context, filter Filter) ([]T, error)

	// DeleteWhere deletes the rows matching filter and returns how many were removed.
	// Deleting rows that do not exist is not an error.
	DeleteWhere(ctx context.Context, filter Filter) (int, error)

	// Save inserts or replaces a row by its id.
	Save(ctx context.Context, row T) (T, error)

	// FindByID returns the row with the given id or ErrNotFound.
	FindByID(ctx context.Context, id string) (T, error)
}

// Schema describes how a row type maps onto a table.
type Schema[T any] struct {
	// Name is the table name before the configured prefix is applied.
	Name string

	// ID returns the primary key of a row.
	ID func(T) string

	// Fields maps filterable field names to accessors. Names double as
	// DynamoDB attribute names and SQL column names.
	Fields map[string]func(T) string
}

// value returns the value of field for row.
func (s Schema[T]) value(row T, field string) (string, bool) {
	if field == IDField {
		return s.ID(row), true
	}
	get, ok := s.Fields[field]
	if !ok {
		return "", false
	}
	return get(row), true
}

// match reports whether row satisfies filter.
func (s Schema[T]) match(row T, filter Filter) bool {
	return filter.Match(func(field string) (string, bool) {
		return s.value(row, field)
	})
}

// check rejects filters on fields the schema does not declare.
func (s Schema[T]) check(filter Filter) error {
	for _, c := range filter {
		if c.Field == IDField {
			continue
		}
		if _, ok := s.Fields[c.Field]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, s.Name, c.Field)
		}
	}
	return nil
}

// columns returns the declared field names in sorted order.
func (s Schema[T]) columns() []string {
	cols := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}
