package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver
)

// sqlite caps bound parameters per statement; stay well below it.
const maxSQLOperands = 500

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	// Name identifies the dialect in configuration.
	Name string

	// Driver is the database/sql driver name.
	Driver string

	// PayloadType is the column type holding the JSON row payload.
	PayloadType string

	placeholder func(n int) string
}

var (
	// Postgres stores payloads as JSONB through the pgx driver.
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "pgx",
		PayloadType: "JSONB",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}

	// SQLite stores payloads as TEXT through the pure go driver.
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		PayloadType: "TEXT",
		placeholder: func(int) string { return "?" },
	}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch name {
	case Postgres.Name:
		return Postgres, nil
	case SQLite.Name:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("store: unknown sql dialect %q", name)
}

// OpenSQL opens and pings a database for dialect.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
	}
	if dialect.Name == SQLite.Name {
		// single writer avoids SQLITE_BUSY and keeps :memory: databases on one connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name, err)
	}
	return db, nil
}

var _ Table[struct{}] = (*SQLTable[struct{}])(nil)

// SQLTable stores each row as a JSON payload next to one indexed column per
// schema field.
type SQLTable[T any] struct {
	db      *sql.DB
	dialect Dialect
	schema  Schema[T]
	table   string
	columns []string
}

// NewSQLTable creates the table and its field indexes when missing.
func NewSQLTable[T any](ctx context.Context, db *sql.DB, dialect Dialect, schema Schema[T], config Config) (*SQLTable[T], error) {
	config.validate()
	t := &SQLTable[T]{
		db:      db,
		dialect: dialect,
		schema:  schema,
		table:   config.TableName(schema.Name),
		columns: schema.columns(),
	}
	if err := t.ensureTable(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *SQLTable[T]) ensureTable(ctx context.Context) error {
	defs := []string{quote(IDField) + " TEXT PRIMARY KEY"}
	for _, col := range t.columns {
		defs = append(defs, quote(col)+" TEXT NOT NULL DEFAULT ''")
	}
	defs = append(defs, "payload "+t.dialect.PayloadType+" NOT NULL")

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(t.table), strings.Join(defs, ", "))
	if _, err := t.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", t.table, err)
	}
	for _, col := range t.columns {
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quote(t.table+"_"+col+"_idx"), quote(t.table), quote(col))
		if _, err := t.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index %s.%s: %w", t.table, col, err)
		}
	}
	return nil
}

// Query selects the payloads of matching rows.
func (t *SQLTable[T]) Query(ctx context.Context, filter Filter) ([]T, error) {
	if err := t.schema.check(filter); err != nil {
		return nil, err
	}
	if filter.MatchesNothing() {
		return nil, nil
	}

	var rows []T
	for _, part := range filter.splitWidest(maxSQLOperands) {
		where, args := t.where(part)
		got, err := t.selectPayloads(ctx, "SELECT payload FROM "+quote(t.table)+where, args...)
		if err != nil {
			return nil, err
		}
		rows = append(rows, got...)
	}
	return rows, nil
}

// DeleteWhere deletes matching rows.
func (t *SQLTable[T]) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	if err := t.schema.check(filter); err != nil {
		return 0, err
	}
	if filter.MatchesNothing() {
		return 0, nil
	}

	total := 0
	for _, part := range filter.splitWidest(maxSQLOperands) {
		where, args := t.where(part)
		res, err := t.db.ExecContext(ctx, "DELETE FROM "+quote(t.table)+where, args...)
		if err != nil {
			return total, fmt.Errorf("delete from %s: %w", t.table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected %s: %w", t.table, err)
		}
		total += int(n)
	}
	return total, nil
}

// Save upserts the row.
func (t *SQLTable[T]) Save(ctx context.Context, row T) (T, error) {
	id := t.schema.ID(row)
	if id == "" {
		return row, ErrMissingID
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return row, fmt.Errorf("encode %s row: %w", t.table, err)
	}

	cols := []string{quote(IDField)}
	args := []any{id}
	for _, col := range t.columns {
		cols = append(cols, quote(col))
		args = append(args, t.schema.Fields[col](row))
	}
	cols = append(cols, "payload")
	args = append(args, string(payload))

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = t.dialect.placeholder(i + 1)
	}
	updates := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		quote(t.table), strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		quote(IDField), strings.Join(updates, ", "))
	if _, err := t.db.ExecContext(ctx, stmt, args...); err != nil {
		return row, fmt.Errorf("upsert %s: %w", t.table, err)
	}
	return row, nil
}

// FindByID selects one row by id.
func (t *SQLTable[T]) FindByID(ctx context.Context, id string) (T, error) {
	var row T
	var payload []byte
	query := fmt.Sprintf("SELECT payload FROM %s WHERE %s = %s", quote(t.table), quote(IDField), t.dialect.placeholder(1))
	err := t.db.QueryRowContext(ctx, query, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return row, ErrNotFound
	}
	if err != nil {
		return row, fmt.Errorf("select %s: %w", t.table, err)
	}
	if err := json.Unmarshal(payload, &row); err != nil {
		return row, fmt.Errorf("decode %s row: %w", t.table, err)
	}
	return row, nil
}

func (t *SQLTable[T]) selectPayloads(ctx context.Context, query string, args ...any) ([]T, error) {
	rs, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.table, err)
	}
	defer func() { _ = rs.Close() }()

	var out []T
	for rs.Next() {
		var payload []byte
		if err := rs.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		var row T
		if err := json.Unmarshal(payload, &row); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", t.table, err)
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.table, err)
	}
	return out, nil
}

// where renders filter as a WHERE clause with positional arguments.
func (t *SQLTable[T]) where(filter Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	var clauses []string
	var args []any
	for _, c := range filter {
		ph := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			args = append(args, v)
			ph = append(ph, t.dialect.placeholder(len(args)))
		}
		clauses = append(clauses, fmt.Sprintf("%s IN (%s)", quote(c.Field), strings.Join(ph, ", ")))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
