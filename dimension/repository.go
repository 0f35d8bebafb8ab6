package dimension

import (
	"context"
	"database/sql"

	"github.com/jacentio/dimensions/store"
)

// Repository is the persistence the service consumes. Every store.Table
// satisfies it.
type Repository[T any] interface {
	Query(ctx context.Context, filter store.Filter) ([]T, error)
	DeleteWhere(ctx context.Context, filter store.Filter) (int, error)
	Save(ctx context.Context, row T) (T, error)
	FindByID(ctx context.Context, id string) (T, error)
}

// Stores bundles the four tables the service keeps consistent.
type Stores struct {
	Types      Repository[DimensionType]
	Dimensions Repository[Dimension]
	Bindings   Repository[Binding]
	Settings   Repository[AuthorizationSetting]
}

// NewMemoryStores returns in-process tables, suitable for tests and local tooling.
func NewMemoryStores() Stores {
	return Stores{
		Types:      store.NewMemoryTable(TypeSchema),
		Dimensions: store.NewMemoryTable(DimensionSchema),
		Bindings:   store.NewMemoryTable(BindingSchema),
		Settings:   store.NewMemoryTable(SettingSchema),
	}
}

// NewDynamoStores returns DynamoDB-backed tables sharing one client and config.
func NewDynamoStores(client store.DynamoAPI, config store.Config) Stores {
	return Stores{
		Types:      store.NewDynamoTable(client, TypeSchema, config),
		Dimensions: store.NewDynamoTable(client, DimensionSchema, config),
		Bindings:   store.NewDynamoTable(client, BindingSchema, config),
		Settings:   store.NewDynamoTable(client, SettingSchema, config),
	}
}

// NewSQLStores returns SQL-backed tables on db, creating them when missing.
func NewSQLStores(ctx context.Context, db *sql.DB, dialect store.Dialect, config store.Config) (Stores, error) {
	types, err := store.NewSQLTable(ctx, db, dialect, TypeSchema, config)
	if err != nil {
		return Stores{}, err
	}
	dims, err := store.NewSQLTable(ctx, db, dialect, DimensionSchema, config)
	if err != nil {
		return Stores{}, err
	}
	bindings, err := store.NewSQLTable(ctx, db, dialect, BindingSchema, config)
	if err != nil {
		return Stores{}, err
	}
	settings, err := store.NewSQLTable(ctx, db, dialect, SettingSchema, config)
	if err != nil {
		return Stores{}, err
	}
	return Stores{Types: types, Dimensions: dims, Bindings: bindings, Settings: settings}, nil
}
