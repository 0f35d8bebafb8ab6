// Package app wires configuration into a ready dimension service.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jacentio/dimensions/broadcast"
	"github.com/jacentio/dimensions/config"
	"github.com/jacentio/dimensions/dimension"
	"github.com/jacentio/dimensions/idgen"
	"github.com/jacentio/dimensions/store"
)

// App holds the wired components of one process.
type App struct {
	Config   *config.Configuration
	Logger   *slog.Logger
	Service  *dimension.Service
	Stores   dimension.Stores
	Registry *idgen.Registry
	Bus      *broadcast.Bus
	Metrics  *prometheus.Registry

	// Redis is nil unless REDIS_URL is configured.
	Redis *redis.Client

	db *sql.DB
}

// Build connects the configured backend and assembles the service.
// A nil logger uses slog.Default().
func Build(ctx context.Context, cfg *config.Configuration, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Bus:     broadcast.NewBus(logger),
		Metrics: prometheus.NewRegistry(),
	}
	a.Metrics.MustRegister(collectors.NewGoCollector())

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}

	sf, err := idgen.NewSnowflake(cfg.SnowflakeConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("snowflake: %w", err)
	}
	a.Registry = idgen.NewRegistry(sf)
	ids, err := a.Registry.String(idgen.Strategy(cfg.IDs.Strategy))
	if err != nil {
		a.Close()
		return nil, err
	}

	busMetrics := broadcast.NewMetrics(a.Metrics)
	a.Bus.SetMetrics(busMetrics)
	var publisher broadcast.Publisher = a.Bus
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		remote := broadcast.NewRedis(a.Redis, cfg.Redis.Channel, logger)
		remote.SetMetrics(busMetrics)
		publisher = broadcast.Multi(a.Bus, remote)
	}

	a.Service = dimension.NewService(a.Stores, servicePublisher(cfg, publisher, logger), logger)
	a.Service.SetIDGenerator(ids)
	a.Service.SetMetrics(dimension.NewMetrics(a.Metrics))

	logger.Info("dimension service ready",
		"backend", cfg.Backend,
		"idStrategy", cfg.IDs.Strategy,
		"redis", a.Redis != nil,
		"invalidationSource", cfg.Invalidation.Source,
	)
	return a, nil
}

// servicePublisher silences the service when the stream function is the
// invalidation source, so each write is announced once.
func servicePublisher(cfg *config.Configuration, publisher broadcast.Publisher, logger *slog.Logger) broadcast.Publisher {
	if cfg.StreamInvalidation() {
		logger.Info("service invalidations disabled, stream function publishes")
		return broadcast.Discard
	}
	return publisher
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Backend {
	case config.BackendMemory:
		a.Stores = dimension.NewMemoryStores()
		return nil

	case config.BackendDynamoDB:
		client, err := NewDynamoClient(ctx, cfg.DynamoDB)
		if err != nil {
			return err
		}
		a.Stores = dimension.NewDynamoStores(client, cfg.StoreConfig())
		if cfg.DynamoDB.CreateTables {
			return CreateTables(ctx, client, a.Stores, a.Logger)
		}
		return nil

	case config.BackendPostgres, config.BackendSQLite:
		dialect, err := store.DialectByName(cfg.Backend)
		if err != nil {
			return err
		}
		db, err := store.OpenSQL(ctx, dialect, cfg.SQL.DSN)
		if err != nil {
			return err
		}
		stores, err := dimension.NewSQLStores(ctx, db, dialect, cfg.StoreConfig())
		if err != nil {
			_ = db.Close()
			return err
		}
		a.db = db
		a.Stores = stores
		return nil
	}
	return fmt.Errorf("unsupported backend %q", cfg.Backend)
}

// Close waits for in-flight deliveries and releases connections.
func (a *App) Close() error {
	a.Bus.Wait()
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// NewDynamoClient loads the default AWS configuration for the region and
// applies the endpoint override when set.
func NewDynamoClient(ctx context.Context, opts config.DynamoOptions) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	}), nil
}

// TableCreator is the part of the DynamoDB client CreateTables needs.
type TableCreator interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// CreateTables creates the on-demand tables behind stores. Tables that
// already exist are left alone.
func CreateTables(ctx context.Context, client TableCreator, stores dimension.Stores, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, repo := range []any{stores.Types, stores.Dimensions, stores.Bindings, stores.Settings} {
		named, ok := repo.(interface{ TableName() string })
		if !ok {
			continue
		}
		name := named.TableName()
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(store.IDField), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(store.IDField), AttributeType: types.ScalarAttributeTypeS},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			logger.Debug("table exists", "table", name)
			continue
		}
		if err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
		logger.Info("created table", "table", name)
	}
	return nil
}
