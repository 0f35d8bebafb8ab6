// Package config loads process configuration from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jacentio/dimensions/idgen"
	"github.com/jacentio/dimensions/store"
)

// Backends accepted by Configuration.Backend.
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Invalidation sources accepted by InvalidationOptions.Source.
const (
	InvalidationService = "service"
	InvalidationStream  = "stream"
)

// DefaultEnvFiles are read by Load when no files are given.
var DefaultEnvFiles = []string{".env", ".env.local"}

// TableOptions configure every table backend.
type TableOptions struct {
	Prefix          string `env:"DIMENSIONS_TABLE_PREFIX"`
	ScanSegments    int    `env:"DIMENSIONS_SCAN_SEGMENTS" envDefault:"1"`
	MaxBatchRetries int    `env:"DIMENSIONS_MAX_BATCH_RETRIES" envDefault:"5"`
}

// DynamoOptions configure the DynamoDB backend.
type DynamoOptions struct {
	Region string `env:"AWS_REGION" envDefault:"us-east-1"`
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string `env:"DYNAMODB_ENDPOINT"`
	// CreateTables creates missing tables on startup.
	CreateTables bool `env:"DYNAMODB_CREATE_TABLES" envDefault:"false"`
}

// SQLOptions configure the postgres and sqlite backends.
type SQLOptions struct {
	DSN string `env:"DIMENSIONS_SQL_DSN" envDefault:"file:dimensions.db"`
}

// RedisOptions configure cross-process invalidation. An empty URL keeps
// invalidations in process.
type RedisOptions struct {
	URL     string `env:"REDIS_URL"`
	Channel string `env:"DIMENSIONS_REDIS_CHANNEL" envDefault:"dimensions:invalidations"`
}

// InvalidationOptions choose which component announces cache invalidations.
// Exactly one of them publishes: either the service after each write, or
// the DynamoDB stream function for every change it observes.
type InvalidationOptions struct {
	Source string `env:"DIMENSIONS_INVALIDATION_SOURCE" envDefault:"service"`
}

// IDOptions configure identifier generation.
type IDOptions struct {
	Strategy         string        `env:"DIMENSIONS_ID_STRATEGY" envDefault:"md5"`
	NodeID           int64         `env:"DIMENSIONS_NODE_ID" envDefault:"0"`
	Epoch            time.Time     `env:"DIMENSIONS_SNOWFLAKE_EPOCH" envDefault:"2010-11-04T01:42:54.657Z"`
	MaxClockRollback time.Duration `env:"DIMENSIONS_MAX_CLOCK_ROLLBACK" envDefault:"5ms"`
}

// Validate checks the id configuration for errors.
func (o *IDOptions) Validate() error {
	if o.NodeID < 0 || o.NodeID > idgen.MaxNodeID {
		return fmt.Errorf("node id must be within 0..%d, got %d", idgen.MaxNodeID, o.NodeID)
	}
	switch idgen.Strategy(o.Strategy) {
	case idgen.StrategyUUID, idgen.StrategyRandom, idgen.StrategyMD5,
		idgen.StrategySnowflakeString, idgen.StrategySnowflakeHex, idgen.StrategySnowflake:
	case idgen.StrategyNull:
		return fmt.Errorf("id strategy %q cannot assign dimension ids", o.Strategy)
	default:
		return fmt.Errorf("unknown id strategy %q", o.Strategy)
	}
	if o.MaxClockRollback < 0 {
		return fmt.Errorf("max clock rollback must be non-negative, got %s", o.MaxClockRollback)
	}
	return nil
}

// MetricsOptions configure the prometheus endpoint.
type MetricsOptions struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `env:"METRICS_ADDR"`
}

// Configuration is the full process configuration.
type Configuration struct {
	Backend string `env:"DIMENSIONS_BACKEND" envDefault:"memory"`

	Tables       TableOptions
	DynamoDB     DynamoOptions
	SQL          SQLOptions
	Redis        RedisOptions
	Invalidation InvalidationOptions
	IDs          IDOptions
	Log          LogOptions
	Metrics      MetricsOptions
}

// LoadEnv loads the env files that exist and returns how many were read.
// Variables already set in the environment win.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads env files (DefaultEnvFiles when none are given), parses the
// environment and validates the result.
func Load(envFiles ...string) (*Configuration, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for errors.
func (c *Configuration) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendMemory, BackendDynamoDB, BackendPostgres, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("backend must be one of memory, dynamodb, postgres, sqlite; got %q", c.Backend))
	}
	switch c.Invalidation.Source {
	case InvalidationService:
	case InvalidationStream:
		if c.Backend != BackendDynamoDB {
			errs = append(errs, fmt.Errorf("invalidation source stream requires the dynamodb backend, got %q", c.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("invalidation source must be service or stream, got %q", c.Invalidation.Source))
	}
	if c.Tables.ScanSegments < 1 {
		errs = append(errs, fmt.Errorf("scan segments must be positive, got %d", c.Tables.ScanSegments))
	}
	if err := c.IDs.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("id configuration error: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log configuration error: %w", err))
	}
	return errors.Join(errs...)
}

// StreamInvalidation reports whether the stream function, not the service,
// publishes invalidations.
func (c *Configuration) StreamInvalidation() bool {
	return c.Invalidation.Source == InvalidationStream
}

// StoreConfig returns the table configuration for the store package.
func (c *Configuration) StoreConfig() store.Config {
	cfg := store.DefaultConfig()
	cfg.TablePrefix = c.Tables.Prefix
	cfg.ScanSegments = c.Tables.ScanSegments
	cfg.MaxBatchRetries = c.Tables.MaxBatchRetries
	return cfg
}

// SnowflakeConfig returns the generator configuration on the system clock.
func (c *Configuration) SnowflakeConfig() idgen.SnowflakeConfig {
	cfg := idgen.DefaultSnowflakeConfig()
	cfg.NodeID = c.IDs.NodeID
	cfg.Epoch = c.IDs.Epoch
	cfg.MaxClockRollback = c.IDs.MaxClockRollback
	return cfg
}
