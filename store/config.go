package store

// Config holds configuration shared by the table backends.
type Config struct {
	// TablePrefix is prepended to every schema name.
	// Default: "" (schema names are used as-is)
	TablePrefix string

	// ScanSegments is the number of parallel DynamoDB scan segments.
	// Higher values speed up full-table filters on large tables at the cost
	// of more concurrent read capacity.
	// Default: 1 (single sequential scan)
	// Max: 64
	ScanSegments int

	// MaxBatchRetries bounds how often unprocessed DynamoDB batch items are resubmitted.
	// Default: 5
	MaxBatchRetries int
}

// DefaultConfig returns sensible defaults for small datasets.
func DefaultConfig() Config {
	return Config{
		ScanSegments:    1,
		MaxBatchRetries: 5,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.ScanSegments < 1 {
		c.ScanSegments = 1
	}
	if c.ScanSegments > 64 {
		c.ScanSegments = 64
	}
	if c.MaxBatchRetries < 1 {
		c.MaxBatchRetries = 5
	}
}

// TableName applies the prefix to a schema name.
func (c Config) TableName(name string) string {
	return c.TablePrefix + name
}
