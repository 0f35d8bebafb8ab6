package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogOptions configure the process logger.
type LogOptions struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text or json
}

// Validate checks the log configuration for errors.
func (o *LogOptions) Validate() error {
	if _, err := o.level(); err != nil {
		return err
	}
	switch strings.ToLower(o.Format) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("log format must be 'text' or 'json', got '%s'", o.Format)
}

func (o *LogOptions) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.Level)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", o.Level, err)
	}
	return level, nil
}

// NewLogger builds a slog logger writing to w.
func NewLogger(o LogOptions, w io.Writer) (*slog.Logger, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	level, _ := o.level()
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(o.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
