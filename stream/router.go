package stream

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/dimensions/dimension"
	"github.com/jacentio/dimensions/store"
)

// Tables names the physical tables whose streams feed one function.
type Tables struct {
	Bindings   string
	Dimensions string
	Settings   string
}

// TablesFor returns the table names the store layer uses under config.
func TablesFor(config store.Config) Tables {
	return Tables{
		Bindings:   config.TableName(dimension.BindingSchema.Name),
		Dimensions: config.TableName(dimension.DimensionSchema.Name),
		Settings:   config.TableName(dimension.SettingSchema.Name),
	}
}

// HandleEvent splits a batch by source table and hands each part to the
// matching handler. Records from unknown tables are skipped.
func (h *Handler) HandleEvent(ctx context.Context, tables Tables, event events.DynamoDBEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parts := map[string]*events.DynamoDBEvent{}
	for _, record := range event.Records {
		name := sourceTable(record.EventSourceArn)
		part, ok := parts[name]
		if !ok {
			part = &events.DynamoDBEvent{}
			parts[name] = part
		}
		part.Records = append(part.Records, record)
	}

	var errs []error
	for name, part := range parts {
		switch name {
		case tables.Bindings:
			errs = append(errs, h.HandleBindingChanges(ctx, *part))
		case tables.Dimensions:
			errs = append(errs, h.HandleDimensionChanges(ctx, *part))
		case tables.Settings:
			errs = append(errs, h.HandleSettingChanges(ctx, *part))
		default:
			h.logger.Warn("skipping records from unknown table",
				"table", name,
				"records", len(part.Records),
			)
		}
	}
	return errors.Join(errs...)
}

// sourceTable extracts NAME from arn:aws:dynamodb:REGION:ACCOUNT:table/NAME/stream/LABEL.
func sourceTable(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}
