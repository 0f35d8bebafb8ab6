// Package stream turns DynamoDB Streams records from the dimension tables
// into cache invalidations. It runs only when the stream is the configured
// invalidation source; the service then publishes nothing itself.
package stream

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/dimensions/broadcast"
	"github.com/jacentio/dimensions/dimension"
)

const (
	eventInsert = "INSERT"
	eventModify = "MODIFY"
	eventRemove = "REMOVE"
)

var (
	bindingAttrs = attrs{
		strings: []string{dimension.FieldUserID, dimension.FieldDimensionID, dimension.FieldDimensionTypeID},
	}
	dimensionAttrs = attrs{
		strings: []string{dimension.FieldTypeID, dimension.FieldParentID, "name"},
		numbers: []string{"sortIndex"},
	}
	settingAttrs = attrs{
		strings: []string{dimension.FieldDimensionType, dimension.FieldDimensionTarget, "permission"},
		numbers: []string{"priority"},
		lists:   []string{"actions"},
	}
)

// Handler processes DynamoDB stream events and publishes at most one
// invalidation per batch.
type Handler struct {
	publisher broadcast.Publisher
	logger    *slog.Logger
}

// NewHandler creates a new stream handler. A nil publisher discards invalidations.
func NewHandler(publisher broadcast.Publisher, logger *slog.Logger) *Handler {
	if publisher == nil {
		publisher = broadcast.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		publisher: publisher,
		logger:    logger,
	}
}

// HandleBindingChanges invalidates the users whose bindings were added,
// removed or rewritten. Both images are read, so moving a binding between
// users invalidates both.
func (h *Handler) HandleBindingChanges(ctx context.Context, event events.DynamoDBEvent) error {
	if err := ctx.Err(); err != nil {
		return err // Will retry
	}

	seen := make(map[string]bool)
	var users []string
	for _, record := range event.Records {
		if !relevant(record, bindingAttrs) {
			continue
		}
		for _, image := range []map[string]events.DynamoDBAttributeValue{record.Change.OldImage, record.Change.NewImage} {
			user := getStringAttr(image, dimension.FieldUserID)
			if user == "" || seen[user] {
				continue
			}
			seen[user] = true
			users = append(users, user)
		}
	}

	if len(users) == 0 {
		h.logger.Debug("no binding changes in batch", "records", len(event.Records))
		return nil
	}
	h.logger.Info("binding changes invalidate users",
		"records", len(event.Records),
		"users", len(users),
	)
	h.publisher.Publish(ctx, broadcast.ForUsers(users...))
	return nil
}

// HandleDimensionChanges publishes one invalidate-all when the batch adds,
// removes or restructures any dimension.
func (h *Handler) HandleDimensionChanges(ctx context.Context, event events.DynamoDBEvent) error {
	return h.invalidateAll(ctx, event, dimensionAttrs, "dimension")
}

// HandleSettingChanges publishes one invalidate-all when the batch touches
// any authorization setting rule.
func (h *Handler) HandleSettingChanges(ctx context.Context, event events.DynamoDBEvent) error {
	return h.invalidateAll(ctx, event, settingAttrs, "setting")
}

func (h *Handler) invalidateAll(ctx context.Context, event events.DynamoDBEvent, tracked attrs, kind string) error {
	if err := ctx.Err(); err != nil {
		return err // Will retry
	}

	changes := 0
	for _, record := range event.Records {
		if relevant(record, tracked) {
			changes++
		}
	}
	if changes == 0 {
		h.logger.Debug("no relevant changes in batch", "kind", kind, "records", len(event.Records))
		return nil
	}

	h.logger.Info("changes invalidate all users",
		"kind", kind,
		"records", len(event.Records),
		"changes", changes,
	)
	h.publisher.Publish(ctx, broadcast.All())
	return nil
}

// relevant reports whether a record adds or removes a row, or modifies a
// tracked attribute.
func relevant(record events.DynamoDBEventRecord, tracked attrs) bool {
	switch record.EventName {
	case eventInsert, eventRemove:
		return true
	case eventModify:
		return tracked.changed(record.Change.OldImage, record.Change.NewImage)
	}
	return false
}
