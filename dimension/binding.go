package dimension

import (
	"context"
	"fmt"

	"github.com/jacentio/dimensions/broadcast"
	"github.com/jacentio/dimensions/store"
)

// Bind associates users with dimensions and invalidates the cached data of
// the affected users. Rebinding an existing pair overwrites it.
func (s *Service) Bind(ctx context.Context, bindings ...Binding) ([]Binding, error) {
	for _, b := range bindings {
		if b.UserID == "" || b.DimensionID == "" || b.DimensionTypeID == "" {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidBinding, b)
		}
	}

	saved := make([]Binding, 0, len(bindings))
	var users []string
	for _, b := range bindings {
		b.ID = BindingID(b.UserID, b.DimensionTypeID, b.DimensionID)
		row, err := s.stores.Bindings.Save(ctx, b)
		if err != nil {
			return saved, fmt.Errorf("bind %s to %s: %w", b.UserID, b.DimensionID, err)
		}
		saved = append(saved, row)
		users = append(users, b.UserID)
	}
	s.publish(ctx, broadcast.ForUsers(unique(users)...))
	return saved, nil
}

// Unbind removes the user's bindings to the given dimensions, or all of the
// user's bindings when no dimension is given.
func (s *Service) Unbind(ctx context.Context, userID string, dimensionIDs ...string) (int, error) {
	filter := store.Where(store.Eq(FieldUserID, userID))
	if len(dimensionIDs) > 0 {
		filter = filter.And(store.In(FieldDimensionID, dimensionIDs...))
	}
	n, err := s.stores.Bindings.DeleteWhere(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("unbind %s: %w", userID, err)
	}
	if n > 0 {
		s.publish(ctx, broadcast.ForUsers(userID))
	}
	return n, nil
}

// BindInfo returns the bindings of the given users.
func (s *Service) BindInfo(ctx context.Context, userIDs []string) ([]Binding, error) {
	bindings, err := s.stores.Bindings.Query(ctx, store.Where(store.In(FieldUserID, unique(userIDs)...)))
	if err != nil {
		return nil, fmt.Errorf("load bindings: %w", err)
	}
	return bindings, nil
}

// UserIDsByDimension returns the users bound directly to a dimension.
func (s *Service) UserIDsByDimension(ctx context.Context, dimensionID string) ([]string, error) {
	bindings, err := s.stores.Bindings.Query(ctx, store.Where(store.Eq(FieldDimensionID, dimensionID)))
	if err != nil {
		return nil, fmt.Errorf("load users of %s: %w", dimensionID, err)
	}
	users := make([]string, 0, len(bindings))
	for _, b := range bindings {
		users = append(users, b.UserID)
	}
	return unique(users), nil
}
