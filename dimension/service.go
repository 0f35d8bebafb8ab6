package dimension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacentio/dimensions/broadcast"
	"github.com/jacentio/dimensions/idgen"
	"github.com/jacentio/dimensions/store"
)

// Service resolves user dimensions and applies dimension mutations, publishing
// cache invalidations after each one succeeds.
type Service struct {
	stores    Stores
	tree      *Tree[Dimension]
	publisher broadcast.Publisher
	ids       idgen.Generator[string]
	logger    *slog.Logger
	metrics   *Metrics
}

// NewService creates a service over stores. A nil publisher discards
// invalidations; a nil logger uses slog.Default(). Dimension ids default to
// the md5 strategy.
func NewService(stores Stores, publisher broadcast.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = broadcast.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		stores:    stores,
		tree:      NewTree(stores.Dimensions, FieldParentID, DimensionHooks),
		publisher: publisher,
		ids:       idgen.MD5(),
		logger:    logger,
	}
}

// SetIDGenerator replaces the generator used for new dimension and type ids.
func (s *Service) SetIDGenerator(g idgen.Generator[string]) {
	s.ids = g
}

// SetMetrics attaches prometheus collectors.
func (s *Service) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Tree exposes the hierarchy queries over the dimension table.
func (s *Service) Tree() *Tree[Dimension] {
	return s.tree
}

// AllTypes lists every dimension type.
func (s *Service) AllTypes(ctx context.Context) ([]DimensionType, error) {
	types, err := s.stores.Types.Query(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list dimension types: %w", err)
	}
	return types, nil
}

// SaveType creates or replaces a dimension type, assigning an id when empty.
func (s *Service) SaveType(ctx context.Context, t DimensionType) (DimensionType, error) {
	if t.ID == "" {
		id, err := s.newID()
		if err != nil {
			return t, err
		}
		t.ID = id
	}
	saved, err := s.stores.Types.Save(ctx, t)
	if err != nil {
		return t, fmt.Errorf("save dimension type %s: %w", t.ID, err)
	}
	return saved, nil
}

// ResolveDimensionsForUser returns every dimension the user is bound to,
// directly or through an ancestor, paired with its type. Dimensions of
// unknown types are skipped.
func (s *Service) ResolveDimensionsForUser(ctx context.Context, userID string) ([]DynamicDimension, error) {
	types, err := s.typeIndex(ctx)
	if err != nil {
		return nil, err
	}

	bindings, err := s.stores.Bindings.Query(ctx, store.Where(store.Eq(FieldUserID, userID)))
	if err != nil {
		return nil, fmt.Errorf("load bindings of %s: %w", userID, err)
	}
	if len(bindings) == 0 {
		return nil, nil
	}

	direct := make([]string, 0, len(bindings))
	for _, b := range bindings {
		direct = append(direct, b.DimensionID)
	}
	closure, err := s.tree.Closure(ctx, direct)
	if err != nil {
		return nil, fmt.Errorf("expand dimensions of %s: %w", userID, err)
	}

	out := make([]DynamicDimension, 0, len(closure))
	for _, d := range closure {
		t, ok := types[d.TypeID]
		if !ok {
			continue
		}
		out = append(out, DynamicDimension{Dimension: d, Type: t})
	}
	return out, nil
}

// ResolveDimensionByID returns one dimension of the given type.
// It returns ErrTypeNotFound or ErrNotFound when either is missing, and
// ErrNotFound when the dimension belongs to another type.
func (s *Service) ResolveDimensionByID(ctx context.Context, typeID, id string) (DynamicDimension, error) {
	t, err := s.findType(ctx, typeID)
	if err != nil {
		return DynamicDimension{}, err
	}
	d, err := s.stores.Dimensions.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return DynamicDimension{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return DynamicDimension{}, fmt.Errorf("load dimension %s: %w", id, err)
	}
	if d.TypeID != typeID {
		return DynamicDimension{}, fmt.Errorf("%w: %s is not a %s", ErrNotFound, id, typeID)
	}
	return DynamicDimension{Dimension: d, Type: t}, nil
}

// ResolveDimensionsByID returns the dimensions of the given type among ids.
// Missing ids are skipped.
func (s *Service) ResolveDimensionsByID(ctx context.Context, typeID string, ids []string) ([]DynamicDimension, error) {
	t, err := s.findType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	dims, err := s.stores.Dimensions.Query(ctx, store.Where(
		store.Eq(FieldTypeID, typeID),
		store.In(store.IDField, unique(ids)...),
	))
	if err != nil {
		return nil, fmt.Errorf("load %s dimensions: %w", typeID, err)
	}
	out := make([]DynamicDimension, 0, len(dims))
	for _, d := range dims {
		out = append(out, DynamicDimension{Dimension: d, Type: t})
	}
	return out, nil
}

// DimensionTree returns the dimensions of a type nested into a forest.
func (s *Service) DimensionTree(ctx context.Context, typeID string) ([]Dimension, error) {
	dims, err := s.stores.Dimensions.Query(ctx, store.Where(store.Eq(FieldTypeID, typeID)))
	if err != nil {
		return nil, fmt.Errorf("load %s dimensions: %w", typeID, err)
	}
	return s.tree.Assemble(dims), nil
}

// Save creates or replaces dimensions together with any nested children,
// then publishes one invalidate-all signal. Children inherit their parent's
// id and, when unset, its type. Missing ids are generated. The saved rows
// are returned flat, parents before children.
func (s *Service) Save(ctx context.Context, dims ...Dimension) ([]Dimension, error) {
	flat, err := s.flatten(dims, "", "")
	if err != nil {
		return nil, err
	}

	saved := make([]Dimension, 0, len(flat))
	for _, d := range flat {
		row, err := s.stores.Dimensions.Save(ctx, d)
		if err != nil {
			return saved, fmt.Errorf("save dimension %s: %w", d.ID, err)
		}
		saved = append(saved, row)
	}
	if len(saved) > 0 {
		s.publish(ctx, broadcast.All())
	}
	return saved, nil
}

// UpdateByID replaces an existing dimension and publishes an invalidate-all
// signal. It returns ErrNotFound when no dimension has the id.
func (s *Service) UpdateByID(ctx context.Context, id string, d Dimension) (Dimension, error) {
	if _, err := s.stores.Dimensions.FindByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return d, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return d, fmt.Errorf("load dimension %s: %w", id, err)
	}
	d.ID = id
	d.Children = nil
	saved, err := s.stores.Dimensions.Save(ctx, d)
	if err != nil {
		return d, fmt.Errorf("update dimension %s: %w", id, err)
	}
	s.publish(ctx, broadcast.All())
	return saved, nil
}

// flatten walks nested dimensions depth-first, assigning ids and parent links.
func (s *Service) flatten(dims []Dimension, parentID, typeID string) ([]Dimension, error) {
	var out []Dimension
	for _, d := range dims {
		if d.ID == "" {
			id, err := s.newID()
			if err != nil {
				return nil, err
			}
			d.ID = id
		}
		if parentID != "" {
			d.ParentID = parentID
		}
		if d.TypeID == "" {
			d.TypeID = typeID
		}
		children := d.Children
		d.Children = nil
		out = append(out, d)

		nested, err := s.flatten(children, d.ID, d.TypeID)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func (s *Service) newID() (string, error) {
	id, err := s.ids.Generate()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("generate id: %w", store.ErrMissingID)
	}
	return id, nil
}

func (s *Service) typeIndex(ctx context.Context) (map[string]DimensionType, error) {
	types, err := s.AllTypes(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]DimensionType, len(types))
	for _, t := range types {
		index[t.ID] = t
	}
	return index, nil
}

func (s *Service) findType(ctx context.Context, typeID string) (DimensionType, error) {
	t, err := s.stores.Types.FindByID(ctx, typeID)
	if errors.Is(err, store.ErrNotFound) {
		return t, fmt.Errorf("%w: %s", ErrTypeNotFound, typeID)
	}
	if err != nil {
		return t, fmt.Errorf("load dimension type %s: %w", typeID, err)
	}
	return t, nil
}

// publish emits inv and counts it. The write has already happened, so the
// signal outlives cancellation of ctx.
func (s *Service) publish(ctx context.Context, inv broadcast.Invalidation) {
	if inv.Empty() {
		return
	}
	s.publisher.Publish(context.WithoutCancel(ctx), inv)
	scope := "users"
	if inv.All {
		scope = "all"
	}
	s.metrics.invalidated(scope)
}
