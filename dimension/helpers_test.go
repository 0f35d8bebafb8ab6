package dimension_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/jacentio/dimensions/broadcast"
	"github.com/jacentio/dimensions/dimension"
	"github.com/jacentio/dimensions/store"
)

var errStoreDown = errors.New("store unavailable")

// faultyRepo wraps a repository, failing chosen operations or running
// onDelete after each successful delete.
type faultyRepo[T any] struct {
	dimension.Repository[T]
	failQuery  error
	failDelete error
	onDelete   func()
	deletes    int
}

func (r *faultyRepo[T]) Query(ctx context.Context, filter store.Filter) ([]T, error) {
	if r.failQuery != nil {
		return nil, r.failQuery
	}
	return r.Repository.Query(ctx, filter)
}

func (r *faultyRepo[T]) DeleteWhere(ctx context.Context, filter store.Filter) (int, error) {
	r.deletes++
	if r.failDelete != nil {
		return 0, r.failDelete
	}
	n, err := r.Repository.DeleteWhere(ctx, filter)
	if r.onDelete != nil {
		r.onDelete()
	}
	return n, err
}

type fixture struct {
	stores   dimension.Stores
	recorder *broadcast.Recorder
	service  *dimension.Service
	bindings *faultyRepo[dimension.Binding]
	dims     *faultyRepo[dimension.Dimension]
	settings *faultyRepo[dimension.AuthorizationSetting]
}

// newFixture builds a service over memory tables holding two types and the
// department tree A -> B -> C with D under A, plus an unrelated root E.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := dimension.NewMemoryStores()
	f := &fixture{
		recorder: &broadcast.Recorder{},
		bindings: &faultyRepo[dimension.Binding]{Repository: base.Bindings},
		dims:     &faultyRepo[dimension.Dimension]{Repository: base.Dimensions},
		settings: &faultyRepo[dimension.AuthorizationSetting]{Repository: base.Settings},
	}
	f.stores = dimension.Stores{
		Types:      base.Types,
		Dimensions: f.dims,
		Bindings:   f.bindings,
		Settings:   f.settings,
	}
	f.service = dimension.NewService(f.stores, f.recorder, nil)

	ctx := context.Background()
	for _, typ := range []dimension.DimensionType{
		{ID: "dept", Name: "Department"},
		{ID: "role", Name: "Role"},
	} {
		if _, err := f.service.SaveType(ctx, typ); err != nil {
			t.Fatalf("SaveType: %v", err)
		}
	}
	for _, d := range []dimension.Dimension{
		{ID: "A", TypeID: "dept", Name: "Engineering"},
		{ID: "B", TypeID: "dept", ParentID: "A", Name: "Platform", SortIndex: 2},
		{ID: "C", TypeID: "dept", ParentID: "B", Name: "Storage"},
		{ID: "D", TypeID: "dept", ParentID: "A", Name: "Mobile", SortIndex: 1},
		{ID: "E", TypeID: "role", Name: "Admin"},
	} {
		if _, err := base.Dimensions.Save(ctx, d); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	return f
}

func (f *fixture) bind(t *testing.T, userID, typeID string, dimensionIDs ...string) {
	t.Helper()
	for _, id := range dimensionIDs {
		_, err := f.service.Bind(context.Background(), dimension.Binding{
			UserID: userID, DimensionID: id, DimensionTypeID: typeID,
		})
		if err != nil {
			t.Fatalf("Bind: %v", err)
		}
	}
}

func (f *fixture) grant(t *testing.T, typeID string, targets ...string) {
	t.Helper()
	for _, target := range targets {
		_, err := f.stores.Settings.Save(context.Background(), dimension.AuthorizationSetting{
			ID:              fmt.Sprintf("%s-%s", typeID, target),
			DimensionType:   typeID,
			DimensionTarget: target,
			Permission:      "reports",
			Actions:         []string{"read"},
		})
		if err != nil {
			t.Fatalf("save setting: %v", err)
		}
	}
}

func dimensionIDs(dims []dimension.Dimension) []string {
	out := make([]string, 0, len(dims))
	for _, d := range dims {
		out = append(out, d.ID)
	}
	sort.Strings(out)
	return out
}

func dynamicIDs(dims []dimension.DynamicDimension) []string {
	out := make([]string, 0, len(dims))
	for _, d := range dims {
		out = append(out, d.ID())
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
