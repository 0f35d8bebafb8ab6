package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
)

type widget struct {
	ID    string `json:"id" dynamodbav:"id"`
	Kind  string `json:"kind" dynamodbav:"kind"`
	Owner string `json:"owner" dynamodbav:"owner"`
	Label string `json:"label,omitempty" dynamodbav:"label,omitempty"`
}

var widgetSchema = Schema[widget]{
	Name: "widgets",
	ID:   func(w widget) string { return w.ID },
	Fields: map[string]func(widget) string{
		"kind":  func(w widget) string { return w.Kind },
		"owner": func(w widget) string { return w.Owner },
	},
}

func ids(rows []widget) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	sort.Strings(out)
	return out
}

func equalIDs(a, b []string) bool {
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

func seedWidgets(t *testing.T, table Table[widget]) {
	t.Helper()
	ctx := context.Background()
	rows := []widget{
		{ID: "w1", Kind: "gear", Owner: "alice"},
		{ID: "w2", Kind: "gear", Owner: "bob"},
		{ID: "w3", Kind: "spring", Owner: "alice"},
		{ID: "w4", Kind: "lever", Owner: "carol"},
	}
	for _, r := range rows {
		if _, err := table.Save(ctx, r); err != nil {
			t.Fatalf("Save(%s): %v", r.ID, err)
		}
	}
}

// runTableContract exercises the behavior every backend must share.
func runTableContract(t *testing.T, newTable func(t *testing.T) Table[widget]) {
	ctx := context.Background()

	t.Run("FindByID", func(t *testing.T) {
		table := newTable(t)
		seedWidgets(t, table)

		got, err := table.FindByID(ctx, "w3")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Kind != "spring" || got.Owner != "alice" {
			t.Errorf("expected spring/alice, got %+v", got)
		}

		if _, err := table.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("QueryFilters", func(t *testing.T) {
		table := newTable(t)
		seedWidgets(t, table)

		tests := []struct {
			name     string
			filter   Filter
			expected []string
		}{
			{"empty filter matches all", nil, []string{"w1", "w2", "w3", "w4"}},
			{"eq", Where(Eq("kind", "gear")), []string{"w1", "w2"}},
			{"in", Where(In("owner", "alice", "carol")), []string{"w1", "w3", "w4"}},
			{"and", Where(Eq("kind", "gear"), Eq("owner", "alice")), []string{"w1"}},
			{"by id", Where(In(IDField, "w2", "w4", "nope")), []string{"w2", "w4"}},
			{"no values matches nothing", Where(In("kind")), nil},
			{"no match", Where(Eq("kind", "cog")), nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rows, err := table.Query(ctx, tt.filter)
				if err != nil {
					t.Fatalf("Query: %v", err)
				}
				if got := ids(rows); !equalIDs(got, tt.expected) {
					t.Errorf("expected %v, got %v", tt.expected, got)
				}
			})
		}
	})

	t.Run("QueryUnknownField", func(t *testing.T) {
		table := newTable(t)
		if _, err := table.Query(ctx, Where(Eq("color", "red"))); !errors.Is(err, ErrUnknownField) {
			t.Errorf("expected ErrUnknownField, got %v", err)
		}
		if _, err := table.DeleteWhere(ctx, Where(Eq("color", "red"))); !errors.Is(err, ErrUnknownField) {
			t.Errorf("expected ErrUnknownField, got %v", err)
		}
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		table := newTable(t)
		seedWidgets(t, table)

		if _, err := table.Save(ctx, widget{ID: "w1", Kind: "spring", Owner: "alice", Label: "renamed"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := table.FindByID(ctx, "w1")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Kind != "spring" || got.Label != "renamed" {
			t.Errorf("expected replaced row, got %+v", got)
		}

		rows, _ := table.Query(ctx, Where(Eq("kind", "spring")))
		if got := ids(rows); !equalIDs(got, []string{"w1", "w3"}) {
			t.Errorf("expected filter columns updated, got %v", got)
		}
		all, _ := table.Query(ctx, nil)
		if len(all) != 4 {
			t.Errorf("expected 4 rows after replace, got %d", len(all))
		}
	})

	t.Run("SaveMissingID", func(t *testing.T) {
		table := newTable(t)
		if _, err := table.Save(ctx, widget{Kind: "gear"}); !errors.Is(err, ErrMissingID) {
			t.Errorf("expected ErrMissingID, got %v", err)
		}
	})

	t.Run("DeleteWhere", func(t *testing.T) {
		table := newTable(t)
		seedWidgets(t, table)

		n, err := table.DeleteWhere(ctx, Where(Eq("owner", "alice")))
		if err != nil {
			t.Fatalf("DeleteWhere: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 deleted, got %d", n)
		}

		rows, _ := table.Query(ctx, nil)
		if got := ids(rows); !equalIDs(got, []string{"w2", "w4"}) {
			t.Errorf("expected w2,w4 to remain, got %v", got)
		}
	})

	t.Run("DeleteWhereIdempotent", func(t *testing.T) {
		table := newTable(t)
		seedWidgets(t, table)

		filter := Where(In(IDField, "w1", "w2"))
		if n, err := table.DeleteWhere(ctx, filter); err != nil || n != 2 {
			t.Fatalf("first delete: n=%d err=%v", n, err)
		}
		n, err := table.DeleteWhere(ctx, filter)
		if err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 on repeated delete, got %d", n)
		}
		if n, err := table.DeleteWhere(ctx, Where(In(IDField))); err != nil || n != 0 {
			t.Errorf("expected empty IN to delete nothing, got n=%d err=%v", n, err)
		}
	})

	t.Run("LargeInList", func(t *testing.T) {
		table := newTable(t)
		var wanted []string
		for i := 0; i < 260; i++ {
			id := fmt.Sprintf("bulk-%03d", i)
			if _, err := table.Save(ctx, widget{ID: id, Kind: "bulk", Owner: "ops"}); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if i%2 == 0 {
				wanted = append(wanted, id)
			}
		}
		// ids that do not exist ride along without matching
		filter := Where(In(IDField, append(wanted, "ghost-1", "ghost-2")...))

		rows, err := table.Query(ctx, filter)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(rows) != len(wanted) {
			t.Errorf("expected %d rows, got %d", len(wanted), len(rows))
		}

		n, err := table.DeleteWhere(ctx, filter)
		if err != nil {
			t.Fatalf("DeleteWhere: %v", err)
		}
		if n != len(wanted) {
			t.Errorf("expected %d deleted, got %d", len(wanted), n)
		}
		rest, _ := table.Query(ctx, Where(Eq("kind", "bulk")))
		if len(rest) != 260-len(wanted) {
			t.Errorf("expected %d remaining, got %d", 260-len(wanted), len(rest))
		}
	})
}
