package dimension

import (
	"context"
	"fmt"
	"sort"

	"github.com/jacentio/dimensions/store"
)

// TreeHooks tells a Tree how rows link to their parents.
type TreeHooks[T any] struct {
	ID       func(T) string
	ParentID func(T) string

	// SetChildren attaches assembled children to a node.
	SetChildren func(node *T, children []T)

	// Less orders siblings. Nil keeps query order.
	Less func(a, b T) bool
}

// Tree adds hierarchy queries to a repository of parent-linked rows.
type Tree[T any] struct {
	repo        Repository[T]
	hooks       TreeHooks[T]
	parentField string
}

// NewTree creates a tree over repo; parentField is the filter field holding
// the parent id.
func NewTree[T any](repo Repository[T], parentField string, hooks TreeHooks[T]) *Tree[T] {
	return &Tree[T]{repo: repo, hooks: hooks, parentField: parentField}
}

// DimensionHooks link dimensions through ParentID and order siblings by SortIndex.
var DimensionHooks = TreeHooks[Dimension]{
	ID:       func(d Dimension) string { return d.ID },
	ParentID: func(d Dimension) string { return d.ParentID },
	SetChildren: func(d *Dimension, children []Dimension) {
		d.Children = children
	},
	Less: func(a, b Dimension) bool { return a.SortIndex < b.SortIndex },
}

// Closure returns the rows with the given ids and every row reachable below
// them, each once, level by level. Visited ids are tracked, so cyclic data
// terminates.
func (t *Tree[T]) Closure(ctx context.Context, ids []string) ([]T, error) {
	frontier := unique(ids)
	if len(frontier) == 0 {
		return nil, nil
	}

	visited := make(map[string]bool, len(frontier))
	var out []T

	roots, err := t.repo.Query(ctx, store.Where(store.In(store.IDField, frontier...)))
	if err != nil {
		return nil, fmt.Errorf("load closure roots: %w", err)
	}
	for _, row := range roots {
		id := t.hooks.ID(row)
		if visited[id] {
			continue
		}
		visited[id] = true
		out = append(out, row)
	}
	// requested ids seed the frontier even when the row itself is gone
	for _, id := range frontier {
		visited[id] = true
	}

	for depth := 0; len(frontier) > 0; depth++ {
		children, err := t.repo.Query(ctx, store.Where(store.In(t.parentField, frontier...)))
		if err != nil {
			return nil, fmt.Errorf("load closure level %d: %w", depth+1, err)
		}
		var next []string
		for _, row := range children {
			id := t.hooks.ID(row)
			if visited[id] {
				continue
			}
			visited[id] = true
			out = append(out, row)
			next = append(next, id)
		}
		frontier = next
	}
	return out, nil
}

// Assemble nests rows into a forest. Rows whose parent is not among rows
// become roots, as does the first row of any parent cycle.
func (t *Tree[T]) Assemble(rows []T) []T {
	present := make(map[string]bool, len(rows))
	for _, row := range rows {
		present[t.hooks.ID(row)] = true
	}

	byParent := make(map[string][]T)
	var roots []T
	for _, row := range rows {
		parent := t.hooks.ParentID(row)
		if parent == "" || !present[parent] {
			roots = append(roots, row)
			continue
		}
		byParent[parent] = append(byParent[parent], row)
	}

	visited := make(map[string]bool, len(rows))
	var build func(node T) T
	build = func(node T) T {
		id := t.hooks.ID(node)
		visited[id] = true
		var children []T
		for _, child := range t.sorted(byParent[id]) {
			if visited[t.hooks.ID(child)] {
				continue
			}
			children = append(children, build(child))
		}
		t.hooks.SetChildren(&node, children)
		return node
	}

	forest := make([]T, 0, len(roots))
	for _, root := range t.sorted(roots) {
		forest = append(forest, build(root))
	}
	// rows caught in a parent cycle have no root above them
	for _, row := range rows {
		if !visited[t.hooks.ID(row)] {
			forest = append(forest, build(row))
		}
	}
	return forest
}

func (t *Tree[T]) sorted(rows []T) []T {
	if t.hooks.Less == nil || len(rows) < 2 {
		return rows
	}
	out := make([]T, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return t.hooks.Less(out[i], out[j]) })
	return out
}

// unique drops empty and repeated ids, keeping first occurrences.
func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
