// Package dimension assigns users to hierarchical organizational dimensions
// and keeps the dimension, binding and authorization setting tables
// consistent when dimensions are deleted.
//
// # Resolution
//
// [Service.ResolveDimensionsForUser] reads a user's direct bindings, expands
// them to every descendant with [Tree.Closure] and pairs each dimension with
// its type.
//
// # Cascading deletes
//
// [Service.DeleteDimensions] runs a linear pipeline:
//
//	Requested -> Expanded -> BindingsCleared -> DimensionsRemoved ->
//	SettingsCleared -> Invalidated -> Completed
//
// A failing stage aborts the run with a [*StageError] naming the stage, and no
// invalidation is published. Stages are not atomic across tables, but every
// delete is idempotent, so the recovery for a failed run is to repeat it.
// Exactly one invalidate-all signal is published per completed run, however
// many dimensions the request expands to.
package dimension
