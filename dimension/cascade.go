package dimension

import (
	"context"
	"sort"
	"time"

	"github.com/jacentio/dimensions/broadcast"
	"github.com/jacentio/dimensions/store"
)

// Stage is a step of a cascading delete.
type Stage int

const (
	StageRequested Stage = iota
	StageExpanded
	StageBindingsCleared
	StageDimensionsRemoved
	StageSettingsCleared
	StageInvalidated
	StageCompleted
	StageFailed
)

var stageNames = [...]string{
	StageRequested:         "requested",
	StageExpanded:          "expanded",
	StageBindingsCleared:   "bindings_cleared",
	StageDimensionsRemoved: "dimensions_removed",
	StageSettingsCleared:   "settings_cleared",
	StageInvalidated:       "invalidated",
	StageCompleted:         "completed",
	StageFailed:            "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// DeleteReport describes one cascading delete run.
type DeleteReport struct {
	// Requested is the number of ids the caller asked to delete.
	Requested int `json:"requested" yaml:"requested"`

	// Expanded lists every dimension id the request reached, descendants included.
	Expanded []string `json:"expanded" yaml:"expanded"`

	Bindings   int `json:"bindings" yaml:"bindings"`
	Dimensions int `json:"dimensions" yaml:"dimensions"`
	Settings   int `json:"settings" yaml:"settings"`

	// Stage is StageCompleted on success and StageFailed otherwise. The
	// failing stage is carried by the StageError.
	Stage Stage `json:"-" yaml:"-"`
}

// DeleteDimensions removes the given dimensions with all their descendants,
// the bindings referencing them and the authorization settings targeting
// them, then publishes one invalidate-all signal. It returns the number of
// ids requested, not the number of rows removed.
//
// Deleting ids that are already gone succeeds, so a failed run is retried by
// calling DeleteDimensions again with the same ids. When a requested id no
// longer exists, settings whose target matches no stored dimension are
// removed as well, which finishes a run that failed after its dimensions
// were deleted.
func (s *Service) DeleteDimensions(ctx context.Context, ids []string) (int, error) {
	report, err := s.DeleteDimensionsReport(ctx, ids)
	if err != nil {
		return 0, err
	}
	return report.Requested, nil
}

// DeleteDimensionsReport runs the cascade and reports what each stage removed.
// On failure the counts reflect the stages completed before the error.
func (s *Service) DeleteDimensionsReport(ctx context.Context, ids []string) (DeleteReport, error) {
	report := DeleteReport{Requested: len(ids), Stage: StageRequested}
	if len(ids) == 0 {
		s.publish(ctx, broadcast.All())
		report.Stage = StageCompleted
		return report, nil
	}
	start := time.Now()

	s.logger.Info("cascade delete started", "requested", len(ids))

	advance := func(stage Stage) {
		report.Stage = stage
		s.logger.Debug("cascade stage reached", "stage", stage.String())
	}
	fail := func(stage Stage, err error) (DeleteReport, error) {
		s.logger.Error("cascade delete aborted",
			"stage", stage.String(),
			"completed", report.Stage.String(),
			"requested", report.Requested,
			"error", err,
		)
		s.metrics.cascadeFailed(stage)
		report.Stage = StageFailed
		return report, &StageError{Stage: stage, Err: err}
	}

	// Expanded
	if err := ctx.Err(); err != nil {
		return fail(StageExpanded, err)
	}
	closure, err := s.tree.Closure(ctx, ids)
	if err != nil {
		return fail(StageExpanded, err)
	}
	byType := make(map[string][]string)
	found := make(map[string]bool, len(closure))
	report.Expanded = make([]string, 0, len(closure))
	for _, d := range closure {
		report.Expanded = append(report.Expanded, d.ID)
		byType[d.TypeID] = append(byType[d.TypeID], d.ID)
		found[d.ID] = true
	}
	gone := false
	for _, id := range ids {
		if !found[id] {
			gone = true
			break
		}
	}
	advance(StageExpanded)

	// BindingsCleared
	if err := ctx.Err(); err != nil {
		return fail(StageBindingsCleared, err)
	}
	report.Bindings, err = s.stores.Bindings.DeleteWhere(ctx,
		store.Where(store.In(FieldDimensionID, report.Expanded...)))
	if err != nil {
		return fail(StageBindingsCleared, err)
	}
	advance(StageBindingsCleared)

	// DimensionsRemoved
	if err := ctx.Err(); err != nil {
		return fail(StageDimensionsRemoved, err)
	}
	report.Dimensions, err = s.stores.Dimensions.DeleteWhere(ctx,
		store.Where(store.In(store.IDField, report.Expanded...)))
	if err != nil {
		return fail(StageDimensionsRemoved, err)
	}
	advance(StageDimensionsRemoved)

	// SettingsCleared, one delete per type so targets never match across types
	if err := ctx.Err(); err != nil {
		return fail(StageSettingsCleared, err)
	}
	types := make([]string, 0, len(byType))
	for typeID := range byType {
		types = append(types, typeID)
	}
	sort.Strings(types)
	for _, typeID := range types {
		n, err := s.stores.Settings.DeleteWhere(ctx, store.Where(
			store.Eq(FieldDimensionType, typeID),
			store.In(FieldDimensionTarget, byType[typeID]...),
		))
		if err != nil {
			return fail(StageSettingsCleared, err)
		}
		report.Settings += n
	}
	// descendants of an id deleted by an earlier run can no longer be found
	if gone {
		n, err := s.clearDanglingSettings(ctx)
		if err != nil {
			return fail(StageSettingsCleared, err)
		}
		report.Settings += n
	}
	advance(StageSettingsCleared)

	// Invalidated, also when ctx was canceled after the last delete
	s.publish(ctx, broadcast.All())
	advance(StageInvalidated)

	advance(StageCompleted)
	s.metrics.cascadeCompleted(len(report.Expanded))
	s.logger.Info("cascade delete completed",
		"requested", report.Requested,
		"expanded", len(report.Expanded),
		"bindings", report.Bindings,
		"dimensions", report.Dimensions,
		"settings", report.Settings,
		"duration", time.Since(start),
	)
	return report, nil
}

// clearDanglingSettings removes settings whose target is not a stored dimension.
func (s *Service) clearDanglingSettings(ctx context.Context) (int, error) {
	settings, err := s.stores.Settings.Query(ctx, nil)
	if err != nil {
		return 0, err
	}
	targets := make([]string, 0, len(settings))
	for _, st := range settings {
		targets = append(targets, st.DimensionTarget)
	}
	targets = unique(targets)
	if len(targets) == 0 {
		return 0, nil
	}

	dims, err := s.stores.Dimensions.Query(ctx, store.Where(store.In(store.IDField, targets...)))
	if err != nil {
		return 0, err
	}
	live := make(map[string]bool, len(dims))
	for _, d := range dims {
		live[d.ID] = true
	}

	var dangling []string
	for _, st := range settings {
		if !live[st.DimensionTarget] {
			dangling = append(dangling, st.ID)
		}
	}
	if len(dangling) == 0 {
		return 0, nil
	}
	n, err := s.stores.Settings.DeleteWhere(ctx, store.Where(store.In(store.IDField, dangling...)))
	if n > 0 {
		s.logger.Warn("removed settings of dimensions deleted earlier", "settings", n)
	}
	return n, err
}
