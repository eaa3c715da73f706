package state

import (
	"fmt"
	"strconv"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
)

// Normalize fills in the generated ids an action needs so that Reduce stays
// deterministic.
func Normalize(a Action) Action {
	edit, ok := a.(EditLayout)
	if !ok {
		return a
	}

	switch e := edit.Edit.(type) {
	case layout.CreateComponent:
		if e.ID == "" {
			e.ID = layout.NewComponentID(e.Type)
		}

		if e.WrapperID == "" {
			e.WrapperID = layout.NewComponentID(layout.TypeRow)
		}

		if e.Type == layout.TypeTabs && e.TabID == "" {
			e.TabID = layout.NewComponentID(layout.TypeTab)
		}

		return EditLayout{Edit: e}
	case layout.MoveComponent:
		if e.WrapperID == "" {
			e.WrapperID = layout.NewComponentID(layout.TypeRow)
		}

		return EditLayout{Edit: e}
	case layout.CreateTopLevelTabs:
		if e.TabsID == "" {
			e.TabsID = layout.NewComponentID(layout.TypeTabs)
		}

		if e.TabID == "" {
			e.TabID = layout.NewComponentID(layout.TypeTab)
		}

		return EditLayout{Edit: e}
	default:
		return a
	}
}

// Validate rejects actions that must not reach Reduce
func Validate(s State, a Action) error {
	switch act := a.(type) {
	case EditLayout:
		if act.Edit == nil {
			return fmt.Errorf("%w: missing layout edit", ErrInvalidAction)
		}
	case SetFilterConfiguration:
		if _, err := nativefilters.NewCascade(act.Configuration); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAction, err)
		}
	case UpdateDataMask:
		if act.ID == "" {
			return fmt.Errorf("%w: data mask id is required", ErrInvalidAction)
		}
	case SetRefreshFrequency:
		if act.Frequency < 0 {
			return fmt.Errorf("%w: negative refresh frequency", ErrInvalidAction)
		}
	case SetActiveTab:
		if act.TabID == "" {
			return fmt.Errorf("%w: tab id is required", ErrInvalidAction)
		}
	case nil:
		return fmt.Errorf("%w: nil action", ErrInvalidAction)
	}

	return nil
}

// Reduce applies a to s and returns the next state. It is pure: generated
// ids must already be set (see Normalize). Actions referencing unknown
// components or charts leave the state unchanged.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case EditLayout:
		return s.applyEdit(act.Edit)
	case Undo:
		if !s.Layout.CanUndo() {
			return s
		}

		s.Layout = s.Layout.Undo()
		s.HasUnsavedChanges = true

		return s.resync()
	case Redo:
		if !s.Layout.CanRedo() {
			return s
		}

		s.Layout = s.Layout.Redo()
		s.HasUnsavedChanges = true

		return s.resync()
	case ChangeFilter:
		if !containsInt(s.SliceIDs, act.ChartID) {
			return s
		}

		s.Filters = s.Filters.ApplyValueChange(act.ChartID, act.Values, act.Merge)
	case UpdateDirectPathToFilter:
		s.Filters = s.Filters.UpdateDirectPath(act.ChartID, act.Path)
	case UpdateFilterScopes:
		s.Filters = s.Filters.UpdateScopes(act.Scopes)
		s.HasUnsavedChanges = true
	case UpdateDataMask:
		s.DataMask = s.DataMask.With(act.ID, act.DataMask)
	case ClearDataMask:
		if _, ok := s.DataMask[act.ID]; !ok {
			return s
		}

		s.DataMask = s.DataMask.Without(act.ID)
	case SetActiveTabs:
		s.ActiveTabs = append([]string{}, act.ActiveTabs...)
	case SetActiveTab:
		s.ActiveTabs = switchTab(s.ActiveTabs, act.PrevTabID, act.TabID)
	case SetEditMode:
		s.EditMode = act.EditMode
	case SetFilterConfiguration:
		return s.setFilterConfiguration(act.Configuration)
	case SetChartConfiguration:
		global := s.GlobalChartConfiguration
		if act.GlobalChartConfiguration != nil {
			global = *act.GlobalChartConfiguration
		}

		s.ChartConfiguration, s.GlobalChartConfiguration = nativefilters.CrossFilterConfiguration(
			s.Present(), act.ChartConfiguration, &global, s.SliceIDs,
		)
		s.HasUnsavedChanges = true
	case SetDirectPathToChild:
		s.DirectPathToChild = append([]string{}, act.Path...)
	case UpdateTitle:
		return s.applyEdit(layout.UpdateComponentMeta{
			ID:    layout.HeaderID,
			Patch: layout.MetaPatch{Text: &act.Title},
		})
	case SetRefreshFrequency:
		s.RefreshFrequency = act.Frequency
		s.ShouldPersistRefreshFrequency = act.Persist

		if act.Persist {
			s.HasUnsavedChanges = true
		}
	case ToggleExpandSlice:
		expanded := make(map[int]bool, len(s.ExpandedSlices)+1)
		for id, v := range s.ExpandedSlices {
			expanded[id] = v
		}

		if expanded[act.ChartID] {
			delete(expanded, act.ChartID)
		} else {
			expanded[act.ChartID] = true
		}

		s.ExpandedSlices = expanded
	case SetCrossFiltersEnabled:
		s.CrossFiltersEnabled = act.Enabled
		s.HasUnsavedChanges = true
	case SetUnsavedChanges:
		s.HasUnsavedChanges = act.HasUnsavedChanges
	case Saved:
		s.HasUnsavedChanges = false
		s.EditMode = false
		s.ShouldPersistRefreshFrequency = false
		s.LastModifiedTime = act.LastModifiedTime
		s.Layout = layout.NewHistory(s.Present())
	}

	return s
}

func (s State) applyEdit(e layout.Edit) State {
	next, changed := layout.ApplyEdit(s.Present(), e)
	if !changed {
		return s
	}

	s.Layout = s.Layout.Push(next)
	s.HasUnsavedChanges = true

	if layout.IsStructural(e) {
		return s.resync()
	}

	return s
}

// setFilterConfiguration swaps the native filters, drops masks of removed
// filters and seeds default masks of new ones.
func (s State) setFilterConfiguration(c nativefilters.Configuration) State {
	s.NativeFilters = c.WithScopes(s.Present(), s.SliceIDs)

	mask := s.DataMask
	for _, id := range sortedMaskIDs(mask) {
		if _, err := strconv.Atoi(id); err == nil {
			continue
		}

		if _, ok := s.NativeFilters.Filter(id); !ok {
			mask = mask.Without(id)
		}
	}

	for id, def := range s.NativeFilters.DefaultDataMask() {
		if _, ok := mask[id]; !ok {
			mask = mask.With(id, def)
		}
	}

	s.DataMask = mask
	s.HasUnsavedChanges = true

	return s
}

// switchTab drops prev and adds next, keeping the order of the others
func switchTab(active []string, prev, next string) []string {
	out := make([]string, 0, len(active)+1)

	for _, id := range active {
		if id == prev && id != next {
			continue
		}

		out = append(out, id)
	}

	if !containsString(out, next) {
		out = append(out, next)
	}

	return out
}
