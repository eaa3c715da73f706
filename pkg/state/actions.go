package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/reportviewer/pkg/filters"
	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
)

// ActionType is the wire tag of an action
type ActionType string

// Layout edits use the layout.EditKind names as their action type.
const (
	ActionUndo                     ActionType = "UNDO"
	ActionRedo                     ActionType = "REDO"
	ActionChangeFilter             ActionType = "CHANGE_FILTER"
	ActionUpdateDirectPathToFilter ActionType = "UPDATE_DIRECT_PATH_TO_FILTER"
	ActionUpdateFilterScopes       ActionType = "UPDATE_FILTER_SCOPES"
	ActionUpdateDataMask           ActionType = "UPDATE_DATA_MASK"
	ActionClearDataMask            ActionType = "CLEAR_DATA_MASK"
	ActionSetActiveTabs            ActionType = "SET_ACTIVE_TABS"
	ActionSetActiveTab             ActionType = "SET_ACTIVE_TAB"
	ActionSetEditMode              ActionType = "SET_EDIT_MODE"
	ActionSetFilterConfiguration   ActionType = "SET_FILTER_CONFIGURATION"
	ActionSetChartConfiguration    ActionType = "SET_CHART_CONFIGURATION"
	ActionSetDirectPathToChild     ActionType = "SET_DIRECT_PATH_TO_CHILD"
	ActionUpdateTitle              ActionType = "UPDATE_TITLE"
	ActionSetRefreshFrequency      ActionType = "SET_REFRESH_FREQUENCY"
	ActionToggleExpandSlice        ActionType = "TOGGLE_EXPAND_SLICE"
	ActionSetCrossFiltersEnabled   ActionType = "SET_CROSS_FILTERS_ENABLED"
	ActionSetUnsavedChanges        ActionType = "SET_UNSAVED_CHANGES"
	ActionSaved                    ActionType = "SAVED"
)

// Static errors
var (
	ErrUnknownAction = errors.New("unknown action type")
	ErrInvalidAction = errors.New("invalid action")
)

// Action is one of the state transitions accepted by Reduce
type Action interface {
	Type() ActionType
}

// EditLayout applies a layout edit and records an undo step
type EditLayout struct {
	Edit layout.Edit
}

// Undo restores the previous layout snapshot
type Undo struct{}

// Redo re-applies an undone layout snapshot
type Redo struct{}

// ChangeFilter updates the selection of a filter chart
type ChangeFilter struct {
	ChartID int              `json:"chartId"`
	Values  map[string][]any `json:"values"`
	Merge   bool             `json:"merge"`
}

// UpdateDirectPathToFilter records where a filter chart sits in the layout
type UpdateDirectPathToFilter struct {
	ChartID int      `json:"chartId"`
	Path    []string `json:"path"`
}

// UpdateFilterScopes replaces column scopes keyed by filter key
type UpdateFilterScopes struct {
	Scopes map[string]filters.ColumnScope `json:"scopes"`
}

// UpdateDataMask merges a mask for a native filter or cross filtering chart
type UpdateDataMask struct {
	ID       string                 `json:"id"`
	DataMask nativefilters.DataMask `json:"dataMask"`
}

// ClearDataMask drops the mask of a native filter or chart
type ClearDataMask struct {
	ID string `json:"id"`
}

// SetActiveTabs replaces the active tab ids
type SetActiveTabs struct {
	ActiveTabs []string `json:"activeTabs"`
}

// SetActiveTab switches from PrevTabID to TabID
type SetActiveTab struct {
	TabID     string `json:"tabId"`
	PrevTabID string `json:"prevTabId,omitempty"`
}

// SetEditMode toggles edit mode
type SetEditMode struct {
	EditMode bool `json:"editMode"`
}

// SetFilterConfiguration replaces the native filter configuration
type SetFilterConfiguration struct {
	Configuration nativefilters.Configuration `json:"filterConfig"`
}

// SetChartConfiguration replaces the cross filter scoping of charts
type SetChartConfiguration struct {
	ChartConfiguration       nativefilters.ChartConfiguration        `json:"chartConfiguration"`
	GlobalChartConfiguration *nativefilters.GlobalChartConfiguration `json:"globalChartConfiguration,omitempty"`
}

// SetDirectPathToChild focuses a component
type SetDirectPathToChild struct {
	Path []string `json:"path"`
}

// UpdateTitle renames the report viewer through the layout header so it can
// be undone.
type UpdateTitle struct {
	Title string `json:"title"`
}

// SetRefreshFrequency changes the auto refresh interval in seconds. Only a
// persisted frequency is written on save.
type SetRefreshFrequency struct {
	Frequency int  `json:"frequency"`
	Persist   bool `json:"persist"`
}

// ToggleExpandSlice flips the expanded description of a chart
type ToggleExpandSlice struct {
	ChartID int `json:"chartId"`
}

// SetCrossFiltersEnabled toggles cross filtering
type SetCrossFiltersEnabled struct {
	Enabled bool `json:"enabled"`
}

// SetUnsavedChanges marks the session dirty or clean
type SetUnsavedChanges struct {
	HasUnsavedChanges bool `json:"hasUnsavedChanges"`
}

// Saved records a successful save
type Saved struct {
	LastModifiedTime time.Time `json:"lastModifiedTime"`
}

// Type implements Action
func (a EditLayout) Type() ActionType {
	if a.Edit == nil {
		return "EDIT_LAYOUT"
	}

	return ActionType(a.Edit.Kind())
}

// Type implements Action
func (Undo) Type() ActionType { return ActionUndo }

// Type implements Action
func (Redo) Type() ActionType { return ActionRedo }

// Type implements Action
func (ChangeFilter) Type() ActionType { return ActionChangeFilter }

// Type implements Action
func (UpdateDirectPathToFilter) Type() ActionType { return ActionUpdateDirectPathToFilter }

// Type implements Action
func (UpdateFilterScopes) Type() ActionType { return ActionUpdateFilterScopes }

// Type implements Action
func (UpdateDataMask) Type() ActionType { return ActionUpdateDataMask }

// Type implements Action
func (ClearDataMask) Type() ActionType { return ActionClearDataMask }

// Type implements Action
func (SetActiveTabs) Type() ActionType { return ActionSetActiveTabs }

// Type implements Action
func (SetActiveTab) Type() ActionType { return ActionSetActiveTab }

// Type implements Action
func (SetEditMode) Type() ActionType { return ActionSetEditMode }

// Type implements Action
func (SetFilterConfiguration) Type() ActionType { return ActionSetFilterConfiguration }

// Type implements Action
func (SetChartConfiguration) Type() ActionType { return ActionSetChartConfiguration }

// Type implements Action
func (SetDirectPathToChild) Type() ActionType { return ActionSetDirectPathToChild }

// Type implements Action
func (UpdateTitle) Type() ActionType { return ActionUpdateTitle }

// Type implements Action
func (SetRefreshFrequency) Type() ActionType { return ActionSetRefreshFrequency }

// Type implements Action
func (ToggleExpandSlice) Type() ActionType { return ActionToggleExpandSlice }

// Type implements Action
func (SetCrossFiltersEnabled) Type() ActionType { return ActionSetCrossFiltersEnabled }

// Type implements Action
func (SetUnsavedChanges) Type() ActionType { return ActionSetUnsavedChanges }

// Type implements Action
func (Saved) Type() ActionType { return ActionSaved }

type envelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeAction reads a {"type", "payload"} envelope
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}

	if edit, ok, err := decodeEdit(env); ok || err != nil {
		if err != nil {
			return nil, err
		}

		return EditLayout{Edit: edit}, nil
	}

	var action Action

	switch env.Type {
	case ActionUndo:
		return Undo{}, nil
	case ActionRedo:
		return Redo{}, nil
	case ActionChangeFilter:
		action = &ChangeFilter{}
	case ActionUpdateDirectPathToFilter:
		action = &UpdateDirectPathToFilter{}
	case ActionUpdateFilterScopes:
		action = &UpdateFilterScopes{}
	case ActionUpdateDataMask:
		action = &UpdateDataMask{}
	case ActionClearDataMask:
		action = &ClearDataMask{}
	case ActionSetActiveTabs:
		action = &SetActiveTabs{}
	case ActionSetActiveTab:
		action = &SetActiveTab{}
	case ActionSetEditMode:
		action = &SetEditMode{}
	case ActionSetFilterConfiguration:
		return decodeFilterConfiguration(env.Payload)
	case ActionSetChartConfiguration:
		action = &SetChartConfiguration{}
	case ActionSetDirectPathToChild:
		action = &SetDirectPathToChild{}
	case ActionUpdateTitle:
		action = &UpdateTitle{}
	case ActionSetRefreshFrequency:
		action = &SetRefreshFrequency{}
	case ActionToggleExpandSlice:
		action = &ToggleExpandSlice{}
	case ActionSetCrossFiltersEnabled:
		action = &SetCrossFiltersEnabled{}
	case ActionSetUnsavedChanges:
		action = &SetUnsavedChanges{}
	case ActionSaved:
		action = &Saved{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}

	if err := decodePayload(env, action); err != nil {
		return nil, err
	}

	return deref(action), nil
}

func decodeEdit(env envelope) (layout.Edit, bool, error) {
	var edit layout.Edit

	switch layout.EditKind(env.Type) {
	case layout.EditCreate:
		var e layout.CreateComponent
		if err := decodePayload(env, &e); err != nil {
			return nil, true, err
		}

		edit = e
	case layout.EditDelete:
		var e layout.DeleteComponent
		if err := decodePayload(env, &e); err != nil {
			return nil, true, err
		}

		edit = e
	case layout.EditMove:
		var e layout.MoveComponent
		if err := decodePayload(env, &e); err != nil {
			return nil, true, err
		}

		edit = e
	case layout.EditResize:
		var e layout.ResizeComponent
		if err := decodePayload(env, &e); err != nil {
			return nil, true, err
		}

		edit = e
	case layout.EditUpdateMeta:
		var e layout.UpdateComponentMeta
		if err := decodePayload(env, &e); err != nil {
			return nil, true, err
		}

		edit = e
	case layout.EditCreateTopLevelTabs:
		var e layout.CreateTopLevelTabs
		if err := decodePayload(env, &e); err != nil {
			return nil, true, err
		}

		edit = e
	case layout.EditDeleteTopLevelTabs:
		edit = layout.DeleteTopLevelTabs{}
	default:
		return nil, false, nil
	}

	return edit, true, nil
}

func decodeFilterConfiguration(payload json.RawMessage) (Action, error) {
	var body struct {
		FilterConfig json.RawMessage `json:"filterConfig"`
	}

	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}

	config, err := nativefilters.ParseConfiguration(body.FilterConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}

	return SetFilterConfiguration{Configuration: config}, nil
}

func decodePayload(env envelope, dest any) error {
	if len(env.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Payload, dest); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidAction, env.Type, err)
	}

	return nil
}

// deref turns the decoding pointer back into the value form Reduce matches on
func deref(a Action) Action {
	switch v := a.(type) {
	case *ChangeFilter:
		return *v
	case *UpdateDirectPathToFilter:
		return *v
	case *UpdateFilterScopes:
		return *v
	case *UpdateDataMask:
		return *v
	case *ClearDataMask:
		return *v
	case *SetActiveTabs:
		return *v
	case *SetActiveTab:
		return *v
	case *SetEditMode:
		return *v
	case *SetChartConfiguration:
		return *v
	case *SetDirectPathToChild:
		return *v
	case *UpdateTitle:
		return *v
	case *SetRefreshFrequency:
		return *v
	case *ToggleExpandSlice:
		return *v
	case *SetCrossFiltersEnabled:
		return *v
	case *SetUnsavedChanges:
		return *v
	case *Saved:
		return *v
	default:
		return a
	}
}
