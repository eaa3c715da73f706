package nativefilters

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/scope"
)

// GlobalScopePointer is the persisted marker of a chart using the global
// cross filter scope.
const GlobalScopePointer = "global"

// CrossFilterScope is either the global pointer or an explicit scope
type CrossFilterScope struct {
	Global bool
	Scope  scope.Scope
}

// MarshalJSON implements json.Marshaler
func (s CrossFilterScope) MarshalJSON() ([]byte, error) {
	if s.Global {
		return json.Marshal(GlobalScopePointer)
	}

	return json.Marshal(s.Scope)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *CrossFilterScope) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var pointer string
		if err := json.Unmarshal(trimmed, &pointer); err != nil {
			return err
		}

		if pointer != GlobalScopePointer {
			return fmt.Errorf("unknown cross filter scope %q", pointer)
		}

		*s = CrossFilterScope{Global: true}

		return nil
	}

	var sc scope.Scope
	if err := json.Unmarshal(trimmed, &sc); err != nil {
		return err
	}

	*s = CrossFilterScope{Scope: sc}

	return nil
}

// CrossFilterSettings is the cross filter part of a chart configuration
type CrossFilterSettings struct {
	Scope         CrossFilterScope `json:"scope"`
	ChartsInScope []int            `json:"chartsInScope"`
}

// ChartConfig is the per chart entry of chart_configuration
type ChartConfig struct {
	ID           int                 `json:"id"`
	CrossFilters CrossFilterSettings `json:"crossFilters"`
}

// ChartConfiguration maps a cross filtering chart to its configuration
type ChartConfiguration map[int]ChartConfig

// GlobalChartConfiguration is the scope shared by charts using the global
// pointer.
type GlobalChartConfiguration struct {
	Scope         scope.Scope `json:"scope"`
	ChartsInScope []int       `json:"chartsInScope"`
}

// CrossFilterConfiguration recomputes the charts every cross filtering chart
// affects. Charts without an entry in initial get the global pointer. A
// chart never cross filters itself.
func CrossFilterConfiguration(
	l layout.Layout,
	initial ChartConfiguration,
	global *GlobalChartConfiguration,
	chartIDs []int,
) (ChartConfiguration, GlobalChartConfiguration) {
	g := GlobalChartConfiguration{Scope: scope.Global()}
	if global != nil && len(global.Scope.RootPath) > 0 {
		g.Scope = global.Scope
	}

	g.ChartsInScope = scope.Intersect(scope.Resolve(g.Scope, l), chartIDs)

	out := make(ChartConfiguration, len(chartIDs))

	for _, chartID := range chartIDs {
		cfg := ChartConfig{
			ID: chartID,
			CrossFilters: CrossFilterSettings{
				Scope: CrossFilterScope{Global: true},
			},
		}

		if existing, ok := initial[chartID]; ok && !existing.CrossFilters.Scope.Global &&
			len(existing.CrossFilters.Scope.Scope.RootPath) > 0 {
			cfg.CrossFilters.Scope = existing.CrossFilters.Scope
		}

		var inScope []int
		if cfg.CrossFilters.Scope.Global {
			inScope = g.ChartsInScope
		} else {
			inScope = scope.Intersect(scope.Resolve(cfg.CrossFilters.Scope.Scope, l), chartIDs)
		}

		cfg.CrossFilters.ChartsInScope = withoutInt(inScope, chartID)
		out[chartID] = cfg
	}

	return out, g
}

func withoutInt(list []int, v int) []int {
	out := make([]int, 0, len(list))

	for _, id := range list {
		if id != v {
			out = append(out, id)
		}
	}

	return out
}
