package nativefilters

import (
	"encoding/json"
	"fmt"

	"github.com/ethpandaops/reportviewer/pkg/layout"
	"github.com/ethpandaops/reportviewer/pkg/scope"
)

// Item is a filter bar entry: a Filter or a Divider
type Item interface {
	scope.Target
	ItemID() string
}

// ItemID implements Item
func (f Filter) ItemID() string { return f.ID }

// ItemID implements Item
func (d Divider) ItemID() string { return d.ID }

// Configuration is the ordered native filter configuration of a report
// viewer. Values are immutable; methods return new configurations.
type Configuration struct {
	order    []string
	filters  map[string]Filter
	dividers map[string]Divider
}

// NewConfiguration builds a configuration from items in display order
func NewConfiguration(items ...Item) (Configuration, error) {
	c := Configuration{
		order:    make([]string, 0, len(items)),
		filters:  make(map[string]Filter),
		dividers: make(map[string]Divider),
	}

	for _, item := range items {
		id := item.ItemID()
		if id == "" {
			return Configuration{}, ErrMissingFilterID
		}

		if c.has(id) {
			return Configuration{}, fmt.Errorf("%w: %s", ErrDuplicateFilter, id)
		}

		switch v := item.(type) {
		case Filter:
			if v.Type == "" {
				v.Type = ItemTypeFilter
			}

			if len(v.Scope.RootPath) == 0 {
				v.Scope = scope.Global()
			}

			c.filters[id] = v
		case Divider:
			v.Type = ItemTypeDivider
			c.dividers[id] = v
		default:
			continue
		}

		c.order = append(c.order, id)
	}

	return c, nil
}

// ParseConfiguration decodes the native_filter_configuration array
func ParseConfiguration(data []byte) (Configuration, error) {
	if len(data) == 0 {
		return NewConfiguration()
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Configuration{}, fmt.Errorf("failed to decode native filter configuration: %w", err)
	}

	items := make([]Item, 0, len(raw))

	for _, entry := range raw {
		var head struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		}

		if err := json.Unmarshal(entry, &head); err != nil {
			return Configuration{}, fmt.Errorf("failed to decode native filter entry: %w", err)
		}

		if head.Type == ItemTypeDivider || IsDividerID(head.ID) {
			var d Divider
			if err := json.Unmarshal(entry, &d); err != nil {
				return Configuration{}, fmt.Errorf("failed to decode divider %s: %w", head.ID, err)
			}

			items = append(items, d)

			continue
		}

		var f Filter
		if err := json.Unmarshal(entry, &f); err != nil {
			return Configuration{}, fmt.Errorf("failed to decode filter %s: %w", head.ID, err)
		}

		items = append(items, f)
	}

	return NewConfiguration(items...)
}

// MarshalJSON encodes the configuration as an array in display order
func (c Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Items())
}

// Len returns the number of filters and dividers
func (c Configuration) Len() int {
	return len(c.order)
}

// Items returns filters and dividers in display order
func (c Configuration) Items() []Item {
	out := make([]Item, 0, len(c.order))

	for _, id := range c.order {
		if f, ok := c.filters[id]; ok {
			out = append(out, f)
			continue
		}

		if d, ok := c.dividers[id]; ok {
			out = append(out, d)
		}
	}

	return out
}

// Filters returns the filters in display order, dividers skipped
func (c Configuration) Filters() []Filter {
	out := make([]Filter, 0, len(c.filters))

	for _, id := range c.order {
		if f, ok := c.filters[id]; ok {
			out = append(out, f)
		}
	}

	return out
}

// Filter returns a filter by id
func (c Configuration) Filter(id string) (Filter, bool) {
	f, ok := c.filters[id]
	return f, ok
}

// AffectedCharts returns the charts a filter value change re-queries
func (c Configuration) AffectedCharts(id string) []int {
	f, ok := c.filters[id]
	if !ok {
		return []int{}
	}

	return append([]int{}, f.ChartsInScope...)
}

// WithScopes resolves every filter scope against l, limited to the given
// chart ids, and records the tabs holding those charts.
func (c Configuration) WithScopes(l layout.Layout, chartIDs []int) Configuration {
	out := c.copy()

	for id, f := range out.filters {
		f.ChartsInScope = scope.Intersect(scope.Resolve(f.Scope, l), chartIDs)
		f.TabsInScope = scope.TabsWithChartsInScope(l, f.ChartsInScope)
		out.filters[id] = f
	}

	return out
}

// DefaultDataMask returns the default masks of every filter that declares
// a default value.
func (c Configuration) DefaultDataMask() DataMaskState {
	out := make(DataMaskState)

	for id, f := range c.filters {
		m := cloneMask(f.DefaultDataMask)
		m.ID = id
		out[id] = m
	}

	return out
}

func (c Configuration) has(id string) bool {
	_, isFilter := c.filters[id]
	_, isDivider := c.dividers[id]

	return isFilter || isDivider
}

func (c Configuration) copy() Configuration {
	out := Configuration{
		order:    append([]string{}, c.order...),
		filters:  make(map[string]Filter, len(c.filters)),
		dividers: make(map[string]Divider, len(c.dividers)),
	}

	for id, f := range c.filters {
		out.filters[id] = f
	}

	for id, d := range c.dividers {
		out.dividers[id] = d
	}

	return out
}
