package filters

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ParseDefaultFilters decodes the default_filters blob: column values keyed
// by chart id. Scalar values are wrapped into single element lists and
// entries with non numeric chart ids are skipped.
func ParseDefaultFilters(data []byte) (map[int]map[string][]any, error) {
	out := make(map[int]map[string][]any)
	if len(data) == 0 {
		return out, nil
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode default filters: %w", err)
	}

	for key, columns := range raw {
		chartID, err := strconv.Atoi(key)
		if err != nil {
			continue
		}

		decoded := make(map[string][]any, len(columns))

		for column, value := range columns {
			switch v := value.(type) {
			case nil:
				decoded[column] = []any{}
			case []any:
				decoded[column] = v
			default:
				decoded[column] = []any{v}
			}
		}

		out[chartID] = decoded
	}

	return out, nil
}

// ParseFilterScopes decodes the filter_scopes blob keyed by chart id
func ParseFilterScopes(data []byte) (map[int]map[string]ColumnScope, error) {
	out := make(map[int]map[string]ColumnScope)
	if len(data) == 0 {
		return out, nil
	}

	var raw map[string]map[string]ColumnScope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode filter scopes: %w", err)
	}

	for key, scopes := range raw {
		chartID, err := strconv.Atoi(key)
		if err != nil {
			continue
		}

		out[chartID] = scopes
	}

	return out, nil
}
