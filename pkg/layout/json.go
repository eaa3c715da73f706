package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingRoot is returned when a persisted layout has no root component
	ErrMissingRoot = errors.New("layout has no root component")
	// ErrEmptyLayout is returned when a persisted layout holds no components
	ErrEmptyLayout = errors.New("layout is empty")
)

// MarshalJSON encodes the layout as an object keyed by component id plus the
// version marker.
func (l Layout) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(l.nodes)+1)
	for id, n := range l.nodes {
		out[id] = n
	}

	out[VersionKey] = l.Version()

	return json.Marshal(out)
}

// UnmarshalJSON decodes a persisted layout. It does not validate the tree.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	nodes := make(map[string]*Node, len(raw))
	version := ""

	for key, value := range raw {
		if key == VersionKey {
			if err := json.Unmarshal(value, &version); err != nil {
				return fmt.Errorf("invalid version marker: %w", err)
			}

			continue
		}

		var n Node
		if err := json.Unmarshal(value, &n); err != nil {
			return fmt.Errorf("invalid component %s: %w", key, err)
		}

		if n.ID == "" {
			n.ID = key
		}

		if n.Children == nil {
			n.Children = []string{}
		}

		nodes[key] = &n
	}

	l.nodes = nodes
	l.version = version

	return nil
}

// Parse decodes a persisted layout blob
func Parse(data []byte) (Layout, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Layout{}, ErrEmptyLayout
	}

	var l Layout
	if err := json.Unmarshal(trimmed, &l); err != nil {
		return Layout{}, err
	}

	if l.IsZero() {
		return Layout{}, ErrEmptyLayout
	}

	if !l.Has(RootID) {
		return Layout{}, ErrMissingRoot
	}

	return l, nil
}

// ParseOrEmpty decodes a persisted layout and falls back to EmptyLayout when
// the blob is missing, empty or malformed. The boolean reports whether the
// fallback was used.
func ParseOrEmpty(data []byte) (Layout, bool) {
	l, err := Parse(data)
	if err != nil {
		return EmptyLayout(), true
	}

	return l, false
}
