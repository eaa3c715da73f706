package layout

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLayout wraps every invariant violation reported by Validate
	ErrInvalidLayout = errors.New("invalid layout")
	// ErrCycle is returned when a component is reachable from itself
	ErrCycle = errors.New("layout contains a cycle")
)

// UpdateParentsList recomputes the parents path of every component reachable
// from the root. Unreachable components keep their current value.
func UpdateParentsList(l Layout) Layout {
	if !l.Has(RootID) {
		return l
	}

	m := newMutation(l)

	root := m.edit(RootID)
	root.Parents = nil

	for _, child := range root.Children {
		m.setParents(child, []string{RootID})
	}

	return m.layout()
}

// Validate checks the tree invariants: a ROOT exists, every child id
// resolves, each non-root component is reachable exactly once, and its
// parents path equals the path from the root.
func Validate(l Layout) error {
	root := l.node(RootID)
	if root == nil {
		return fmt.Errorf("%w: %w", ErrInvalidLayout, ErrMissingRoot)
	}

	var errs []error

	if root.Type != TypeRoot {
		errs = append(errs, fmt.Errorf("%s has type %s", RootID, root.Type))
	}

	seen := make(map[string]bool, l.Len())

	var walk func(id string, path []string)
	walk = func(id string, path []string) {
		n := l.node(id)

		if seen[id] {
			errs = append(errs, fmt.Errorf("%w: %s reached twice", ErrCycle, id))
			return
		}

		seen[id] = true

		if id != RootID && !equalPath(n.Parents, path) {
			errs = append(errs, fmt.Errorf("%s parents %v, expected %v", id, n.Parents, path))
		}

		next := append(append([]string(nil), path...), id)

		for _, child := range n.Children {
			c := l.node(child)
			if c == nil {
				errs = append(errs, fmt.Errorf("%s references missing child %s", id, child))
				continue
			}

			if !n.Type.Valid() || !c.Type.Valid() {
				errs = append(errs, fmt.Errorf("%s has unknown type", child))
				continue
			}

			if n.Type != TypeRoot || c.Type != TypeReportViewerHeader {
				if !IsValidChild(n.Type, c.Type) {
					errs = append(errs, fmt.Errorf("%s (%s) cannot contain %s (%s)", id, n.Type, child, c.Type))
				}
			}

			walk(child, next)
		}
	}

	walk(RootID, nil)

	for _, id := range l.IDs() {
		if seen[id] {
			continue
		}

		if l.typeOf(id) == TypeReportViewerHeader {
			continue
		}

		errs = append(errs, fmt.Errorf("%s is not reachable from %s", id, RootID))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidLayout, errors.Join(errs...))
}

func equalPath(a, b []string) bool {
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
