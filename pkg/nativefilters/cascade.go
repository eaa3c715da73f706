package nativefilters

import (
	"fmt"
	"sort"

	"github.com/heimdalr/dag"
)

// Cascade is the parent to child graph of cascading native filters
type Cascade struct {
	dag *dag.DAG
}

// NewCascade builds the cascade graph of a configuration. It fails when a
// filter cascades from an unknown filter or the parents form a cycle.
func NewCascade(c Configuration) (*Cascade, error) {
	d := dag.NewDAG()

	filters := c.Filters()

	for _, f := range filters {
		if err := d.AddVertexByID(f.ID, f.ID); err != nil {
			return nil, fmt.Errorf("failed to add filter %s: %w", f.ID, err)
		}
	}

	for _, f := range filters {
		for _, parentID := range f.CascadeParentIDs {
			if _, err := d.GetVertex(parentID); err != nil {
				return nil, fmt.Errorf("%w: %s cascades from %s", ErrUnknownCascadeParent, f.ID, parentID)
			}

			// AddEdge rejects edges that would close a cycle
			if err := d.AddEdge(parentID, f.ID); err != nil {
				return nil, fmt.Errorf("%w: %s to %s: %w", ErrCascadeCycle, parentID, f.ID, err)
			}
		}
	}

	return &Cascade{dag: d}, nil
}

// Parents returns the direct cascade parents of a filter, sorted
func (c *Cascade) Parents(id string) []string {
	parents, err := c.dag.GetParents(id)
	if err != nil {
		return []string{}
	}

	return sortedIDs(parents)
}

// Dependents returns every filter cascading, directly or not, from id
func (c *Cascade) Dependents(id string) []string {
	descendants, err := c.dag.GetDescendants(id)
	if err != nil {
		return []string{}
	}

	return sortedIDs(descendants)
}

// Roots returns the filters that cascade from nothing, sorted
func (c *Cascade) Roots() []string {
	return sortedIDs(c.dag.GetRoots())
}

func sortedIDs(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}

	sort.Strings(out)

	return out
}
