package layout

// mutation is a copy-on-write view over a snapshot. Nodes of the base
// snapshot are shared until edit clones them.
type mutation struct {
	nodes   map[string]*Node
	owned   map[string]bool
	version string
}

func newMutation(l Layout) *mutation {
	nodes := make(map[string]*Node, len(l.nodes)+2)
	for id, n := range l.nodes {
		nodes[id] = n
	}

	return &mutation{
		nodes:   nodes,
		owned:   make(map[string]bool),
		version: l.version,
	}
}

func (m *mutation) get(id string) *Node {
	if id == "" {
		return nil
	}

	return m.nodes[id]
}

// edit returns a writable copy of the node
func (m *mutation) edit(id string) *Node {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}

	if !m.owned[id] {
		n = n.clone()
		m.nodes[id] = n
		m.owned[id] = true
	}

	return n
}

func (m *mutation) put(n *Node) {
	m.nodes[n.ID] = n
	m.owned[n.ID] = true
}

func (m *mutation) remove(id string) {
	delete(m.nodes, id)
	delete(m.owned, id)
}

func (m *mutation) layout() Layout {
	return Layout{nodes: m.nodes, version: m.version}
}

// path returns the ancestor chain of id followed by id itself
func (m *mutation) path(id string) []string {
	n := m.get(id)
	if n == nil {
		return []string{id}
	}

	out := make([]string, 0, len(n.Parents)+1)
	out = append(out, n.Parents...)

	return append(out, id)
}

// parentOf finds the direct parent of id, trusting the parents path when it
// agrees with the parent's children list.
func (m *mutation) parentOf(id string) string {
	n := m.get(id)
	if n == nil {
		return ""
	}

	if p := m.get(n.Parent()); p != nil && contains(p.Children, id) {
		return p.ID
	}

	for pid, p := range m.nodes {
		if contains(p.Children, id) {
			return pid
		}
	}

	return ""
}

// subtree returns id and every id reachable below it
func (m *mutation) subtree(id string) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)

	var walk func(string)
	walk = func(current string) {
		if seen[current] {
			return
		}

		seen[current] = true

		n := m.get(current)
		if n == nil {
			return
		}

		out = append(out, current)

		for _, child := range n.Children {
			walk(child)
		}
	}

	walk(id)

	return out
}

// setParents rewrites the parents path of id and of its whole subtree
func (m *mutation) setParents(id string, parents []string) {
	seen := make(map[string]bool)

	var walk func(string, []string)
	walk = func(current string, path []string) {
		if seen[current] || m.get(current) == nil {
			return
		}

		seen[current] = true

		n := m.edit(current)
		n.Parents = append([]string(nil), path...)

		next := append(append([]string(nil), path...), current)
		for _, child := range n.Children {
			walk(child, next)
		}
	}

	walk(id, parents)
}

func (m *mutation) insertChild(parentID, childID string, index int) {
	p := m.edit(parentID)
	if p == nil {
		return
	}

	p.Children = insertAt(p.Children, index, childID)
}

func insertAt(list []string, index int, id string) []string {
	if index < 0 || index > len(list) {
		index = len(list)
	}

	out := make([]string, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, id)

	return append(out, list[index:]...)
}

func without(list []string, id string) []string {
	out := make([]string, 0, len(list))

	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}

	return out
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}

	return false
}
