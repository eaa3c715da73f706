package layout

// HistoryLimit is the number of undo steps kept
const HistoryLimit = 50

// History is an immutable undo/redo stack of layout snapshots
type History struct {
	past     []Layout
	present  Layout
	future   []Layout
	exceeded bool
}

// NewHistory starts a history at l with nothing to undo
func NewHistory(l Layout) History {
	return History{present: l}
}

// Present returns the current snapshot
func (h History) Present() Layout {
	return h.present
}

// CanUndo reports whether Undo would change the present snapshot
func (h History) CanUndo() bool {
	return len(h.past) > 0
}

// CanRedo reports whether Redo would change the present snapshot
func (h History) CanRedo() bool {
	return len(h.future) > 0
}

// Exceeded reports whether older steps were dropped to honor HistoryLimit
func (h History) Exceeded() bool {
	return h.exceeded
}

// Push records l as the new present and clears the redo stack
func (h History) Push(l Layout) History {
	past := make([]Layout, 0, len(h.past)+1)
	past = append(past, h.past...)
	past = append(past, h.present)

	exceeded := h.exceeded
	if len(past) > HistoryLimit {
		past = past[len(past)-HistoryLimit:]
		exceeded = true
	}

	return History{
		past:     past,
		present:  l,
		exceeded: exceeded,
	}
}

// Replace swaps the present snapshot without recording an undo step
func (h History) Replace(l Layout) History {
	h.present = l

	return h
}

// Undo steps back one snapshot
func (h History) Undo() History {
	if len(h.past) == 0 {
		return h
	}

	last := len(h.past) - 1

	future := make([]Layout, 0, len(h.future)+1)
	future = append(future, h.future...)
	future = append(future, h.present)

	return History{
		past:     append([]Layout(nil), h.past[:last]...),
		present:  h.past[last],
		future:   future,
		exceeded: h.exceeded,
	}
}

// Redo re-applies the most recently undone snapshot
func (h History) Redo() History {
	if len(h.future) == 0 {
		return h
	}

	last := len(h.future) - 1

	past := make([]Layout, 0, len(h.past)+1)
	past = append(past, h.past...)
	past = append(past, h.present)

	return History{
		past:     past,
		present:  h.future[last],
		future:   append([]Layout(nil), h.future[:last]...),
		exceeded: h.exceeded,
	}
}
