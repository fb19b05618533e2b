package editor

import "github.com/elloloop/paperlike/pkg/paperdoc"

const defaultMaxHistory = 200

type snapshot struct {
	doc     paperdoc.Document
	focused string
	caret   int
}

// History keeps whole-document snapshots. Documents are never written
// through, so a snapshot is just the value.
type History struct {
	max  int
	undo []snapshot
	redo []snapshot
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultMaxHistory
	}
	return &History{max: max, undo: make([]snapshot, 0, 64), redo: make([]snapshot, 0, 64)}
}

func (h *History) push(s snapshot) {
	h.undo = append(h.undo, s)
	if len(h.undo) > h.max {
		h.undo = h.undo[1:]
	}
	h.redo = h.redo[:0]
}

func (h *History) Undo(cur snapshot) (snapshot, bool) {
	if len(h.undo) == 0 {
		return snapshot{}, false
	}
	last := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cur)
	return last, true
}

func (h *History) Redo(cur snapshot) (snapshot, bool) {
	if len(h.redo) == 0 {
		return snapshot{}, false
	}
	last := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cur)
	return last, true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func (h *History) Clear() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}
