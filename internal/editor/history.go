package editor

// maxHistory bounds the undo stack
const maxHistory = 500

type snapshot struct {
	text   string
	offset int
}

type history struct {
	undo []snapshot
	redo []snapshot
}

// record saves the state before an edit. A new edit discards the redo stack.
func (h *history) record(s snapshot) {
	if n := len(h.undo); n > 0 && h.undo[n-1].text == s.text {
		return
	}
	h.undo = append(h.undo, s)
	if len(h.undo) > maxHistory {
		h.undo = h.undo[len(h.undo)-maxHistory:]
	}
	h.redo = nil
}

func (h *history) undoTo(current snapshot) (snapshot, bool) {
	if len(h.undo) == 0 {
		return snapshot{}, false
	}
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, current)
	return prev, true
}

func (h *history) redoTo(current snapshot) (snapshot, bool) {
	if len(h.redo) == 0 {
		return snapshot{}, false
	}
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, current)
	return next, true
}
