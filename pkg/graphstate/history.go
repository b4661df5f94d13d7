package graphstate

import "errors"

// ErrAtFloor is returned by History.GoBack when there is no earlier state.
var ErrAtFloor = errors.New("history: already at the initial state")

// History is the linear undo stack of rendered graph states. The top entry
// is always the state currently on screen.
type History struct {
	stack []Snapshot
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// PushCurrent records the store's present state. Call it right before a
// render so the rendered state becomes the top of the stack.
func (h *History) PushCurrent(s *Store) {
	h.stack = append(h.stack, s.Snapshot())
}

// GoBack drops the current state and returns the one before it, which stays
// on the stack as the new current state. With one entry or fewer it returns
// ErrAtFloor and leaves the stack untouched.
func (h *History) GoBack() (Snapshot, error) {
	if len(h.stack) <= 1 {
		return Snapshot{}, ErrAtFloor
	}
	h.stack[len(h.stack)-1] = Snapshot{}
	h.stack = h.stack[:len(h.stack)-1]
	return h.stack[len(h.stack)-1], nil
}

// Reset empties the stack.
func (h *History) Reset() {
	h.stack = nil
}

// Len returns the number of recorded states.
func (h *History) Len() int { return len(h.stack) }
