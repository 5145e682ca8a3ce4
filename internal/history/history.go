package history

import (
	"errors"
	"fmt"
)

// ErrInvalidCursor is returned by Restore when the index does not address a
// revision.
var ErrInvalidCursor = errors.New("history cursor out of range")

// ReleaseFunc is called for every revision permanently dropped from the
// timeline.
type ReleaseFunc func(Revision)

// History is a linear timeline of revisions with a cursor. Pushing after an
// undo discards the redo branch. The zero value is an empty history. It is
// not safe for concurrent use.
type History struct {
	revisions []Revision
	// visible counts the revisions up to and including the cursor.
	visible   int
	nextSeq   int64
	onRelease ReleaseFunc
}

// New creates an empty history.
func New() *History {
	return &History{}
}

// OnRelease installs the observer notified when revisions are discarded.
func (h *History) OnRelease(fn ReleaseFunc) {
	h.onRelease = fn
}

// Reset drops every revision.
func (h *History) Reset() {
	dropped := h.revisions
	h.revisions = nil
	h.visible = 0
	h.release(dropped)
}

// Push truncates everything after the cursor, appends rev, and moves the
// cursor to it.
func (h *History) Push(rev Revision) {
	dropped := append([]Revision(nil), h.revisions[h.visible:]...)
	h.revisions = append(h.revisions[:h.visible], rev)
	h.visible = len(h.revisions)
	if rev.Seq >= h.nextSeq {
		h.nextSeq = rev.Seq + 1
	}
	h.release(dropped)
}

// NextSeq returns the creation-order number for the next revision.
func (h *History) NextSeq() int64 {
	return h.nextSeq
}

// Undo moves the cursor back one step. It reports whether it moved.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.visible--
	return true
}

// Redo moves the cursor forward one step. It reports whether it moved.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.visible++
	return true
}

func (h *History) CanUndo() bool { return h.visible > 1 }

func (h *History) CanRedo() bool { return h.visible < len(h.revisions) }

// Current returns the revision under the cursor.
func (h *History) Current() (Revision, bool) {
	if h.visible == 0 {
		return Revision{}, false
	}
	return h.revisions[h.visible-1], true
}

// Previous returns the revision just before the cursor.
func (h *History) Previous() (Revision, bool) {
	if h.visible < 2 {
		return Revision{}, false
	}
	return h.revisions[h.visible-2], true
}

// Revisions returns a copy of the full timeline, including redo entries.
func (h *History) Revisions() []Revision {
	return append([]Revision(nil), h.revisions...)
}

// Visible returns the revisions up to and including the cursor.
func (h *History) Visible() []Revision {
	return append([]Revision(nil), h.revisions[:h.visible]...)
}

// Index returns the cursor position, or -1 when the history is empty.
func (h *History) Index() int { return h.visible - 1 }

func (h *History) Len() int { return len(h.revisions) }

// Restore replaces the timeline with persisted state. Revisions currently
// held are released.
func (h *History) Restore(revs []Revision, index int) error {
	if len(revs) == 0 && index != -1 || len(revs) > 0 && (index < 0 || index >= len(revs)) {
		return fmt.Errorf("%w: index %d with %d revisions", ErrInvalidCursor, index, len(revs))
	}
	dropped := h.revisions
	h.revisions = append([]Revision(nil), revs...)
	h.visible = index + 1
	h.nextSeq = 0
	for _, r := range revs {
		if r.Seq >= h.nextSeq {
			h.nextSeq = r.Seq + 1
		}
	}
	h.release(dropped)
	return nil
}

func (h *History) release(revs []Revision) {
	if h.onRelease == nil {
		return
	}
	for _, r := range revs {
		h.onRelease(r)
	}
}
