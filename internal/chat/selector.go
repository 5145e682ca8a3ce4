package chat

import (
	"fmt"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

// Context names which revision an edit applies to.
type Context string

const (
	ContextCurrent  Context = "current"
	ContextPrevious Context = "previous"
)

// ParseContext accepts "current", "previous" or "" (current).
func ParseContext(s string) (Context, error) {
	switch Context(s) {
	case "", ContextCurrent:
		return ContextCurrent, nil
	case ContextPrevious:
		return ContextPrevious, nil
	default:
		return "", fmt.Errorf("unknown chat context %q", s)
	}
}

// NothingToEditError is returned when the chosen context has no revision.
// Its message is shown to the user as-is.
type NothingToEditError struct {
	Context Context
}

func (e *NothingToEditError) Error() string {
	return fmt.Sprintf("There is no image to edit in the %s context.", e.Context)
}

// Timeline is the read side of a scene history.
type Timeline interface {
	Current() (history.Revision, bool)
	Previous() (history.Revision, bool)
	Len() int
	Index() int
}

// ContextSelector remembers the user's context choice and falls back to
// current whenever previous does not exist.
type ContextSelector struct {
	chosen Context
}

func NewContextSelector() *ContextSelector {
	return &ContextSelector{chosen: ContextCurrent}
}

// Choose records the user's choice. Unknown values select current.
func (s *ContextSelector) Choose(ctx Context) {
	if ctx != ContextPrevious {
		ctx = ContextCurrent
	}
	s.chosen = ctx
}

// Reconcile forces the choice back to current when the timeline has no
// previous revision. Call it after every history change.
func (s *ContextSelector) Reconcile(t Timeline) {
	if s.chosen == ContextPrevious && (t.Len() <= 1 || t.Index() <= 0) {
		s.chosen = ContextCurrent
	}
}

// Effective returns the context that the next Select will use.
func (s *ContextSelector) Effective() Context {
	return s.chosen
}

// Select records ctx, reconciles it against t and returns the base revision.
func (s *ContextSelector) Select(ctx Context, t Timeline) (history.Revision, error) {
	s.Choose(ctx)
	s.Reconcile(t)

	var (
		rev history.Revision
		ok  bool
	)
	switch s.chosen {
	case ContextPrevious:
		rev, ok = t.Previous()
	default:
		rev, ok = t.Current()
	}
	if !ok {
		return history.Revision{}, &NothingToEditError{Context: s.chosen}
	}
	return rev, nil
}
