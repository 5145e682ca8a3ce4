package chat

import (
	"errors"
	"testing"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

func pushN(h *history.History, n int) {
	for i := 0; i < n; i++ {
		h.Push(history.Revision{ID: string(rune('A' + i)), Seq: int64(i)})
	}
}

func TestSelect_PreviousOnSingleEntryReturnsCurrent(t *testing.T) {
	h := history.New()
	pushN(h, 3)
	s := NewContextSelector()
	s.Choose(ContextPrevious)

	h.Reset()
	pushN(h, 1)

	got, err := s.Select(ContextPrevious, h)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got.ID != "A" {
		t.Errorf("Select() = %q, want A", got.ID)
	}
	if s.Effective() != ContextCurrent {
		t.Errorf("Effective() = %q, want current", s.Effective())
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name   string
		pushes int
		undos  int
		ctx    Context
		want   string
		eff    Context
	}{
		{"current of three", 3, 0, ContextCurrent, "C", ContextCurrent},
		{"previous of three", 3, 0, ContextPrevious, "B", ContextPrevious},
		{"previous after undo", 3, 1, ContextPrevious, "A", ContextPrevious},
		{"previous at first entry", 3, 2, ContextPrevious, "A", ContextCurrent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := history.New()
			pushN(h, tt.pushes)
			for i := 0; i < tt.undos; i++ {
				h.Undo()
			}
			s := NewContextSelector()
			got, err := s.Select(tt.ctx, h)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("Select() = %q, want %q", got.ID, tt.want)
			}
			if s.Effective() != tt.eff {
				t.Errorf("Effective() = %q, want %q", s.Effective(), tt.eff)
			}
		})
	}
}

func TestSelect_EmptyHistory(t *testing.T) {
	s := NewContextSelector()
	_, err := s.Select(ContextCurrent, history.New())

	var nte *NothingToEditError
	if !errors.As(err, &nte) {
		t.Fatalf("Select() error = %v, want *NothingToEditError", err)
	}
	if want := "There is no image to edit in the current context."; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestReconcile_KeepsPreviousWhenAvailable(t *testing.T) {
	h := history.New()
	pushN(h, 2)
	s := NewContextSelector()
	s.Choose(ContextPrevious)

	s.Reconcile(h)
	if s.Effective() != ContextPrevious {
		t.Errorf("Effective() = %q, want previous", s.Effective())
	}

	h.Undo()
	s.Reconcile(h)
	if s.Effective() != ContextCurrent {
		t.Errorf("Effective() after undo to first = %q, want current", s.Effective())
	}
}

func TestParseContext(t *testing.T) {
	tests := []struct {
		in      string
		want    Context
		wantErr bool
	}{
		{"", ContextCurrent, false},
		{"current", ContextCurrent, false},
		{"previous", ContextPrevious, false},
		{"older", "", true},
	}
	for _, tt := range tests {
		got, err := ParseContext(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseContext(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseContext(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConversation(t *testing.T) {
	c := NewConversation()
	c.Append(RoleUser, "make it blue", "")
	m := c.Append(RoleModel, "done", "rev_x")

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if m.RevisionID != "rev_x" || m.ID == "" {
		t.Errorf("Append() = %+v", m)
	}

	msgs := c.Messages()
	msgs[0].Text = "mutated"
	if c.Messages()[0].Text != "make it blue" {
		t.Error("Messages() did not return a copy")
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", c.Len())
	}
}
