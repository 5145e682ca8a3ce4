package studio

import (
	"github.com/Nikhil-Joson/HomeCanvas/internal/chat"
	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

// RevisionView is a revision as shown to clients.
type RevisionView struct {
	ID     string         `json:"id"`
	Seq    int64          `json:"seq"`
	Source history.Source `json:"source"`
	URL    string         `json:"url,omitempty"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
}

// State is a point-in-time snapshot of a studio for rendering.
type State struct {
	SessionID    string           `json:"sessionId"`
	HasProduct   bool             `json:"hasProduct"`
	ProductLabel string           `json:"productLabel,omitempty"`
	ProductURL   string           `json:"productUrl,omitempty"`
	HasScene     bool             `json:"hasScene"`
	SceneLabel   string           `json:"sceneLabel,omitempty"`
	Current      *RevisionView    `json:"current,omitempty"`
	Previous     *RevisionView    `json:"previous,omitempty"`
	CanUndo      bool             `json:"canUndo"`
	CanRedo      bool             `json:"canRedo"`
	Index        int              `json:"index"`
	Length       int              `json:"length"`
	Busy         bool             `json:"busy"`
	ChatContext  chat.Context     `json:"chatContext"`
	Messages     []chat.Message   `json:"messages"`
	Layout       geometry.Rect    `json:"layout"`
	Staged       *gizmo.Transform `json:"staged,omitempty"`
	GizmoState   string           `json:"gizmoState"`
	DebugURL     string           `json:"debugUrl,omitempty"`
	LastPrompt   string           `json:"lastPrompt,omitempty"`
	LastError    string           `json:"lastError,omitempty"`
}

// State returns the current snapshot.
func (s *Studio) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Studio) stateLocked() State {
	st := State{
		SessionID:    s.id,
		HasProduct:   s.product != nil,
		ProductLabel: s.productLabel,
		ProductURL:   s.productHandle.URL,
		SceneLabel:   s.sceneLabel,
		CanUndo:      s.history.CanUndo(),
		CanRedo:      s.history.CanRedo(),
		Index:        s.history.Index(),
		Length:       s.history.Len(),
		Busy:         s.busy,
		ChatContext:  s.selector.Effective(),
		Messages:     s.convo.Messages(),
		Layout:       s.scene.Bounds(),
		GizmoState:   s.gizmo.State().String(),
		DebugURL:     s.debugHandle.URL,
		LastPrompt:   s.lastPrompt,
		LastError:    s.lastErr,
	}
	if st.Messages == nil {
		st.Messages = []chat.Message{}
	}
	if rev, ok := s.history.Current(); ok {
		st.HasScene = true
		st.Current = s.view(rev)
	}
	if rev, ok := s.history.Previous(); ok {
		st.Previous = s.view(rev)
	}
	if t, ok := s.gizmo.Transform(); ok {
		st.Staged = &t
	}
	return st
}

func (s *Studio) view(rev history.Revision) *RevisionView {
	return &RevisionView{
		ID:     rev.ID,
		Seq:    rev.Seq,
		Source: rev.Source,
		URL:    s.handles[rev.ID].URL,
		Width:  rev.Image.Width,
		Height: rev.Image.Height,
	}
}
