package live

import (
	"encoding/json"

	"github.com/Nikhil-Joson/HomeCanvas/internal/chat"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gesture"
	"github.com/Nikhil-Joson/HomeCanvas/internal/studio"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type GesturePayload struct {
	Modality gesture.Modality `json:"modality"`
	X        float64          `json:"x"`
	Y        float64          `json:"y"`
}

type GizmoBeginPayload struct {
	Mode string  `json:"mode"` // "move" or "scale"
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type PointPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ChatSubmitPayload struct {
	Prompt  string       `json:"prompt"`
	Context chat.Context `json:"context"`
}

type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	// Client to server
	TypeGestureStart  = "gesture.start"
	TypeGestureMove   = "gesture.move"
	TypeGestureEnd    = "gesture.end"
	TypeGestureCancel = "gesture.cancel"
	TypeLayoutUpdate  = "layout.update"
	TypeGizmoStage    = "gizmo.stage"
	TypeGizmoBegin    = "gizmo.begin"
	TypeGizmoDrag     = "gizmo.drag"
	TypeGizmoEnd      = "gizmo.end"
	TypeGizmoPatch    = "gizmo.patch"
	TypeGizmoConfirm  = "gizmo.confirm"
	TypeGizmoCancel   = "gizmo.cancel"
	TypeHistoryUndo   = "history.undo"
	TypeHistoryRedo   = "history.redo"
	TypeHistoryReset  = "history.reset"
	TypeChatSubmit    = "chat.submit"

	// Server to client
	TypeWelcome     = "welcome"
	TypePresence    = "presence"
	TypeState       = string(studio.NoticeState)
	TypeHover       = string(studio.NoticeHover)
	TypePreview     = string(studio.NoticePreview)
	TypePlacement   = string(studio.NoticePlacement)
	TypeChatMessage = string(studio.NoticeMessage)
	TypeError       = string(studio.NoticeError)
)

var gestureKinds = map[string]gesture.Kind{
	TypeGestureStart:  gesture.KindStart,
	TypeGestureMove:   gesture.KindMove,
	TypeGestureEnd:    gesture.KindEnd,
	TypeGestureCancel: gesture.KindCancel,
}

func newMessage(msgType, sessionID string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, SessionID: sessionID, Payload: data}, nil
}
