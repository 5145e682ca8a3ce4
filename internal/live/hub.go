// Package live pushes studio changes to connected browsers over websockets
// and feeds their gesture, gizmo, history and chat input back into the
// session's studio.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gesture"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
	"github.com/Nikhil-Joson/HomeCanvas/internal/studio"
)

type Room struct {
	sessionID   string
	clients     map[string]*Client // clientID -> client
	presence    *PresenceManager
	unsubscribe func()
}

func NewRoom(sessionID string) *Room {
	return &Room{
		sessionID: sessionID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // sessionID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes joins and leaves until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for id, room := range h.rooms {
			for _, c := range room.clients {
				c.close()
			}
			room.unsubscribe()
			delete(h.rooms, id)
		}
	})
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Clients reports how many clients are connected to a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[sessionID]; ok {
		return len(room.clients)
	}
	return 0
}

// Serve upgrades the request and runs the client until it disconnects. The
// caller has already authorized access to st.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, st *studio.Studio, originPatterns []string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h, conn, st, uuid.New().String())
	h.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// OriginPatterns converts allowed origins such as "http://localhost:5173"
// into the host patterns websocket.Accept matches against.
func OriginPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
		} else {
			out = append(out, strings.TrimSuffix(o, "/"))
		}
	}
	return out
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		room = NewRoom(client.SessionID)
		sessionID := client.SessionID
		room.unsubscribe = client.studio.Subscribe(func(n studio.Notice) {
			h.broadcastNotice(sessionID, n)
		})
		h.rooms[client.SessionID] = room
	}
	room.clients[client.ClientID] = client
	room.presence.Join(client.ClientID, time.Now())
	h.mu.Unlock()

	if msg, err := newMessage(TypeWelcome, client.SessionID, WelcomePayload{
		ClientID:  client.ClientID,
		SessionID: client.SessionID,
	}); err == nil {
		client.Send(msg)
	}
	if msg, err := newMessage(TypeState, client.SessionID, client.studio.State()); err == nil {
		client.Send(msg)
	}
	h.broadcastPresence(client.SessionID)

	slog.Info("client joined", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.SessionID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	room.presence.Remove(client.ClientID)
	client.close()

	empty := len(room.clients) == 0
	if empty {
		room.unsubscribe()
		delete(h.rooms, client.SessionID)
	}
	h.mu.Unlock()

	if !empty {
		h.broadcastPresence(client.SessionID)
	}

	slog.Info("client left", "client", client.ClientID, "session", client.SessionID)
}

func (h *Hub) broadcastNotice(sessionID string, n studio.Notice) {
	msg, err := newMessage(string(n.Type), sessionID, n.Data)
	if err != nil {
		slog.Error("marshal notice", "error", err, "type", n.Type)
		return
	}
	h.broadcastToRoom(sessionID, msg, "")
}

func (h *Hub) broadcastPresence(sessionID string) {
	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if msg := room.presence.StateMessage(sessionID); msg != nil {
		h.broadcastToRoom(sessionID, msg, "")
	}
}

// trackGesture updates the sender's presence for a gesture phase.
func (h *Hub) trackGesture(sender *Client, kind gesture.Kind, modality gesture.Modality) {
	h.mu.RLock()
	room, ok := h.rooms[sender.SessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	dragging := kind == gesture.KindStart || kind == gesture.KindMove
	if room.presence.SetDragging(sender.ClientID, dragging, modality) {
		h.broadcastPresence(sender.SessionID)
	}
}

func (h *Hub) broadcastToRoom(sessionID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[sessionID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func (h *Hub) handleMessage(ctx context.Context, sender *Client, msg *Message) {
	st := sender.studio
	if kind, ok := gestureKinds[msg.Type]; ok {
		h.handleGesture(ctx, sender, kind, msg)
		return
	}

	switch msg.Type {
	case TypeLayoutUpdate:
		var rect geometry.Rect
		if decodePayload(sender, msg, &rect) {
			h.report(sender, msg.Type, st.SetLayout(rect))
		}
	case TypeGizmoStage:
		var t gizmo.Transform
		if decodePayload(sender, msg, &t) {
			h.report(sender, msg.Type, st.StageProduct(t))
		}
	case TypeGizmoBegin:
		var p GizmoBeginPayload
		if !decodePayload(sender, msg, &p) {
			return
		}
		at := geometry.Point{X: p.X, Y: p.Y}
		switch p.Mode {
		case "move":
			h.report(sender, msg.Type, st.BeginMove(at))
		case "scale":
			h.report(sender, msg.Type, st.BeginScale(at))
		default:
			sender.SendError("unknown gizmo mode " + p.Mode)
		}
	case TypeGizmoDrag:
		var p PointPayload
		if decodePayload(sender, msg, &p) {
			h.report(sender, msg.Type, st.DragGizmo(geometry.Point{X: p.X, Y: p.Y}))
		}
	case TypeGizmoEnd:
		h.report(sender, msg.Type, st.EndGizmo())
	case TypeGizmoPatch:
		var p gizmo.Patch
		if decodePayload(sender, msg, &p) {
			h.report(sender, msg.Type, st.PatchGizmo(p))
		}
	case TypeGizmoCancel:
		h.report(sender, msg.Type, st.CancelGizmo())
	case TypeGizmoConfirm:
		h.async(ctx, sender, msg.Type, st.ConfirmGizmo)
	case TypeHistoryUndo:
		_, err := st.Undo(ctx)
		h.report(sender, msg.Type, err)
	case TypeHistoryRedo:
		_, err := st.Redo(ctx)
		h.report(sender, msg.Type, err)
	case TypeHistoryReset:
		h.report(sender, msg.Type, st.Reset(ctx))
	case TypeChatSubmit:
		var p ChatSubmitPayload
		if decodePayload(sender, msg, &p) {
			h.async(ctx, sender, msg.Type, func(ctx context.Context) error {
				return st.Chat(ctx, p.Prompt, p.Context)
			})
		}
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", sender.ClientID)
		sender.SendError("unknown message type " + msg.Type)
	}
}

func (h *Hub) handleGesture(ctx context.Context, sender *Client, kind gesture.Kind, msg *Message) {
	var p GesturePayload
	if !decodePayload(sender, msg, &p) {
		return
	}
	if p.Modality == "" {
		p.Modality = gesture.Pointer
	}

	_, drop, err := sender.studio.HandleGesture(gesture.Event{
		Kind:     kind,
		Modality: p.Modality,
		Position: geometry.Point{X: p.X, Y: p.Y},
		Time:     time.Now(),
	})
	if err != nil {
		h.report(sender, msg.Type, err)
		return
	}
	h.trackGesture(sender, kind, p.Modality)
	if drop != nil {
		pos := drop.ImagePercent
		h.async(ctx, sender, "placement", func(ctx context.Context) error {
			return sender.studio.Place(ctx, pos)
		})
	}
}

// async runs a generation request off the read loop so the client can keep
// sending gestures while it is in flight.
func (h *Hub) async(ctx context.Context, sender *Client, op string, fn func(context.Context) error) {
	go func() {
		h.report(sender, op, fn(ctx))
	}()
}

// report tells the sender about request errors. Generation failures are
// already broadcast by the studio as error notices.
func (h *Hub) report(sender *Client, op string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, geometry.ErrOutOfBounds):
		slog.Debug("placement outside image", "op", op, "session", sender.SessionID)
	case errors.Is(err, studio.ErrBusy),
		errors.Is(err, studio.ErrNoProduct),
		errors.Is(err, studio.ErrNoScene),
		errors.Is(err, studio.ErrEmptyPrompt),
		errors.Is(err, studio.ErrClosed),
		errors.Is(err, gizmo.ErrNotStaged):
		sender.SendError(err.Error())
	default:
		slog.Warn("live request failed", "op", op, "error", err, "session", sender.SessionID)
	}
}

func decodePayload(sender *Client, msg *Message, v any) bool {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		sender.SendError("invalid " + msg.Type + " payload")
		return false
	}
	return true
}
