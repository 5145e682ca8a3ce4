package live

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/gesture"
)

// Presence is one connected client as seen by the others in its session.
type Presence struct {
	ClientID string           `json:"clientId"`
	JoinedAt time.Time        `json:"joinedAt"`
	Dragging bool             `json:"dragging"`
	Modality gesture.Modality `json:"modality,omitempty"`
}

type PresencePayload struct {
	Clients []Presence `json:"clients"`
}

// PresenceManager tracks who is connected to one session and whether they
// are mid-drag.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*Presence // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*Presence),
	}
}

func (pm *PresenceManager) Join(clientID string, at time.Time) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = &Presence{ClientID: clientID, JoinedAt: at}
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

// SetDragging records a gesture phase and reports whether it changed what
// the others see.
func (pm *PresenceManager) SetDragging(clientID string, dragging bool, modality gesture.Modality) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p, ok := pm.presences[clientID]
	if !ok || (p.Dragging == dragging && p.Modality == modality) {
		return false
	}
	p.Dragging = dragging
	p.Modality = modality
	if !dragging {
		p.Modality = ""
	}
	return true
}

// GetAll returns a copy ordered by join time.
func (pm *PresenceManager) GetAll() []Presence {
	pm.mu.RLock()
	result := make([]Presence, 0, len(pm.presences))
	for _, p := range pm.presences {
		result = append(result, *p)
	}
	pm.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].JoinedAt.Equal(result[j].JoinedAt) {
			return result[i].JoinedAt.Before(result[j].JoinedAt)
		}
		return result[i].ClientID < result[j].ClientID
	})
	return result
}

func (pm *PresenceManager) StateMessage(sessionID string) *Message {
	msg, err := newMessage(TypePresence, sessionID, PresencePayload{Clients: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return msg
}
