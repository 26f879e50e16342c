package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/krishnaganguri/choreo-sweep-sub000/internal/model"
)

// Message types.
const (
	TypeRowChange = "row_change"
	TypeAuth      = "auth"
)

// Row change actions.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Message is a realtime notification. Row changes name the entity, action
// and row; auth messages carry the event.
type Message struct {
	Type     string           `json:"type"`
	Entity   string           `json:"entity,omitempty"`
	Action   string           `json:"action,omitempty"`
	ID       string           `json:"id,omitempty"`
	UserID   string           `json:"user_id,omitempty"`
	FamilyID string           `json:"family_id,omitempty"`
	Record   json.RawMessage  `json:"record,omitempty"`
	Event    *model.AuthEvent `json:"event,omitempty"`
}

// NewRowChange builds a row change for a row owned by userID. familyID is
// nil for personal rows. record may be nil.
func NewRowChange(entity, action, id, userID string, familyID *string, record any) Message {
	msg := Message{
		Type:   TypeRowChange,
		Entity: entity,
		Action: action,
		ID:     id,
		UserID: userID,
	}
	if familyID != nil {
		msg.FamilyID = *familyID
	}
	if record != nil {
		if data, err := json.Marshal(record); err == nil {
			msg.Record = data
		}
	}
	return msg
}

// Channel returns the subscription key of a row change, e.g. "chores:insert".
func (m Message) Channel() string {
	return fmt.Sprintf("%s:%s", m.Entity, m.Action)
}

// Hub maintains the set of active WebSocket clients and routes messages to
// the users allowed to see them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger.With("component", "realtime"),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish delivers a row change to the row's owner and, for family rows, to
// every client that is a member of that family.
func (h *Hub) Publish(msg Message) {
	h.deliver(msg, func(c *Client) bool {
		return c.userID == msg.UserID || (msg.FamilyID != "" && c.inFamily(msg.FamilyID))
	})
}

// SendToUser delivers msg to every connection of userID.
func (h *Hub) SendToUser(userID string, msg Message) {
	h.deliver(msg, func(c *Client) bool { return c.userID == userID })
}

// AuthEvent forwards an auth state change to the affected user. It matches
// the listener signature of auth.Provider.OnAuthStateChange.
func (h *Hub) AuthEvent(ev model.AuthEvent) {
	// Tokens stay off the wire; clients refresh through the API.
	ev.Session = nil
	h.SendToUser(ev.UserID, Message{Type: TypeAuth, UserID: ev.UserID, Event: &ev})
}

// SetFamilies replaces the verified family ids of every connection of
// userID, after a membership change.
func (h *Hub) SetFamilies(userID string, familyIDs []string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.userID == userID {
			c.setFamilies(familyIDs)
		}
	}
}

func (h *Hub) deliver(msg Message, match func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full: drop message to avoid blocking
			h.logger.Warn("dropping message for slow client", "user_id", c.userID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserIDs returns the distinct connected users, sorted.
func (h *Hub) UserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for c := range h.clients {
		if !slices.Contains(ids, c.userID) {
			ids = append(ids, c.userID)
		}
	}
	slices.Sort(ids)
	return ids
}
