package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/lineup-manager/internal/models"
)

// Event is the structured record published for lineup and contest activity.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	LineupID  uint              `json:"lineup_id,omitempty"`
	ContestID uint              `json:"contest_id,omitempty"`
	OldPlayer string            `json:"old_player,omitempty"`
	NewPlayer string            `json:"new_player,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Detail    map[string]string `json:"detail,omitempty"`
}

const (
	EventLineupSwapped    = "lineup_swapped"
	EventLineupSubmitted  = "lineup_submitted"
	EventLineupFailed     = "lineup_failed"
	EventContestReady     = "contest_ready"
	EventContestLocked    = "contest_locked"
	EventSwapNoCandidate  = "swap_no_candidate"
	EventProjectionsFresh = "projections_refreshed"
)

// NewEvent stamps a typed event.
func NewEvent(eventType string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// EventHub fans events out to connected websocket clients and any registered
// notifiers. It is the alerting collaborator boundary of the system.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]bool
	broadcast chan Event
	notifiers []Notifier
	logger    *logrus.Logger
}

func NewEventHub(logger *logrus.Logger) *EventHub {
	return &EventHub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Event, 64),
		logger:    logger,
	}
}

// AddNotifier registers an out-of-band notifier (SMS, mock).
func (h *EventHub) AddNotifier(n Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifiers = append(h.notifiers, n)
}

// Register attaches a websocket client.
func (h *EventHub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

// Unregister detaches and closes a websocket client.
func (h *EventHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Publish queues an event for delivery. Never blocks the caller; when the
// queue is full the event is logged and dropped.
func (h *EventHub) Publish(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.WithField("type", event.Type).Warn("Event queue full, dropping event")
	}
}

// Run delivers events until the broadcast channel is closed.
func (h *EventHub) Run() {
	for event := range h.broadcast {
		h.deliver(event)
	}
}

// Close stops the hub.
func (h *EventHub) Close() {
	close(h.broadcast)
}

func (h *EventHub) deliver(event Event) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	notifiers := append([]Notifier(nil), h.notifiers...)
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.WithError(err).Debug("Dropping dead websocket client")
			h.Unregister(conn)
		}
	}
	for _, n := range notifiers {
		if err := n.Notify(event); err != nil {
			h.logger.WithError(err).WithField("type", event.Type).Warn("Notifier delivery failed")
		}
	}
}

// LineupSwapped implements the swap engine's notifier contract.
func (h *EventHub) LineupSwapped(entry models.SwapLogEntry) {
	event := NewEvent(EventLineupSwapped)
	event.LineupID = entry.LineupID
	event.OldPlayer = entry.OldPlayerID
	event.NewPlayer = entry.NewPlayerID
	event.Reason = string(entry.Reason)
	event.Detail = map[string]string{
		"old_name": entry.OldPlayerName,
		"new_name": entry.NewPlayerName,
		"slot":     entry.SlotName,
	}
	h.Publish(event)
}
