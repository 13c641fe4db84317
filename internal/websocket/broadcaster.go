package websocket

import (
	"context"
	"log"
	"time"

	"rollcall/pkg/interfaces"
)

// Event types pushed to session displays.
const (
	EventConnected     = "connected"
	EventNotification  = "notification"
	EventRosterChanged = "roster_changed"
	EventLuckyNumber   = "lucky_number"
	EventPicked        = "picked"
	EventSessionEnded  = "session_ended"
)

// Event is the JSON frame sent to displays.
type Event struct {
	Type      string      `json:"type"`
	Title     string      `json:"title,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Broadcaster fans events out to every display of a session
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster creates a broadcaster over registry.
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// Broadcast sends event to all displays of sessionID and returns how many accepted it.
// FUNCTIONAL DISCOVERY: A session without displays is normal; delivery is best effort
func (b *Broadcaster) Broadcast(sessionID string, event Event) int {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	delivered := 0
	for _, conn := range b.registry.GetSessionConnections(sessionID) {
		if err := conn.WriteJSON(event); err != nil {
			log.Printf("Failed to deliver %s event to %s: %v", event.Type, conn.ID(), err)
			continue
		}
		delivered++
	}
	return delivered
}

// Notifier returns a Notifier that shows messages on the displays of sessionID.
func (b *Broadcaster) Notifier(sessionID string) interfaces.Notifier {
	return &sessionNotifier{broadcaster: b, sessionID: sessionID}
}

type sessionNotifier struct {
	broadcaster *Broadcaster
	sessionID   string
}

func (n *sessionNotifier) Notify(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.broadcaster.Broadcast(n.sessionID, Event{
		Type:    EventNotification,
		Title:   title,
		Message: message,
	})
	return nil
}
