// Package events fans timer notifications out to any number of subscribers.
package events

import (
	"time"

	"intentio/backend/internal/model"
)

// Name identifies an event channel.
type Name string

const (
	SessionUpdated    Name = "session_updated"
	QueueUpdated      Name = "queue_updated"
	SessionCreated    Name = "session_created"
	PersistenceFailed Name = "persistence_failed"
)

// Names lists every event the bus can carry.
var Names = []Name{SessionUpdated, QueueUpdated, SessionCreated, PersistenceFailed}

func ParseName(raw string) (Name, bool) {
	for _, name := range Names {
		if string(name) == raw {
			return name, true
		}
	}
	return "", false
}

// Event is an immutable notification. Exactly one payload field is set,
// matching Name.
type Event struct {
	ID        string             `json:"id"`
	Name      Name               `json:"name"`
	At        time.Time          `json:"at"`
	Session   *model.Session     `json:"session,omitempty"`
	Queue     []model.QueueEntry `json:"queue,omitempty"`
	SessionID int64              `json:"sessionId,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Payload returns the data carried by the event.
func (e Event) Payload() interface{} {
	switch e.Name {
	case SessionUpdated:
		return e.Session
	case QueueUpdated:
		if e.Queue == nil {
			return []model.QueueEntry{}
		}
		return e.Queue
	case SessionCreated:
		return e.SessionID
	case PersistenceFailed:
		return e.Error
	}
	return nil
}
