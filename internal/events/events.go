// Package events carries fire-and-forget notifications to downstream
// consumers such as the points subsystem. Publishing never fails the
// operation that produced the event.
package events

import (
	"context"
	"sync"
	"time"

	id "vouch/pkg/domain"
)

const (
	TypeVerificationCompleted = "verification.completed"
	// TypeVerificationChanged marks a document leaving the verified set or
	// being rejected or deleted.
	TypeVerificationChanged = "verification.changed"
	TypeBadgeAwarded        = "badge.awarded"
	TypeBadgeRevoked        = "badge.revoked"
)

// Event is the wire payload, encoded as JSON.
type Event struct {
	Type       string            `json:"type"`
	UserID     id.UserID         `json:"userId"`
	OccurredAt time.Time         `json:"occurredAt"`
	Data       map[string]string `json:"data,omitempty"`
}

// Publisher delivers events best-effort.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory for tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType filters recorded events by type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
