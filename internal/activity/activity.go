// Package activity records analytics events such as journeys being planned
// or fare signs being verified. Recording is best effort: a failed publish is
// logged and never fails the operation that produced the event.
package activity

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	JourneyCreated   = "journey.created"
	JourneyStarted   = "journey.started"
	JourneyCompleted = "journey.completed"
	JourneyCancelled = "journey.cancelled"
	JourneyRated     = "journey.rated"
	SignSubmitted    = "sign.submitted"
	SignVerified     = "sign.verified"
)

type Event struct {
	Name       string         `json:"name"`
	UserID     string         `json:"user_id,omitempty"`
	EntityID   string         `json:"entity_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Recorder interface {
	Record(ctx context.Context, event Event) error
}

type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// Emit stamps and records event, logging instead of returning failures.
func Emit(ctx context.Context, r Recorder, event Event) {
	if r == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := r.Record(ctx, event); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"event":     event.Name,
			"entity_id": event.EntityID,
		}).Warn("activity event dropped")
	}
}

func encode(event Event) ([]byte, error) {
	return json.Marshal(event)
}
