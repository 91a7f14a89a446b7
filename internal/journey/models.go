package journey

import (
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/planner"
)

type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// legalNext is the journey state machine. Completed and cancelled are terminal.
var legalNext = map[Status][]Status{
	StatusPlanned:   {StatusActive, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

var actionTargets = map[Action]Status{
	ActionStart:    StatusActive,
	ActionComplete: StatusCompleted,
	ActionCancel:   StatusCancelled,
}

// LegalNext lists the statuses a journey in status s may move to.
func LegalNext(s Status) []string {
	next := legalNext[s]
	out := make([]string, 0, len(next))
	for _, n := range next {
		out = append(out, string(n))
	}
	return out
}

func CanTransition(from, to Status) bool {
	for _, n := range legalNext[from] {
		if n == to {
			return true
		}
	}
	return false
}

// sourcesOf returns every status from which target can be reached.
func sourcesOf(target Status) []string {
	var out []string
	for _, from := range []Status{StatusPlanned, StatusActive, StatusCompleted, StatusCancelled} {
		if CanTransition(from, target) {
			out = append(out, string(from))
		}
	}
	return out
}

type Journey struct {
	ID                   string              `json:"id"`
	JourneyID            string              `json:"journey_id"`
	UserID               string              `json:"user_id"`
	OriginRankID         string              `json:"origin_rank_id"`
	DestinationRankID    string              `json:"destination_rank_id"`
	TotalFare            float64             `json:"total_fare"`
	TotalDurationMinutes float64             `json:"total_duration_minutes"`
	TotalDistanceKm      float64             `json:"total_distance_km"`
	HopCount             int                 `json:"hop_count"`
	JourneyType          planner.JourneyType `json:"journey_type"`
	Status               Status              `json:"status"`
	PlannedAt            time.Time           `json:"planned_at"`
	StartedAt            *time.Time          `json:"started_at,omitempty"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
	CancelledAt          *time.Time          `json:"cancelled_at,omitempty"`
	CancellationReason   *string             `json:"cancellation_reason,omitempty"`
	Rating               *int                `json:"rating,omitempty"`
	Feedback             *string             `json:"feedback,omitempty"`
	RatedAt              *time.Time          `json:"rated_at,omitempty"`
	Connections          []RouteConnection   `json:"connections,omitempty"`
}

// RouteConnection is one hop of a journey.
type RouteConnection struct {
	ID                     string  `json:"id"`
	JourneyID              string  `json:"journey_id"`
	RouteID                string  `json:"route_id"`
	SequenceOrder          int     `json:"sequence_order"`
	ConnectionRankID       string  `json:"connection_rank_id"`
	SegmentFare            float64 `json:"segment_fare"`
	SegmentDurationMinutes float64 `json:"segment_duration_minutes"`
	SegmentDistanceKm      float64 `json:"segment_distance_km"`
	WaitingTimeMinutes     float64 `json:"waiting_time_minutes"`
}

type TransitionRequest struct {
	Action Action `json:"action" validate:"required,oneof=start complete cancel"`
	Reason string `json:"reason"`
}

type RatingRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

type CreateRequest struct {
	UserID string `json:"user_id"`
	planner.Request
}

// StatusEvent is pushed to stream subscribers whenever a journey changes status.
type StatusEvent struct {
	ID        string    `json:"id"`
	JourneyID string    `json:"journey_id"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}
