package journey

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/activity"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/auth"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/db"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/metrics"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/planner"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const journeyColumns = `id, journey_id, user_id, origin_rank_id, destination_rank_id, total_fare,
	total_duration_minutes, total_distance_km, hop_count, journey_type, status, planned_at,
	started_at, completed_at, cancelled_at, cancellation_reason, rating, feedback, rated_at`

// transitionSQL holds one compare-and-set update per target status. The
// update only applies when the current status is one of $2.
var transitionSQL = map[Status]string{
	StatusActive: `UPDATE journeys SET status='active', started_at=now()
		WHERE id=$1 AND status = ANY($2) RETURNING ` + journeyColumns,
	StatusCompleted: `UPDATE journeys SET status='completed', completed_at=now()
		WHERE id=$1 AND status = ANY($2) RETURNING ` + journeyColumns,
	StatusCancelled: `UPDATE journeys SET status='cancelled', cancelled_at=now(), cancellation_reason=$3
		WHERE id=$1 AND status = ANY($2) RETURNING ` + journeyColumns,
}

type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (auth.User, error)
}

type Publisher interface {
	Broadcast(journeyID string, payload []byte)
}

type Service struct {
	db        db.Querier
	users     UserGetter
	publisher Publisher
	recorder  activity.Recorder
}

func NewService(db db.Querier, users UserGetter, publisher Publisher, recorder activity.Recorder) *Service {
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &Service{db: db, users: users, publisher: publisher, recorder: recorder}
}

// CreateJourney persists plan as a planned journey owned by userID. The
// journey row and its connections are written in one transaction.
func (s *Service) CreateJourney(ctx context.Context, plan planner.PlanResult, userID string) (Journey, error) {
	if userID == "" {
		return Journey{}, apperr.Validation(apperr.CodeInvalidInput, "user_id is required")
	}
	if err := checkPlan(plan); err != nil {
		return Journey{}, err
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return Journey{}, err
	}

	j := Journey{
		ID:                uuid.NewString(),
		JourneyID:         newJourneyRef(),
		UserID:            userID,
		OriginRankID:      plan.OriginRankID,
		DestinationRankID: plan.DestinationRankID,
		HopCount:          len(plan.Segments),
		JourneyType:       plan.JourneyType,
		Status:            StatusPlanned,
	}
	for _, seg := range plan.Segments {
		j.TotalFare += seg.Fare
		j.TotalDurationMinutes += seg.DurationMinutes
		j.TotalDistanceKm += seg.DistanceKm
		j.Connections = append(j.Connections, RouteConnection{
			ID:                     uuid.NewString(),
			JourneyID:              j.ID,
			RouteID:                seg.RouteID,
			SequenceOrder:          seg.SequenceOrder,
			ConnectionRankID:       seg.ToRankID,
			SegmentFare:            seg.Fare,
			SegmentDurationMinutes: seg.DurationMinutes,
			SegmentDistanceKm:      seg.DistanceKm,
			WaitingTimeMinutes:     seg.WaitingTimeMinutes,
		})
	}

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := lockActiveRoutes(ctx, tx, j.Connections); err != nil {
			return err
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO journeys (id, journey_id, user_id, origin_rank_id, destination_rank_id, total_fare,
				total_duration_minutes, total_distance_km, hop_count, journey_type, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			RETURNING planned_at
		`, j.ID, j.JourneyID, j.UserID, j.OriginRankID, j.DestinationRankID, j.TotalFare,
			j.TotalDurationMinutes, j.TotalDistanceKm, j.HopCount, string(j.JourneyType), string(j.Status))
		if err := row.Scan(&j.PlannedAt); err != nil {
			return err
		}
		for _, c := range j.Connections {
			_, err := tx.Exec(ctx, `
				INSERT INTO route_connections (id, journey_id, route_id, sequence_order, connection_rank_id,
					segment_fare, segment_duration_minutes, segment_distance_km, waiting_time_minutes)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			`, c.ID, c.JourneyID, c.RouteID, c.SequenceOrder, c.ConnectionRankID,
				c.SegmentFare, c.SegmentDurationMinutes, c.SegmentDistanceKm, c.WaitingTimeMinutes)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if db.IsForeignKeyViolation(err) {
		return Journey{}, apperr.NotFound(apperr.CodeNotFound, "plan references a rank or route that no longer exists")
	}
	if err != nil {
		return Journey{}, err
	}

	s.afterTransition(ctx, j, activity.JourneyCreated, "")
	return j, nil
}

// lockActiveRoutes share-locks every route the journey rides and fails when
// one of them has been withdrawn. The lock holds a concurrent withdrawal back
// until the journey is committed, so the withdrawal then sees and cancels it.
func lockActiveRoutes(ctx context.Context, tx pgx.Tx, conns []RouteConnection) error {
	if len(conns) == 0 {
		return nil
	}
	want := make([]string, 0, len(conns))
	seen := map[string]bool{}
	for _, c := range conns {
		if !seen[c.RouteID] {
			seen[c.RouteID] = true
			want = append(want, c.RouteID)
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT id FROM transit_routes
		WHERE id = ANY($1) AND active
		ORDER BY id
		FOR SHARE
	`, want)
	if err != nil {
		return err
	}
	active := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		active[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range want {
		if !active[id] {
			return apperr.Conflict(apperr.CodeRouteWithdrawn, "route %s is no longer in service; plan again", id)
		}
	}
	return nil
}

// checkPlan enforces the hop invariants before anything is written.
func checkPlan(plan planner.PlanResult) error {
	if plan.OriginRankID == "" || plan.DestinationRankID == "" {
		return apperr.Validation(apperr.CodeInvalidInput, "plan has no origin or destination")
	}
	if plan.OriginRankID == plan.DestinationRankID {
		return apperr.Validation(apperr.CodeSameOriginDestination, "plan origin and destination are the same rank")
	}
	switch plan.JourneyType {
	case planner.TypeNoRouteFound:
		if len(plan.Segments) != 0 {
			return apperr.Validation(apperr.CodeInvalidInput, "a no_route_found plan cannot carry segments")
		}
		return nil
	case planner.TypeDirect, planner.TypeConnected:
	default:
		return apperr.Validation(apperr.CodeInvalidInput, "unknown journey type %q", plan.JourneyType)
	}
	if len(plan.Segments) == 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "a %s plan needs at least one segment", plan.JourneyType)
	}
	if direct := len(plan.Segments) == 1; direct != (plan.JourneyType == planner.TypeDirect) {
		return apperr.Validation(apperr.CodeInvalidInput, "a %s plan cannot have %d segments", plan.JourneyType, len(plan.Segments))
	}

	at := plan.OriginRankID
	for i, seg := range plan.Segments {
		if seg.SequenceOrder != i+1 {
			return apperr.Validation(apperr.CodeInvalidInput, "segment %d has sequence_order %d", i+1, seg.SequenceOrder)
		}
		if seg.FromRankID != at {
			return apperr.Validation(apperr.CodeInvalidInput, "segment %d departs from %s but the previous hop ends at %s", i+1, seg.FromRankID, at)
		}
		if seg.Fare < 0 {
			return apperr.Validation(apperr.CodeInvalidInput, "segment %d has a negative fare", i+1)
		}
		at = seg.ToRankID
	}
	if at != plan.DestinationRankID {
		return apperr.Validation(apperr.CodeInvalidInput, "plan ends at %s, not %s", at, plan.DestinationRankID)
	}
	return nil
}

func newJourneyRef() string {
	return "JRN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func (s *Service) GetJourney(ctx context.Context, id string) (Journey, error) {
	row := s.db.QueryRow(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id=$1`, id)
	j, err := scanJourney(row)
	if db.IsNoRows(err) {
		return Journey{}, apperr.NotFound(apperr.CodeNotFound, "journey %s not found", id)
	}
	if err != nil {
		return Journey{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, journey_id, route_id, sequence_order, connection_rank_id,
		       segment_fare, segment_duration_minutes, segment_distance_km, waiting_time_minutes
		FROM route_connections WHERE journey_id=$1
		ORDER BY sequence_order
	`, id)
	if err != nil {
		return Journey{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var c RouteConnection
		if err := rows.Scan(&c.ID, &c.JourneyID, &c.RouteID, &c.SequenceOrder, &c.ConnectionRankID,
			&c.SegmentFare, &c.SegmentDurationMinutes, &c.SegmentDistanceKm, &c.WaitingTimeMinutes); err != nil {
			return Journey{}, err
		}
		j.Connections = append(j.Connections, c)
	}
	return j, rows.Err()
}

// Authorize checks that userID owns journey id. An empty userID is let
// through for routes mounted without authentication.
func (s *Service) Authorize(ctx context.Context, id, userID string) error {
	if userID == "" {
		return nil
	}
	var owner string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM journeys WHERE id=$1`, id).Scan(&owner)
	if db.IsNoRows(err) {
		return apperr.NotFound(apperr.CodeNotFound, "journey %s not found", id)
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return apperr.Forbidden("journey %s belongs to another user", id)
	}
	return nil
}

func (s *Service) ListJourneys(ctx context.Context, userID string) ([]Journey, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+journeyColumns+`
		FROM journeys WHERE user_id=$1
		ORDER BY planned_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	journeys := []Journey{}
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	return journeys, rows.Err()
}

func (s *Service) StartJourney(ctx context.Context, id string) (Journey, error) {
	return s.transition(ctx, id, StatusActive, "")
}

func (s *Service) CompleteJourney(ctx context.Context, id string) (Journey, error) {
	return s.transition(ctx, id, StatusCompleted, "")
}

func (s *Service) CancelJourney(ctx context.Context, id, reason string) (Journey, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Journey{}, apperr.Validation(apperr.CodeMissingReason, "a reason is required to cancel a journey")
	}
	return s.transition(ctx, id, StatusCancelled, reason)
}

// Transition applies a client action to the journey.
func (s *Service) Transition(ctx context.Context, id string, req TransitionRequest) (Journey, error) {
	target, ok := actionTargets[req.Action]
	if !ok {
		return Journey{}, apperr.Validation(apperr.CodeInvalidInput, "unknown action %q", req.Action)
	}
	if target == StatusCancelled {
		return s.CancelJourney(ctx, id, req.Reason)
	}
	return s.transition(ctx, id, target, "")
}

func (s *Service) transition(ctx context.Context, id string, target Status, reason string) (Journey, error) {
	args := []any{id, sourcesOf(target)}
	if target == StatusCancelled {
		args = append(args, reason)
	}

	j, err := scanJourney(s.db.QueryRow(ctx, transitionSQL[target], args...))
	if db.IsNoRows(err) {
		return Journey{}, s.rejectTransition(ctx, id, "cannot move journey %s from %s to %s", target)
	}
	if err != nil {
		return Journey{}, err
	}

	events := map[Status]string{
		StatusActive:    activity.JourneyStarted,
		StatusCompleted: activity.JourneyCompleted,
		StatusCancelled: activity.JourneyCancelled,
	}
	s.afterTransition(ctx, j, events[target], reason)
	return j, nil
}

// rejectTransition explains why a compare-and-set update matched no row.
func (s *Service) rejectTransition(ctx context.Context, id, format string, target Status) error {
	var current string
	err := s.db.QueryRow(ctx, `SELECT status FROM journeys WHERE id=$1`, id).Scan(&current)
	if db.IsNoRows(err) {
		return apperr.NotFound(apperr.CodeNotFound, "journey %s not found", id)
	}
	if err != nil {
		return err
	}
	status := Status(current)
	return apperr.State(LegalNext(status), format, id, status, target)
}

// RateJourney stores the traveller's rating. Only completed journeys can be rated.
func (s *Service) RateJourney(ctx context.Context, id string, rating int, feedback string) (Journey, error) {
	if rating < 1 || rating > 5 {
		return Journey{}, apperr.Validation(apperr.CodeInvalidRating, "rating must be between 1 and 5")
	}
	row := s.db.QueryRow(ctx, `
		UPDATE journeys SET rating=$2, feedback=$3, rated_at=now()
		WHERE id=$1 AND status='completed'
		RETURNING `+journeyColumns, id, rating, feedback)
	j, err := scanJourney(row)
	if db.IsNoRows(err) {
		return Journey{}, s.rejectTransition(ctx, id, "journey %s is %s; only completed journeys can be %s", "rated")
	}
	if err != nil {
		return Journey{}, err
	}
	activity.Emit(ctx, s.recorder, activity.Event{
		Name:     activity.JourneyRated,
		UserID:   j.UserID,
		EntityID: j.ID,
		Data:     map[string]any{"rating": rating},
	})
	return j, nil
}

func (s *Service) afterTransition(ctx context.Context, j Journey, eventName, reason string) {
	metrics.TransitionsTotal.WithLabelValues(string(j.Status)).Inc()
	log.WithFields(log.Fields{
		"journey_id": j.ID,
		"status":     j.Status,
		"user_id":    j.UserID,
	}).Info("journey status changed")

	s.publish(StatusEvent{
		ID:        j.ID,
		JourneyID: j.JourneyID,
		Status:    j.Status,
		Reason:    reason,
		At:        time.Now().UTC(),
	})

	data := map[string]any{
		"journey_type": j.JourneyType,
		"hop_count":    j.HopCount,
		"total_fare":   j.TotalFare,
	}
	if reason != "" {
		data["reason"] = reason
	}
	activity.Emit(ctx, s.recorder, activity.Event{
		Name:     eventName,
		UserID:   j.UserID,
		EntityID: j.ID,
		Data:     data,
	})
}

// AnnounceCancelled fans out journeys that were cancelled outside this
// service, such as by a route withdrawal. Each one is reloaded so the stream
// and activity feed carry the same details as a cancellation made here.
func (s *Service) AnnounceCancelled(ctx context.Context, ids []string, reason string) {
	if len(ids) == 0 {
		return
	}

	journeys, err := s.journeysByID(ctx, ids)
	if err != nil {
		log.WithError(err).WithField("journeys", len(ids)).Warn("reloading cancelled journeys failed")
		for _, id := range ids {
			metrics.TransitionsTotal.WithLabelValues(string(StatusCancelled)).Inc()
			s.publish(StatusEvent{ID: id, Status: StatusCancelled, Reason: reason, At: time.Now().UTC()})
		}
		return
	}
	for _, j := range journeys {
		s.afterTransition(ctx, j, activity.JourneyCancelled, reason)
	}
}

func (s *Service) journeysByID(ctx context.Context, ids []string) ([]Journey, error) {
	rows, err := s.db.Query(ctx, `SELECT `+journeyColumns+` FROM journeys WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journeys []Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	return journeys, rows.Err()
}

func (s *Service) publish(ev StatusEvent) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.publisher.Broadcast(ev.ID, payload)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJourney(row scanner) (Journey, error) {
	var j Journey
	var journeyType, status string
	err := row.Scan(&j.ID, &j.JourneyID, &j.UserID, &j.OriginRankID, &j.DestinationRankID, &j.TotalFare,
		&j.TotalDurationMinutes, &j.TotalDistanceKm, &j.HopCount, &journeyType, &status, &j.PlannedAt,
		&j.StartedAt, &j.CompletedAt, &j.CancelledAt, &j.CancellationReason, &j.Rating, &j.Feedback, &j.RatedAt)
	j.JourneyType = planner.JourneyType(journeyType)
	j.Status = Status(status)
	return j, err
}
