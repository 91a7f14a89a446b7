package route

import (
	"context"
	"math"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const (
	routeColumns = `id, origin_rank_id, destination_rank_id, fare, duration_minutes, distance_km,
		route_type, is_direct, frequency_minutes, active, created_at, updated_at`

	WithdrawnReason = "route withdrawn"
)

type Service struct {
	db         db.Querier
	onChange   func()
	onWithdraw func(ctx context.Context, w Withdrawal)
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// OnChange registers fn to run after every successful route mutation.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

// OnWithdraw registers fn to run after a route has been deactivated.
func (s *Service) OnWithdraw(fn func(ctx context.Context, w Withdrawal)) {
	s.onWithdraw = fn
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func Validate(r TransitRoute) error {
	if r.OriginRankID == r.DestinationRankID {
		return apperr.Validation(apperr.CodeSameOriginDestination, "route origin and destination must differ")
	}
	if r.Fare < 0 || math.IsNaN(r.Fare) {
		return apperr.Validation(apperr.CodeInvalidInput, "fare must be non-negative")
	}
	if r.DurationMinutes < 0 || r.DistanceKm < 0 || r.FrequencyMinutes < 0 {
		return apperr.Validation(apperr.CodeInvalidInput, "duration, distance and frequency must be non-negative")
	}
	switch r.RouteType {
	case TypeTaxi, TypeBus, TypeMixed, TypeWalking:
	default:
		return apperr.Validation(apperr.CodeInvalidInput, "unknown route type %q", r.RouteType)
	}
	return nil
}

// CreateRoute stores the route, plus its return edge when the input is
// bidirectional. Both rows are written in one transaction.
func (s *Service) CreateRoute(ctx context.Context, input CreateRouteInput) ([]TransitRoute, error) {
	forward := TransitRoute{
		ID:                uuid.NewString(),
		OriginRankID:      input.OriginRankID,
		DestinationRankID: input.DestinationRankID,
		Fare:              input.Fare,
		DurationMinutes:   input.DurationMinutes,
		DistanceKm:        input.DistanceKm,
		RouteType:         input.RouteType,
		IsDirect:          true,
		FrequencyMinutes:  input.FrequencyMinutes,
		Active:            true,
	}
	if forward.RouteType == "" {
		forward.RouteType = TypeTaxi
	}
	if input.IsDirect != nil {
		forward.IsDirect = *input.IsDirect
	}
	if err := Validate(forward); err != nil {
		return nil, err
	}

	routes := []TransitRoute{forward}
	if input.Bidirectional {
		reverse := forward
		reverse.ID = uuid.NewString()
		reverse.OriginRankID, reverse.DestinationRankID = forward.DestinationRankID, forward.OriginRankID
		routes = append(routes, reverse)
	}

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		for i := range routes {
			if err := insertRoute(ctx, tx, &routes[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if db.IsForeignKeyViolation(err) {
		return nil, apperr.NotFound(apperr.CodeUnknownRank, "route references an unknown rank")
	}
	if err != nil {
		return nil, err
	}
	s.changed()
	return routes, nil
}

func insertRoute(ctx context.Context, q db.Querier, r *TransitRoute) error {
	row := q.QueryRow(ctx, `
		INSERT INTO transit_routes (id, origin_rank_id, destination_rank_id, fare, duration_minutes, distance_km,
			route_type, is_direct, frequency_minutes, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, r.ID, r.OriginRankID, r.DestinationRankID, r.Fare, r.DurationMinutes, r.DistanceKm,
		string(r.RouteType), r.IsDirect, r.FrequencyMinutes, r.Active)
	return row.Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (s *Service) GetRoute(ctx context.Context, id string) (TransitRoute, error) {
	return getRoute(ctx, s.db, id, "")
}

func getRoute(ctx context.Context, q db.Querier, id, lock string) (TransitRoute, error) {
	row := q.QueryRow(ctx, `SELECT `+routeColumns+` FROM transit_routes WHERE id=$1`+lock, id)
	r, err := scanRoute(row)
	if db.IsNoRows(err) {
		return TransitRoute{}, apperr.NotFound(apperr.CodeNotFound, "route %s not found", id)
	}
	return r, err
}

func (s *Service) UpdateRoute(ctx context.Context, id string, patch RoutePatch) (TransitRoute, error) {
	r, err := s.GetRoute(ctx, id)
	if err != nil {
		return TransitRoute{}, err
	}
	patch.Apply(&r)
	if err := Validate(r); err != nil {
		return TransitRoute{}, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE transit_routes
		SET fare=$2, duration_minutes=$3, distance_km=$4, route_type=$5, is_direct=$6, frequency_minutes=$7, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, r.ID, r.Fare, r.DurationMinutes, r.DistanceKm, string(r.RouteType), r.IsDirect, r.FrequencyMinutes)
	if err := row.Scan(&r.UpdatedAt); err != nil {
		return TransitRoute{}, err
	}
	s.changed()
	return r, nil
}

// DeactivateRoute withdraws a route from planning. It is refused while an
// active journey is travelling on the route; planned journeys that would use
// it are cancelled in the same transaction.
//
// The cancel runs before the active check. It locks every planned journey on
// the route, so a concurrent start either commits first and is seen by the
// check or waits and then finds its journey cancelled.
func (s *Service) DeactivateRoute(ctx context.Context, id string) (Withdrawal, error) {
	var out Withdrawal
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		r, err := getRoute(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `
			UPDATE journeys
			SET status='cancelled', cancelled_at=now(), cancellation_reason=$2
			WHERE status='planned' AND id IN (SELECT journey_id FROM route_connections WHERE route_id=$1)
			RETURNING id
		`, id, WithdrawnReason)
		if err != nil {
			return err
		}
		cancelled := []string{}
		for rows.Next() {
			var journeyID string
			if err := rows.Scan(&journeyID); err != nil {
				rows.Close()
				return err
			}
			cancelled = append(cancelled, journeyID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		var inUse bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM route_connections rc
				JOIN journeys j ON j.id = rc.journey_id
				WHERE rc.route_id = $1 AND j.status = 'active'
			)
		`, id).Scan(&inUse)
		if err != nil {
			return err
		}
		if inUse {
			return apperr.Conflict(apperr.CodeRouteInUse, "route %s is used by an active journey", id)
		}

		err = tx.QueryRow(ctx, `
			UPDATE transit_routes SET active=false, updated_at=now() WHERE id=$1 RETURNING updated_at
		`, id).Scan(&r.UpdatedAt)
		if err != nil {
			return err
		}
		r.Active = false
		out = Withdrawal{Route: r, CancelledJourneyIDs: cancelled}
		return nil
	})
	if err != nil {
		return Withdrawal{}, err
	}

	log.WithFields(log.Fields{
		"route_id":           id,
		"cancelled_journeys": len(out.CancelledJourneyIDs),
	}).Info("route withdrawn")
	s.changed()
	if s.onWithdraw != nil {
		s.onWithdraw(ctx, out)
	}
	return out, nil
}

func (s *Service) ListActiveRoutes(ctx context.Context) ([]TransitRoute, error) {
	rows, err := s.db.Query(ctx, `SELECT `+routeColumns+` FROM transit_routes WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []TransitRoute
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoute(row scanner) (TransitRoute, error) {
	var r TransitRoute
	var routeType string
	err := row.Scan(&r.ID, &r.OriginRankID, &r.DestinationRankID, &r.Fare, &r.DurationMinutes, &r.DistanceKm,
		&routeType, &r.IsDirect, &r.FrequencyMinutes, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	r.RouteType = RouteType(routeType)
	return r, err
}
