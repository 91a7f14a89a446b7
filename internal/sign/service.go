package sign

import (
	"context"
	"strings"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/activity"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/db"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/graph"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/metrics"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

const signColumns = `id, user_id, latitude, longitude, description, from_location, to_location, fare_amount,
	photo_url, verification_count, is_verified, verification_date, last_updated_by, matched_rank_id,
	matched_route_id, created_at`

const maxVerifyAttempts = 3

type GraphSource interface {
	Snapshot(ctx context.Context) (*graph.Graph, error)
}

type Options struct {
	// Threshold is the verification count at which a sign becomes verified.
	Threshold     int
	MatchRadiusKm float64
}

type Service struct {
	db       db.Querier
	graphs   GraphSource
	recorder activity.Recorder
	opts     Options
}

func NewService(db db.Querier, graphs GraphSource, recorder activity.Recorder, opts Options) *Service {
	if opts.Threshold < 1 {
		opts.Threshold = 1
	}
	if recorder == nil {
		recorder = activity.Nop{}
	}
	return &Service{db: db, graphs: graphs, recorder: recorder, opts: opts}
}

// SubmitSign stores a new unverified report. Matching it to a rank and route
// is attempted but never blocks the submission.
func (s *Service) SubmitSign(ctx context.Context, in SubmitInput) (HikingSign, error) {
	point := geo.Point{Lat: in.Lat, Lon: in.Lng}
	if err := point.Validate(); err != nil {
		return HikingSign{}, err
	}
	if in.FareAmount < 0 {
		return HikingSign{}, apperr.Validation(apperr.CodeInvalidInput, "fare_amount must not be negative")
	}

	sign := HikingSign{
		ID:           uuid.NewString(),
		UserID:       optional(in.UserID),
		Lat:          in.Lat,
		Lng:          in.Lng,
		Description:  strings.TrimSpace(in.Description),
		FromLocation: strings.TrimSpace(in.FromLocation),
		ToLocation:   strings.TrimSpace(in.ToLocation),
		FareAmount:   in.FareAmount,
		PhotoURL:     in.PhotoURL,
	}
	if g, err := s.graphs.Snapshot(ctx); err != nil {
		log.WithError(err).WithField("sign_id", sign.ID).Warn("sign submitted without matching")
	} else {
		rankID, routeID := Match(g, sign, s.opts.MatchRadiusKm)
		sign.MatchedRankID, sign.MatchedRouteID = optional(rankID), optional(routeID)
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO hiking_signs (id, user_id, latitude, longitude, description, from_location, to_location,
			fare_amount, photo_url, matched_rank_id, matched_route_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at
	`, sign.ID, sign.UserID, sign.Lat, sign.Lng, sign.Description, sign.FromLocation, sign.ToLocation,
		sign.FareAmount, sign.PhotoURL, sign.MatchedRankID, sign.MatchedRouteID).Scan(&sign.CreatedAt)
	if err != nil {
		return HikingSign{}, err
	}

	activity.Emit(ctx, s.recorder, activity.Event{
		Name:     activity.SignSubmitted,
		UserID:   in.UserID,
		EntityID: sign.ID,
		Data:     map[string]any{"fare_amount": sign.FareAmount, "matched_route_id": sign.MatchedRouteID},
	})
	return sign, nil
}

func (s *Service) GetSign(ctx context.Context, id string) (HikingSign, error) {
	return s.getSign(ctx, s.db, id)
}

func (s *Service) getSign(ctx context.Context, q db.Querier, id string) (HikingSign, error) {
	sign, err := scanSign(q.QueryRow(ctx, `SELECT `+signColumns+` FROM hiking_signs WHERE id=$1`, id))
	if db.IsNoRows(err) {
		return HikingSign{}, apperr.NotFound(apperr.CodeNotFound, "sign %s not found", id)
	}
	return sign, err
}

// VerifySign counts one corroboration of the sign by verifierID. A verifier
// is only counted once per sign; repeats return the sign unchanged.
func (s *Service) VerifySign(ctx context.Context, id, verifierID string) (HikingSign, error) {
	if strings.TrimSpace(verifierID) == "" {
		return HikingSign{}, apperr.Validation(apperr.CodeInvalidInput, "verifier_id is required")
	}

	for attempt := 1; ; attempt++ {
		sign, counted, err := s.verifyOnce(ctx, id, verifierID)
		if err == nil {
			outcome := "duplicate"
			if counted {
				outcome = "counted"
				activity.Emit(ctx, s.recorder, activity.Event{
					Name:     activity.SignVerified,
					UserID:   verifierID,
					EntityID: sign.ID,
					Data:     map[string]any{"verification_count": sign.VerificationCount, "is_verified": sign.IsVerified},
				})
			}
			metrics.SignVerificationsTotal.WithLabelValues(outcome).Inc()
			return sign, nil
		}
		if db.IsForeignKeyViolation(err) {
			return HikingSign{}, apperr.NotFound(apperr.CodeNotFound, "sign %s not found", id)
		}
		if !db.IsRetryable(err) {
			return HikingSign{}, err
		}
		if attempt == maxVerifyAttempts {
			metrics.SignVerificationsTotal.WithLabelValues("conflict").Inc()
			return HikingSign{}, apperr.Concurrency(err, "verification of sign %s kept conflicting; retry later", id)
		}
		log.WithError(err).WithFields(log.Fields{
			"sign_id": id,
			"attempt": attempt,
		}).Warn("sign verification conflicted, retrying")
	}
}

// incrementVerificationSQL counts one verification in place. The row lock
// taken by the UPDATE serialises concurrent verifiers.
const incrementVerificationSQL = `
	UPDATE hiking_signs SET
		verification_count = verification_count + 1,
		is_verified = is_verified OR verification_count + 1 >= $2,
		verification_date = COALESCE(verification_date,
			CASE WHEN verification_count + 1 >= $2 THEN now() END),
		last_updated_by = $3
	WHERE id=$1
	RETURNING ` + signColumns

func (s *Service) verifyOnce(ctx context.Context, id, verifierID string) (HikingSign, bool, error) {
	var sign HikingSign
	var counted bool
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO sign_verifications (sign_id, verifier_id) VALUES ($1,$2)
			ON CONFLICT DO NOTHING
		`, id, verifierID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			sign, err = s.getSign(ctx, tx, id)
			return err
		}

		row := tx.QueryRow(ctx, incrementVerificationSQL, id, s.opts.Threshold, verifierID)
		sign, err = scanSign(row)
		if db.IsNoRows(err) {
			return apperr.NotFound(apperr.CodeNotFound, "sign %s not found", id)
		}
		counted = err == nil
		return err
	})
	return sign, counted, err
}

func (s *Service) NearbySigns(ctx context.Context, origin geo.Point, radiusMeters float64) ([]NearbySign, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if radiusMeters < 0 {
		return nil, apperr.Validation(apperr.CodeInvalidInput, "radius must not be negative")
	}
	box := geo.BoundingBox(origin, radiusMeters/1000)
	rows, err := s.db.Query(ctx, `
		SELECT `+signColumns+`
		FROM hiking_signs
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []HikingSign
	for rows.Next() {
		sign, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, sign)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matches, err := geo.Nearby(origin, radiusMeters, candidates)
	if err != nil {
		return nil, err
	}
	out := make([]NearbySign, 0, len(matches))
	for _, m := range matches {
		out = append(out, NearbySign{HikingSign: m.Item, DistanceKm: m.DistanceKm})
	}
	return out, nil
}

// MatchSign re-runs rank and route matching against the current graph.
func (s *Service) MatchSign(ctx context.Context, id string) (HikingSign, error) {
	sign, err := s.GetSign(ctx, id)
	if err != nil {
		return HikingSign{}, err
	}
	g, err := s.graphs.Snapshot(ctx)
	if err != nil {
		return HikingSign{}, err
	}
	rankID, routeID := Match(g, sign, s.opts.MatchRadiusKm)

	row := s.db.QueryRow(ctx, `
		UPDATE hiking_signs SET matched_rank_id=$2, matched_route_id=$3
		WHERE id=$1
		RETURNING `+signColumns, id, optional(rankID), optional(routeID))
	sign, err = scanSign(row)
	if db.IsNoRows(err) {
		return HikingSign{}, apperr.NotFound(apperr.CodeNotFound, "sign %s not found", id)
	}
	return sign, err
}

func (s *Service) AttachPhoto(ctx context.Context, id, url string) (HikingSign, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE hiking_signs SET photo_url=$2
		WHERE id=$1
		RETURNING `+signColumns, id, url)
	sign, err := scanSign(row)
	if db.IsNoRows(err) {
		return HikingSign{}, apperr.NotFound(apperr.CodeNotFound, "sign %s not found", id)
	}
	return sign, err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSign(row scanner) (HikingSign, error) {
	var s HikingSign
	err := row.Scan(&s.ID, &s.UserID, &s.Lat, &s.Lng, &s.Description, &s.FromLocation, &s.ToLocation, &s.FareAmount,
		&s.PhotoURL, &s.VerificationCount, &s.IsVerified, &s.VerificationDate, &s.LastUpdatedBy, &s.MatchedRankID,
		&s.MatchedRouteID, &s.CreatedAt)
	return s, err
}
