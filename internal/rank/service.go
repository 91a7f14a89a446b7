package rank

import (
	"context"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/db"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const rankColumns = `id, name, latitude, longitude, city, province, capacity, active, created_at, updated_at`

type Service struct {
	db       db.Querier
	onChange func()
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// OnChange registers fn to run after every successful rank mutation.
func (s *Service) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Service) CreateRank(ctx context.Context, input CreateRankInput) (TaxiRank, error) {
	if err := (geo.Point{Lat: input.Lat, Lon: input.Lng}).Validate(); err != nil {
		return TaxiRank{}, err
	}
	rank := TaxiRank{
		ID:       uuid.NewString(),
		Name:     input.Name,
		Lat:      input.Lat,
		Lng:      input.Lng,
		City:     input.City,
		Province: input.Province,
		Capacity: input.Capacity,
		Active:   true,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO taxi_ranks (id, name, latitude, longitude, city, province, capacity, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at
	`, rank.ID, rank.Name, rank.Lat, rank.Lng, rank.City, rank.Province, rank.Capacity, rank.Active)
	if err := row.Scan(&rank.CreatedAt, &rank.UpdatedAt); err != nil {
		return TaxiRank{}, err
	}
	s.changed()
	return rank, nil
}

func (s *Service) GetRank(ctx context.Context, id string) (TaxiRank, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rankColumns+` FROM taxi_ranks WHERE id=$1`, id)
	rank, err := scanRank(row)
	if db.IsNoRows(err) {
		return TaxiRank{}, apperr.NotFound(apperr.CodeUnknownRank, "rank %s not found", id)
	}
	return rank, err
}

func (s *Service) UpdateRank(ctx context.Context, id string, patch RankPatch) (TaxiRank, error) {
	rank, err := s.GetRank(ctx, id)
	if err != nil {
		return TaxiRank{}, err
	}
	patch.Apply(&rank)
	if err := rank.Location().Validate(); err != nil {
		return TaxiRank{}, err
	}

	row := s.db.QueryRow(ctx, `
		UPDATE taxi_ranks
		SET name=$2, latitude=$3, longitude=$4, city=$5, province=$6, capacity=$7, active=$8, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, rank.ID, rank.Name, rank.Lat, rank.Lng, rank.City, rank.Province, rank.Capacity, rank.Active)
	if err := row.Scan(&rank.UpdatedAt); err != nil {
		return TaxiRank{}, err
	}
	s.changed()
	return rank, nil
}

// DeactivateRank hides the rank from planning and proximity search. Routes that
// touch it drop out of the graph with it.
func (s *Service) DeactivateRank(ctx context.Context, id string) (TaxiRank, error) {
	inactive := false
	rank, err := s.UpdateRank(ctx, id, RankPatch{Active: &inactive})
	if err != nil {
		return TaxiRank{}, err
	}
	log.WithField("rank_id", id).Info("rank deactivated")
	return rank, nil
}

// DeleteRank removes a rank that nothing references. Ranks used by routes or
// journeys can only be deactivated.
func (s *Service) DeleteRank(ctx context.Context, id string) error {
	var referenced bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transit_routes
			WHERE origin_rank_id = $1 OR destination_rank_id = $1
		)
	`, id).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return apperr.Conflict(apperr.CodeRankInUse, "rank %s is referenced by routes; deactivate it instead", id)
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM taxi_ranks WHERE id=$1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Conflict(apperr.CodeRankInUse, "rank %s is referenced by journeys; deactivate it instead", id)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(apperr.CodeUnknownRank, "rank %s not found", id)
	}
	s.changed()
	return nil
}

func (s *Service) ListActiveRanks(ctx context.Context) ([]TaxiRank, error) {
	rows, err := s.db.Query(ctx, `SELECT `+rankColumns+` FROM taxi_ranks WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranks []TaxiRank
	for rows.Next() {
		rank, err := scanRank(rows)
		if err != nil {
			return nil, err
		}
		ranks = append(ranks, rank)
	}
	return ranks, rows.Err()
}

// NearbyRanks returns active ranks within radiusMeters of point, closest first.
func (s *Service) NearbyRanks(ctx context.Context, point geo.Point, radiusMeters float64) ([]NearbyRank, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	box := geo.BoundingBox(point, radiusMeters/1000)
	rows, err := s.db.Query(ctx, `
		SELECT `+rankColumns+`
		FROM taxi_ranks
		WHERE active AND latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
	`, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []TaxiRank
	for rows.Next() {
		rank, err := scanRank(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rank)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matches, err := geo.Nearby(point, radiusMeters, candidates)
	if err != nil {
		return nil, err
	}
	results := make([]NearbyRank, 0, len(matches))
	for _, m := range matches {
		results = append(results, NearbyRank{TaxiRank: m.Item, DistanceKm: m.DistanceKm})
	}
	return results, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRank(row scanner) (TaxiRank, error) {
	var r TaxiRank
	err := row.Scan(&r.ID, &r.Name, &r.Lat, &r.Lng, &r.City, &r.Province, &r.Capacity, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
