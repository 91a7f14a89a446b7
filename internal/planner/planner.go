// Package planner turns an origin and destination into the best journey over
// the current rank graph.
package planner

import (
	"context"
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/graph"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/metrics"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/shared/geo"

	log "github.com/sirupsen/logrus"
)

type GraphSource interface {
	Snapshot(ctx context.Context) (*graph.Graph, error)
}

type Options struct {
	SnapRadiusKm     float64
	DefaultMaxHops   int
	MaxHopsLimit     int
	MaxExploredPaths int
}

func DefaultOptions() Options {
	return Options{SnapRadiusKm: 2, DefaultMaxHops: 3, MaxHopsLimit: 6, MaxExploredPaths: 50000}
}

type Pathfinder struct {
	graphs GraphSource
	opts   Options
}

func NewPathfinder(graphs GraphSource, opts Options) *Pathfinder {
	return &Pathfinder{graphs: graphs, opts: opts}
}

func (p *Pathfinder) Plan(ctx context.Context, req Request) (PlanResult, error) {
	maxHops, err := p.maxHops(req.MaxHops)
	if err != nil {
		return PlanResult{}, err
	}
	if err := checkEndpoint("origin", req.Origin); err != nil {
		return PlanResult{}, err
	}
	if err := checkEndpoint("destination", req.Destination); err != nil {
		return PlanResult{}, err
	}

	g, err := p.graphs.Snapshot(ctx)
	if err != nil {
		return PlanResult{}, err
	}

	origin, originSnap, err := p.resolve(g, "origin", req.Origin)
	if err != nil {
		return PlanResult{}, err
	}
	dest, destSnap, err := p.resolve(g, "destination", req.Destination)
	if err != nil {
		return PlanResult{}, err
	}
	if origin == dest {
		return PlanResult{}, apperr.Validation(apperr.CodeSameOriginDestination, "origin and destination resolve to the same rank %s", origin)
	}

	start := time.Now()
	res := Search(g, origin, dest, maxHops, p.opts.MaxExploredPaths)
	metrics.PlanDuration.Observe(time.Since(start).Seconds())
	metrics.PlansTotal.WithLabelValues(string(res.JourneyType)).Inc()

	res.OriginSnapKm = originSnap
	res.DestinationSnapKm = destSnap

	log.WithFields(log.Fields{
		"origin":       origin,
		"destination":  dest,
		"journey_type": res.JourneyType,
		"hops":         res.HopCount,
		"max_hops":     maxHops,
	}).Info("journey planned")
	return res, nil
}

func (p *Pathfinder) maxHops(requested *int) (int, error) {
	if requested == nil {
		return p.opts.DefaultMaxHops, nil
	}
	n := *requested
	if n < 0 || (p.opts.MaxHopsLimit > 0 && n > p.opts.MaxHopsLimit) {
		return 0, apperr.Validation(apperr.CodeInvalidMaxHops, "max_hops must be between 0 and %d", p.opts.MaxHopsLimit)
	}
	return n, nil
}

func checkEndpoint(name string, e Endpoint) error {
	if (e.RankID == "") == (e.Point == nil) {
		return apperr.Validation(apperr.CodeInvalidInput, "%s needs exactly one of rank_id or point", name)
	}
	if e.Point != nil {
		return e.Point.Validate()
	}
	return nil
}

// resolve maps an endpoint to an active rank. For coordinates it also returns
// how far the point was snapped.
func (p *Pathfinder) resolve(g *graph.Graph, name string, e Endpoint) (string, *float64, error) {
	if e.RankID != "" {
		if _, ok := g.Rank(e.RankID); !ok {
			return "", nil, apperr.NotFound(apperr.CodeUnknownRank, "%s rank %s is unknown or inactive", name, e.RankID)
		}
		return e.RankID, nil, nil
	}
	m, ok, err := geo.Nearest(*e.Point, p.opts.SnapRadiusKm*1000, g.Ranks())
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, apperr.NotFound(apperr.CodeNoRankNearLocation, "no active rank within %.1f km of the %s", p.opts.SnapRadiusKm, name)
	}
	d := m.DistanceKm
	return m.Item.ID, &d, nil
}
