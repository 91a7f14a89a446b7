package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PlansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_plans_total",
		Help: "Journey planning requests by resulting journey type.",
	}, []string{"journey_type"})

	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "journey_plan_duration_seconds",
		Help:    "Time spent computing a journey plan, excluding snapshot loading.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journey_transitions_total",
		Help: "Journey status transitions by target status.",
	}, []string{"status"})

	SignVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fare_sign_verifications_total",
		Help: "Fare sign verification attempts by outcome.",
	}, []string{"outcome"})

	GraphBuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rank_graph_builds_total",
		Help: "Number of rank graph snapshots built from persisted routes.",
	})
)

func RegisterRoutes(r fiber.Router) {
	r.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
