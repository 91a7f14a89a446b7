package server

import (
	"context"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/activity"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/apperr"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/auth"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/config"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/graph"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/journey"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/metrics"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/planner"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/rank"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/route"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/sign"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/storage"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Graphs   *graph.Cache
	Recorder activity.Recorder
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, recorder activity.Recorder) *Server {
	app := fiber.New(fiber.Config{ErrorHandler: apperr.ErrorHandler})
	app.Use(recover.New())
	app.Use(logger.New())

	if recorder == nil {
		recorder = activity.Nop{}
	}

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       db,
		Redis:    redisClient,
		Stream:   stream.NewHub(redisClient),
		Recorder: recorder,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	metrics.RegisterRoutes(s.App)

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	ranks := rank.NewService(s.DB)
	routes := route.NewService(s.DB)
	s.Graphs = graph.NewCache(ranks, routes, s.Cfg.GraphCacheTTL)
	ranks.OnChange(s.Graphs.Invalidate)
	routes.OnChange(s.Graphs.Invalidate)

	pathfinder := planner.NewPathfinder(s.Graphs, plannerOptions(s.Cfg))
	users := auth.NewUsers(s.DB)
	assets := storage.NewService(s.DB, s.Cfg.AssetBaseURL)
	journeys := journey.NewService(s.DB, users, s.Stream, s.Recorder)
	routes.OnWithdraw(func(ctx context.Context, w route.Withdrawal) {
		journeys.AnnounceCancelled(ctx, w.CancelledJourneyIDs, route.WithdrawnReason)
	})
	signs := sign.NewService(s.DB, s.Graphs, s.Recorder, sign.Options{
		Threshold:     s.Cfg.VerificationThreshold,
		MatchRadiusKm: s.Cfg.SnapRadiusKm,
	})

	auth.RegisterRoutes(s.App.Group("/users"), users, jwtMiddleware)
	rank.RegisterRoutes(s.App.Group("/ranks"), ranks, jwtMiddleware)
	route.RegisterRoutes(s.App.Group("/routes"), routes, jwtMiddleware)
	planner.RegisterRoutes(s.App.Group("/plans"), pathfinder)
	journey.RegisterRoutes(s.App.Group("/journeys"), journeys, pathfinder, jwtMiddleware)
	sign.RegisterRoutes(s.App.Group("/signs"), signs, assets, jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage"), assets, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// plannerOptions fills unset planner settings from the defaults.
func plannerOptions(cfg config.Config) planner.Options {
	opts := planner.DefaultOptions()
	if cfg.SnapRadiusKm > 0 {
		opts.SnapRadiusKm = cfg.SnapRadiusKm
	}
	if cfg.DefaultMaxHops > 0 {
		opts.DefaultMaxHops = cfg.DefaultMaxHops
	}
	if cfg.MaxHopsLimit > 0 {
		opts.MaxHopsLimit = cfg.MaxHopsLimit
	}
	if cfg.MaxExploredPaths > 0 {
		opts.MaxExploredPaths = cfg.MaxExploredPaths
	}
	if opts.DefaultMaxHops > opts.MaxHopsLimit {
		opts.DefaultMaxHops = opts.MaxHopsLimit
	}
	return opts
}
