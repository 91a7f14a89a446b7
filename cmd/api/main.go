package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/activity"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/config"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/db"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/logging"
	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	dialTimeout     = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

var (
	mainDepsProvider = defaultDeps
	mainRunner       = realMain
)

func main() {
	mainRunner(mainDepsProvider())
}

// backends are the long-lived connections Run owns once it starts. Redis and
// the recorder are optional; a nil recorder means activity is dropped.
type backends struct {
	PG       *pgxpool.Pool
	Redis    *redis.Client
	Recorder activity.Recorder
}

func (b backends) close() {
	if closer, ok := b.Recorder.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("closing activity recorder")
		}
	}
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.PG != nil {
		b.PG.Close()
	}
}

type dialAMQPFunc func(ctx context.Context, url, queue string) (*activity.AMQPRecorder, error)

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	migrate         func(context.Context, db.Querier) error
	connectRedis    func(config.Config) *redis.Client
	dialAMQP        dialAMQPFunc
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, backends, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		migrate:         db.Migrate,
		connectRedis:    db.ConnectRedis,
		dialAMQP:        activity.DialAMQP,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	logging.Setup(cfg)

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.WithError(err).Error("postgres connection failed")
		return
	}
	if err := deps.migrate(context.Background(), pg); err != nil {
		log.WithError(err).Error("schema migration failed")
		pg.Close()
		return
	}

	rdb := deps.connectRedis(cfg)
	b := backends{PG: pg, Redis: rdb, Recorder: activityRecorder(cfg, rdb, deps.dialAMQP)}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, b, signals, nil); err != nil {
		log.WithError(err).Error("server exited with error")
	}
}

// activityRecorder prefers the AMQP broker, then a redis stream, then nothing.
func activityRecorder(cfg config.Config, rdb *redis.Client, dial dialAMQPFunc) activity.Recorder {
	if cfg.AMQPURL != "" && dial != nil {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		rec, err := dial(ctx, cfg.AMQPURL, cfg.ActivityQueue)
		if err == nil {
			log.WithField("queue", cfg.ActivityQueue).Info("activity events go to amqp")
			return rec
		}
		log.WithError(err).Warn("amqp dial failed; falling back")
	}
	if rdb != nil {
		log.WithField("stream", cfg.ActivityStream).Info("activity events go to redis stream")
		return activity.NewRedisRecorder(rdb, cfg.ActivityStream)
	}
	return activity.Nop{}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run serves the API until a signal arrives, ctx ends or the listener fails,
// then shuts the app down and releases b.
func Run(ctx context.Context, cfg config.Config, b backends, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, b.PG, b.Redis, b.Recorder)
	defer b.close()

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case sig := <-signals:
		log.WithField("signal", sig).Info("shutting down")
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = srv.Stream.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := shutdownFn(srv.App, shutdownCtx)
	return errors.Join(err, srv.Stream.Close())
}
