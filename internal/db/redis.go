package db

import (
	"context"

	"github.com/Bee-Intelligence/Bee-Rank-API-sub000/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis returns a client for cfg.RedisAddr, or nil when redis is not
// configured or does not answer a ping. Callers treat nil as "run without redis".
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unreachable, continuing without it")
		_ = client.Close()
		return nil
	}
	return client
}
