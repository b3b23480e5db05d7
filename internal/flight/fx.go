package flight

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/overflight/internal/config"
	"github.com/smallbiznis/overflight/internal/flight/domain"
	"github.com/smallbiznis/overflight/internal/flight/source"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("flight",
	fx.Provide(provideRedis),
	fx.Provide(provideSource),
)

func provideRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				// Cache is best effort, the pipeline works without it.
				log.Warn("redis unreachable, flight cache disabled", zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideSource(cfg config.Config, client *redis.Client, log *zap.Logger) domain.Source {
	return source.WithCache(source.NewHTTPSource(cfg.FlightSourceURL), client, log)
}
