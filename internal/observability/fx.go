package observability

import (
	"github.com/smallbiznis/overflight/internal/config"
	"github.com/smallbiznis/overflight/internal/observability/logger"
	"github.com/smallbiznis/overflight/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
	),
	fx.Invoke(ensureMetrics),
)

func provideLoggerConfig(cfg config.Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.AppName,
		Environment:         cfg.Environment,
		Version:             cfg.AppVersion,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Environment != "production",
	}
}

func ensureMetrics(cfg config.Config) {
	metrics.WithConfig(metrics.Config{
		ServiceName: cfg.AppName,
		Environment: cfg.Environment,
	})
}
