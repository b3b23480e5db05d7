package compute

import (
	"github.com/smallbiznis/overflight/internal/compute/domain"
	"github.com/smallbiznis/overflight/internal/compute/engine"
	"github.com/smallbiznis/overflight/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("compute",
	fx.Provide(func(cfg config.Config) domain.Engine {
		return engine.NewHTTPEngine(cfg.ComputeURL)
	}),
)
