package operator

import (
	"github.com/smallbiznis/overflight/internal/operator/match"
	"github.com/smallbiznis/overflight/internal/operator/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("operator",
	fx.Provide(repository.Provide),
	fx.Provide(match.NewChain),
)
