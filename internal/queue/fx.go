package queue

import (
	"github.com/smallbiznis/overflight/internal/queue/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("queue",
	fx.Provide(repository.Provide),
)
