package invoice

import (
	"github.com/smallbiznis/overflight/internal/invoice/repository"
	"github.com/smallbiznis/overflight/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
