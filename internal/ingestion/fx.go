package ingestion

import (
	"time"

	computedomain "github.com/smallbiznis/overflight/internal/compute/domain"
	"github.com/smallbiznis/overflight/internal/config"
	flightdomain "github.com/smallbiznis/overflight/internal/flight/domain"
	invoicedomain "github.com/smallbiznis/overflight/internal/invoice/domain"
	queuedomain "github.com/smallbiznis/overflight/internal/queue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Queue  queuedomain.Repository
	Source flightdomain.Source
	Engine computedomain.Engine
	Writer invoicedomain.Writer
}

func provide(p Params) *Pipeline {
	return NewPipeline(Config{
		BatchSize:    p.Config.IngestBatchSize,
		Workers:      p.Config.IngestWorkers,
		PollInterval: time.Duration(p.Config.IngestPollInterval) * time.Second,
		MaxRecords:   p.Config.IngestMaxRecords,
		ServiceName:  p.Config.AppName,
	}, p.Log, p.Queue, p.Source, p.Engine, p.Writer)
}

var Module = fx.Module("ingestion",
	fx.Provide(provide),
)
