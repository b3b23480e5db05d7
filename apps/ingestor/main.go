package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/overflight/internal/audit"
	"github.com/smallbiznis/overflight/internal/clock"
	"github.com/smallbiznis/overflight/internal/compute"
	"github.com/smallbiznis/overflight/internal/config"
	"github.com/smallbiznis/overflight/internal/flight"
	"github.com/smallbiznis/overflight/internal/ingestion"
	"github.com/smallbiznis/overflight/internal/invoice"
	"github.com/smallbiznis/overflight/internal/migration"
	"github.com/smallbiznis/overflight/internal/observability"
	"github.com/smallbiznis/overflight/internal/operator"
	"github.com/smallbiznis/overflight/internal/queue"
	"github.com/smallbiznis/overflight/pkg/db"
	"go.uber.org/fx"
)

// Queue-drain worker only. Run as many replicas as throughput needs; the
// backlog table is the unit of coordination.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		queue.Module,
		flight.Module,
		compute.Module,
		operator.Module,
		audit.Module,
		invoice.Module,
		ingestion.Module,

		// No scheduler module!
		fx.Invoke(StartIngestion),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func StartIngestion(lc fx.Lifecycle, p *ingestion.Pipeline) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go p.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
