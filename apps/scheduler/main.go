package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/overflight/internal/audit"
	"github.com/smallbiznis/overflight/internal/clock"
	"github.com/smallbiznis/overflight/internal/config"
	"github.com/smallbiznis/overflight/internal/consolidation"
	"github.com/smallbiznis/overflight/internal/invoice"
	"github.com/smallbiznis/overflight/internal/joblock"
	"github.com/smallbiznis/overflight/internal/observability"
	"github.com/smallbiznis/overflight/internal/operator"
	"github.com/smallbiznis/overflight/internal/overdue"
	"github.com/smallbiznis/overflight/internal/scheduler"
	"github.com/smallbiznis/overflight/pkg/db"
	"go.uber.org/fx"
)

// Scheduled jobs only. Safe to run replicated: each job takes a
// cross-instance advisory lock before doing any work.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		operator.Module,
		audit.Module,
		invoice.Module,

		joblock.Module,
		consolidation.Module,
		overdue.Module,
		scheduler.Module,

		// No ingestion module!
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
