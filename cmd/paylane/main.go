package main

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/craftbase/paylane/internal/config"
	"github.com/craftbase/paylane/internal/events"
	"github.com/craftbase/paylane/internal/gateway"
	"github.com/craftbase/paylane/internal/invoice"
	"github.com/craftbase/paylane/internal/locker"
	"github.com/craftbase/paylane/internal/logger"
	"github.com/craftbase/paylane/internal/migration"
	obsmetrics "github.com/craftbase/paylane/internal/observability/metrics"
	"github.com/craftbase/paylane/internal/project"
	"github.com/craftbase/paylane/internal/server"
	"github.com/craftbase/paylane/internal/task"
	"github.com/craftbase/paylane/internal/wallet"
	"github.com/craftbase/paylane/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		migration.Module,
		obsmetrics.Module,
		events.Module,
		locker.Module,
		gateway.Module,

		task.Module,
		project.Module,
		invoice.Module,
		wallet.Module,

		server.Module,
	)
	app.Run()
}

// newSnowflakeNode derives the worker id from the hostname so replicas in the
// same deployment mint non-colliding ids without coordination.
func newSnowflakeNode() (*snowflake.Node, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "paylane"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return snowflake.NewNode(int64(h.Sum32() % 1024))
}
