package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/peakshop/tollgate/internal/clock"
	"github.com/peakshop/tollgate/internal/config"
	"github.com/peakshop/tollgate/internal/migration"
	"github.com/peakshop/tollgate/internal/observability"
	"github.com/peakshop/tollgate/internal/server"
	"github.com/peakshop/tollgate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
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
