package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/linkrail/linkrail/internal/clock"
	"github.com/linkrail/linkrail/internal/config"
	"github.com/linkrail/linkrail/internal/dnscache"
	"github.com/linkrail/linkrail/internal/migration"
	"github.com/linkrail/linkrail/internal/observability"
	"github.com/linkrail/linkrail/internal/resolver"
	"github.com/linkrail/linkrail/internal/server"
	"github.com/linkrail/linkrail/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		dnscache.Module,
		resolver.Module,

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
