package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/makoban/koubo-navi/internal/clock"
	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/migration"
	"github.com/makoban/koubo-navi/internal/observability"
	"github.com/makoban/koubo-navi/internal/server"
	"github.com/makoban/koubo-navi/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)

	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	return snowflake.NewNode(nodeID)
}
