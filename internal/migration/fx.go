package migration

import (
	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, areas *config.AreasCatalogHolder) error {
		// golang-migrate drives postgres; sqlite test databases build their
		// schema through gorm AutoMigrate inside the tests themselves.
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		}

		return seed.EnsureAreaSources(conn, areas.Get())
	}),
)
