package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/linkrail/linkrail/internal/config"
	cddomain "github.com/linkrail/linkrail/internal/customdomain/domain"
	tldomain "github.com/linkrail/linkrail/internal/trackinglink/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned migrations are written for postgres. Other dialects
			// are used for local development only and get the ORM schema.
			return conn.AutoMigrate(
				&cddomain.CustomDomain{},
				&tldomain.Offer{},
				&tldomain.TrackingLink{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
