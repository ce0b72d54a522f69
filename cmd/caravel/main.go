// @title           Caravel API
// @version         1.0
// @description     Direct-debit presentment and reconciliation for the Southtrip back office.

// @contact.name   Backoffice Platform
// @contact.email  platform@southtrip.example

// @host      localhost:8080
// @BasePath  /api
// @Schemes 	http https

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/southtrip/caravel/internal/audit"
	"github.com/southtrip/caravel/internal/clock"
	"github.com/southtrip/caravel/internal/config"
	"github.com/southtrip/caravel/internal/directdebit"
	"github.com/southtrip/caravel/internal/events"
	"github.com/southtrip/caravel/internal/fiscal"
	"github.com/southtrip/caravel/internal/ledger"
	"github.com/southtrip/caravel/internal/migration"
	"github.com/southtrip/caravel/internal/observability"
	"github.com/southtrip/caravel/internal/seed"
	"github.com/southtrip/caravel/internal/server"
	"github.com/southtrip/caravel/internal/storage"
	"github.com/southtrip/caravel/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		clock.Module,
		storage.Module,
		fiscal.Module,
		events.Module,
		audit.Module,
		ledger.Module,
		directdebit.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.Bootstrap.SeedDemoAgency && !cfg.IsProduction() {
				return seed.EnsureDemoAgency(conn, cfg.DirectDebit.Channel)
			}
			return nil
		}),
		server.Module,
	)
	app.Run()
}
