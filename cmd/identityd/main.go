package main

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	cfg := LoadConfig()

	level := glog.Info
	if cfg.Debug {
		level = glog.Debug
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(level),
		glog.WithName("identityd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	if err := run(context.Background(), cfg, lgr); err != nil {
		lgr.Error("identityd terminated", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, lgr *glog.BaseLogger) error {
	db, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*identity.User)(nil))

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(lgr.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(identity.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	repos := identity.NewRepositoryManager(client.DB())
	repos.MustValidate()

	accounts := identity.NewAccounts(repos.Users(), cfg).
		WithLogger(lgr.GetLogger("accounts"))

	controller := identity.NewHTTPController(accounts).
		WithLogger(lgr.GetLogger("http"))
	controller.Debug = cfg.Debug

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       "identityd",
			StrictRouting: false,
		}))

		corsCfg := cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}
		// fiber refuses credentialed CORS on a wildcard origin
		if cfg.CORSOrigins != "*" {
			corsCfg.AllowCredentials = true
		}
		app.Use(cors.New(corsCfg))

		return app
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))

	controller.RegisterRoutes(srv.Router())

	lgr.Info("identityd listening", "addr", cfg.HTTPAddr)
	srv.Serve(cfg.HTTPAddr)

	sig := WaitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	return db.Close()
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
