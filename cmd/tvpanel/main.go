package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/tvpanel/tvpanel/internal/app"
	"github.com/tvpanel/tvpanel/internal/config"
)

func main() {
	var (
		configPath  string
		migrateOnly bool
		createAdmin string
	)
	flag.StringVar(&configPath, "config", "", "path to config.yaml (default $TVPANEL_CONFIG or ./config.yaml)")
	flag.BoolVar(&migrateOnly, "migrate", false, "run database migrations and exit")
	flag.StringVar(&createAdmin, "create-admin", "", "create an admin or reset its password, as username:password")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.AppConfig{ConfigPath: configPath}
	switch {
	case migrateOnly:
		if err := app.Migrate(ctx, cfg); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("migration completed")
	case createAdmin != "":
		username, password, ok := strings.Cut(createAdmin, ":")
		if !ok {
			log.Fatal("-create-admin expects username:password")
		}
		if err := app.CreateAdmin(ctx, cfg, app.CreateAdminParams{Username: username, Password: password}); err != nil {
			log.WithError(err).Fatal("create admin failed")
		}
	default:
		if err := app.RunServer(ctx, cfg); err != nil {
			log.WithError(err).Fatal("server stopped")
		}
	}
}
