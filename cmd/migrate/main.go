package main

import (
	"flag"
	"fmt"
	"os"

	"glucoach/internal/config"
	"glucoach/internal/infra"
	"glucoach/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	var (
		down    = flag.Bool("down", false, "roll back the last migration")
		version = flag.Bool("version", false, "print the current migration version")
		path    = flag.String("path", "migrations", "directory holding the SQL migrations")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := utils.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Database.Driver != "postgres" {
		log.Fatal("migrations only run against postgres", zap.String("driver", cfg.Database.Driver))
	}

	switch {
	case *version:
		v, dirty, err := infra.MigrationVersion(cfg.Database.URL, *path)
		if err != nil {
			log.Fatal("failed to read migration version", zap.Error(err))
		}
		log.Info("migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
	case *down:
		if err := infra.RollbackMigrations(cfg.Database.URL, *path); err != nil {
			log.Fatal("rollback failed", zap.Error(err))
		}
		log.Info("rolled back one migration")
	default:
		if err := infra.RunMigrations(cfg.Database.URL, *path); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		log.Info("migrations applied")
	}
}
