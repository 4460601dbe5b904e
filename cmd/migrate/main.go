package main

import (
	"github.com/sirupsen/logrus"

	"cardroom-server/internal/config"
	"cardroom-server/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}

	database, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to database")
	}

	if err := db.Migrate(database, cfg.MigrationsPath); err != nil {
		logrus.WithError(err).Fatal("could not run migrations")
	}

	logrus.Info("migrations complete")
}
