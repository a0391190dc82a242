package main

import (
	"context"

	"outreach-desk/internal/config"
	"outreach-desk/internal/database"
	"outreach-desk/internal/logging"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.DBDriver != config.DriverPostgres {
		logger.WithField("driver", cfg.DBDriver).Fatal("sequence sync only applies to postgres")
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	logger.Info("syncing PostgreSQL sequences")
	if err := database.SyncSequences(context.Background(), db, logger); err != nil {
		logger.WithError(err).Fatal("sequence sync incomplete")
	}
	logger.Info("DONE!")
}
