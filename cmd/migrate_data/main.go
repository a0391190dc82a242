package main

import (
	"context"

	"outreach-desk/internal/config"
	"outreach-desk/internal/database"
	"outreach-desk/internal/logging"
)

// Copies the outreach tables from the sqlite file at DB_PATH into the
// postgres database described by DB_HOST and friends.
func main() {
	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	// 1. Connect to SQLite (Source)
	sqliteDB, err := database.OpenSQLite(cfg.DBPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to SQLite")
	}
	logger.WithField("path", cfg.DBPath).Info("connected to SQLite")

	// 2. Connect to PostgreSQL (Destination)
	cfg.DBDriver = config.DriverPostgres
	pgDB, err := database.Open(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to PostgreSQL")
	}

	logger.Info("starting data migration")
	ctx := context.Background()
	if _, err := database.CopyAll(ctx, sqliteDB, pgDB, logger); err != nil {
		logger.WithError(err).Fatal("migration failed")
	}

	if err := database.SyncSequences(ctx, pgDB, logger); err != nil {
		logger.WithError(err).Warn("run sync_sequences again after fixing the error")
	}
	logger.Info("migration completed")
}
