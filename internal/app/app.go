// Package app assembles the stores and services both binaries run on.
package app

import (
	"outreach-desk/internal/config"
	"outreach-desk/internal/database"
	"outreach-desk/internal/nurture"
	"outreach-desk/internal/snapshot"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	DB        *gorm.DB
	Snapshots snapshot.Store
	Master    nurture.MasterStore
	Differ    *snapshot.Differ
	Service   *nurture.Service
}

// New validates cfg, opens the database and selects the configured backends.
func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Snapshots: SnapshotStore(cfg, db),
		Master:    MasterStore(cfg, db),
	}
	a.Differ = snapshot.NewDiffer(a.Snapshots, logger)
	a.Service = nurture.NewService(a.Master, nurture.NewSessionRepository(db), logger)

	logger.WithFields(logrus.Fields{
		"snapshot_backend": cfg.SnapshotBackend,
		"master_backend":   cfg.MasterBackend,
	}).Info("stores ready")
	return a, nil
}

func SnapshotStore(cfg *config.Config, db *gorm.DB) snapshot.Store {
	if cfg.SnapshotBackend == config.BackendDB {
		return snapshot.NewGormStore(db)
	}
	return snapshot.NewFileStore(cfg.SnapshotDir)
}

func MasterStore(cfg *config.Config, db *gorm.DB) nurture.MasterStore {
	if cfg.MasterBackend == config.BackendDB {
		return nurture.NewGormStore(db)
	}
	return nurture.NewXLSXStore(cfg.MasterFile)
}

// Close releases the database connection.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
