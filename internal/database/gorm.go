package database

import (
	"fmt"
	"time"

	"outreach-desk/internal/config"
	"outreach-desk/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Open connects to the configured database and runs auto-migration.
func Open(cfg *config.Config, logger *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(PostgresDSN(cfg))
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := OpenDialector(dialector, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "database: failed to open %s", cfg.DBDriver)
	}

	logger.WithField("driver", cfg.DBDriver).Info("database connected and migrated")
	return db, nil
}

// OpenSQLite opens a sqlite database at path, used by tooling that reads a
// second database next to the configured one.
func OpenSQLite(path string, logger *logrus.Logger) (*gorm.DB, error) {
	return OpenDialector(sqlite.Open(path), logger)
}

func OpenDialector(dialector gorm.Dialector, logger *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(logger),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, errors.Wrap(err, "database: auto-migration failed")
	}

	return db, nil
}

func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
}

// NewGormLogger routes gorm output through logrus. SQL traces only appear at debug level.
func NewGormLogger(logger *logrus.Logger) gormLogger.Interface {
	level := gormLogger.Warn
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		level = gormLogger.Info
	}

	return gormLogger.New(logger, gormLogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
