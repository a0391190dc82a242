package database

import (
	"context"

	"outreach-desk/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const copyBatchSize = 500

// CopyResult is the number of rows copied per table.
type CopyResult map[string]int

// CopyAll copies every outreach table from src to dst, parents before
// children. Each table is copied in its own transaction.
func CopyAll(ctx context.Context, src, dst *gorm.DB, logger *logrus.Logger) (CopyResult, error) {
	result := CopyResult{}
	steps := []func() error{
		func() error { return copyTable[models.Snapshot](ctx, src, dst, logger, result) },
		func() error { return copyTable[models.SnapshotCustomer](ctx, src, dst, logger, result) },
		func() error { return copyTable[models.MasterRecord](ctx, src, dst, logger, result) },
		func() error { return copyTable[models.MasterSend](ctx, src, dst, logger, result) },
		func() error { return copyTable[models.LeadSession](ctx, src, dst, logger, result) },
		func() error { return copyTable[models.SessionRow](ctx, src, dst, logger, result) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return result, err
		}
	}
	return result, nil
}

type tabler interface {
	TableName() string
}

func copyTable[T tabler](ctx context.Context, src, dst *gorm.DB, logger *logrus.Logger, result CopyResult) error {
	var model T
	table := model.TableName()
	logger.WithField("table", table).Info("migrating table")

	var rows []T
	if err := src.WithContext(ctx).Omit(clause.Associations).Find(&rows).Error; err != nil {
		return errors.Wrapf(err, "database: failed to read %s", table)
	}

	if len(rows) > 0 {
		err := dst.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(&rows, copyBatchSize).Error
		})
		if err != nil {
			return errors.Wrapf(err, "database: failed to write %s", table)
		}
	}

	result[table] = len(rows)
	logger.WithFields(logrus.Fields{"table": table, "rows": len(rows)}).Info("table migrated")
	return nil
}

// SequenceTables are the tables with an auto-increment id column.
var SequenceTables = []string{
	models.SnapshotCustomer{}.TableName(),
	models.MasterSend{}.TableName(),
	models.SessionRow{}.TableName(),
}

// SyncSequences moves postgres id sequences past the largest copied id so
// new inserts do not collide with migrated rows.
func SyncSequences(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	var failed int
	for _, table := range SequenceTables {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := db.WithContext(ctx).Exec(query).Error; err != nil {
			logger.WithError(err).WithField("table", table).Error("failed to sync sequence")
			failed++
			continue
		}
		logger.WithField("table", table).Info("sequence synced")
	}
	if failed > 0 {
		return errors.Errorf("database: %d sequence(s) failed to sync", failed)
	}
	return nil
}
