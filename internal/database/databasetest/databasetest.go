// Package databasetest opens throwaway migrated databases for package tests.
package databasetest

import (
	"io"
	"path/filepath"
	"testing"

	"outreach-desk/internal/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Logger returns a logger that discards output.
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Open returns a migrated sqlite database living in the test's temp dir.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "outreach.db"), Logger())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}
