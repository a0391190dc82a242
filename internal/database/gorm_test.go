package database_test

import (
	"testing"

	"outreach-desk/internal/config"
	"outreach-desk/internal/database"
	"outreach-desk/internal/database/databasetest"
	"outreach-desk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMigratesAllTables(t *testing.T) {
	db := databasetest.Open(t)

	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model), "missing table for %T", model)
	}
}

func TestOpenWithSQLiteConfig(t *testing.T) {
	cfg := &config.Config{DBDriver: config.DriverSQLite, DBPath: t.TempDir() + "/cfg.db"}

	db, err := database.Open(cfg, databasetest.Logger())
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&models.MasterRecord{}))
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{
		DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "outreach", DBPort: "5432", DBSSLMode: "disable",
	}
	assert.Equal(t, "host=db user=u password=p dbname=outreach port=5432 sslmode=disable", database.PostgresDSN(cfg))
}
