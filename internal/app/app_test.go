package app

import (
	"path/filepath"
	"testing"

	"outreach-desk/internal/config"
	"outreach-desk/internal/database/databasetest"
	"outreach-desk/internal/nurture"
	"outreach-desk/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		DBDriver:        config.DriverSQLite,
		DBPath:          filepath.Join(dir, "outreach.db"),
		SnapshotBackend: config.BackendFile,
		SnapshotDir:     filepath.Join(dir, "data"),
		MasterBackend:   config.BackendXLSX,
		MasterFile:      filepath.Join(dir, "master.xlsx"),
	}
}

func TestNewSelectsFileBackends(t *testing.T) {
	a, err := New(testConfig(t), databasetest.Logger())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &snapshot.FileStore{}, a.Snapshots)
	assert.IsType(t, &nurture.XLSXStore{}, a.Master)
	assert.NotNil(t, a.Differ)
	assert.NotNil(t, a.Service)
}

func TestNewSelectsDatabaseBackends(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotBackend = config.BackendDB
	cfg.MasterBackend = config.BackendDB

	a, err := New(cfg, databasetest.Logger())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &snapshot.GormStore{}, a.Snapshots)
	assert.IsType(t, &nurture.GormStore{}, a.Master)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MasterBackend = "s3"

	_, err := New(cfg, databasetest.Logger())
	assert.Error(t, err)
}
