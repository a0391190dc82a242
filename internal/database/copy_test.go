package database_test

import (
	"context"
	"testing"

	"outreach-desk/internal/database"
	"outreach-desk/internal/database/databasetest"
	"outreach-desk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyAll(t *testing.T) {
	ctx := context.Background()
	src := databasetest.Open(t)
	dst := databasetest.Open(t)

	require.NoError(t, src.Create(&models.Snapshot{
		Date:      "2026-10-18",
		Customers: []models.SnapshotCustomer{{Customer: "Alice"}, {Customer: "Bob"}},
	}).Error)
	require.NoError(t, src.Create(&models.MasterRecord{
		PhoneNumber: "555-0001",
		Status:      "Sent",
		Count:       2,
		Sends: []models.MasterSend{
			{Sequence: 1, Template: "Intro", SentOn: "2026-10-17"},
			{Sequence: 2, Template: "Follow up", SentOn: "2026-10-18"},
		},
	}).Error)
	require.NoError(t, src.Create(&models.LeadSession{
		ID:     "s1",
		Status: "staged",
		Rows:   []models.SessionRow{{Position: 0, PhoneNumber: "555-0001", Priority: 1, Sent: true}},
	}).Error)

	result, err := database.CopyAll(ctx, src, dst, databasetest.Logger())
	require.NoError(t, err)
	assert.Equal(t, database.CopyResult{
		"snapshots":          1,
		"snapshot_customers": 2,
		"master_records":     1,
		"master_sends":       2,
		"lead_sessions":      1,
		"session_rows":       1,
	}, result)

	var record models.MasterRecord
	require.NoError(t, dst.Preload("Sends").First(&record, "phone_number = ?", "555-0001").Error)
	assert.Len(t, record.Sends, 2)

	var row models.SessionRow
	require.NoError(t, dst.First(&row).Error)
	assert.True(t, row.Sent)

	_, err = database.CopyAll(ctx, src, dst, databasetest.Logger())
	require.NoError(t, err, "copying twice skips rows that already exist")

	var sends int64
	require.NoError(t, dst.Model(&models.MasterSend{}).Count(&sends).Error)
	assert.Equal(t, int64(2), sends)
}
