package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"outreach-desk/internal/config"
	"outreach-desk/internal/nurture"
	"outreach-desk/internal/tabular"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	cfg    *config.Config
	logger *log.Logger
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	logger := log.New()
	logger.SetOutput(io.Discard)
	return &fixture{
		dir:    dir,
		logger: logger,
		cfg: &config.Config{
			DBDriver:        config.DriverSQLite,
			DBPath:          filepath.Join(dir, "outreach.db"),
			SnapshotBackend: config.BackendFile,
			SnapshotDir:     filepath.Join(dir, "data"),
			MasterBackend:   config.BackendXLSX,
			MasterFile:      filepath.Join(dir, "master_file_A.xlsx"),
		},
	}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(io.Discard)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestDiffCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := run(t, DiffCommand{Logger: f.logger}.Command(ctx, f.cfg),
		f.write(t, "d1.csv", "customer\nAlice\nBob\n"), "--date", "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, "No previous data to compare. Saved today's list.\n", out)

	out, err = run(t, DiffCommand{Logger: f.logger}.Command(ctx, f.cfg),
		f.write(t, "d2.csv", "customer\nCarol\nBob\n"), "--date", "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, "New customers compared to 2026-10-17\nCarol\n", out)

	_, err = run(t, DiffCommand{Logger: f.logger}.Command(ctx, f.cfg),
		f.write(t, "d3.csv", "customer\nX\n"), "--date", "18/10/2026")
	assert.Error(t, err)
}

func TestStageCommitExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	leads := f.write(t, "leads.csv", "Phone Number\n555-0001\n555-0002\n")
	priority := f.write(t, "priority.csv", "Phone Number,Priority\n555-0002,1\n")
	templates := f.write(t, "templates.txt", "Intro\nFollow up\n")
	working := filepath.Join(f.dir, "working.csv")

	out, err := run(t, StageCommand{Logger: f.logger}.Command(ctx, f.cfg),
		"--leads", leads, "--priority", priority, "--templates-file", templates,
		"--first", "--out", working, "--date", "2026-10-18")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 2 leads")

	sheet, err := tabular.ReadFile(working)
	require.NoError(t, err)
	assert.Equal(t, []string{"555-0002", "555-0001"}, sheet.Column(nurture.PhoneColumn))

	edited := strings.Replace(string(mustRead(t, working)), "555-0002,1,false,", "555-0002,1,true,Intro", 1)
	require.NoError(t, os.WriteFile(working, []byte(edited), 0o644))

	out, err = run(t, CommitCommand{Logger: f.logger}.Command(ctx, f.cfg),
		working, "--templates-file", templates, "--first")
	require.NoError(t, err)
	assert.Contains(t, out, "555-0002\t#1\tIntro\t2026-10-18")
	assert.Contains(t, out, "created 1, updated 0, skipped 0")

	_, err = run(t, CommitCommand{Logger: f.logger}.Command(ctx, f.cfg), working, "--templates", "Other")
	assert.ErrorIs(t, err, nurture.ErrUnknownTemplate)

	exported := filepath.Join(f.dir, "export.xlsx")
	out, err = run(t, ExportCommand{Logger: f.logger}.Command(ctx, f.cfg), "--out", exported)
	require.NoError(t, err)
	assert.Equal(t, "exported 1 records to "+exported+"\n", out)

	table, err := tabular.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, []string{"555-0002", "Sent", "1", "Intro", "2026-10-18"}, table.Rows[0])
}

func TestImportLegacy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	legacy := nurture.NewMaster()
	legacy.RecordSend("555-0001", "Intro", "2026-10-01")
	legacyPath := filepath.Join(f.dir, "legacy.xlsx")
	require.NoError(t, nurture.NewXLSXStore(legacyPath).Save(ctx, legacy))

	snapDir := filepath.Join(f.dir, "legacy_data")
	require.NoError(t, os.MkdirAll(snapDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, "2026-10-01.csv"), []byte("customer\nAlice\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(snapDir, "notes.csv"), []byte("customer\nZed\n"), 0o644))

	f.cfg.SnapshotBackend = config.BackendDB
	f.cfg.MasterBackend = config.BackendDB

	out, err := run(t, ImportLegacyCommand{Logger: f.logger}.Command(ctx, f.cfg),
		"--master", legacyPath, "--snapshots", snapDir)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 master records\nimported 1 snapshots\n", out)

	a, err := open(f.cfg, f.logger, "")
	require.NoError(t, err)
	defer a.Close()

	master, err := a.Service.Master(ctx)
	require.NoError(t, err)
	rec, ok := master.Lookup("555-0001")
	require.True(t, ok)
	assert.Equal(t, []nurture.Send{{Sequence: 1, Template: "Intro", Date: "2026-10-01"}}, rec.Sends)

	customers, err := a.Snapshots.Load(ctx, "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, customers)

	_, err = run(t, ImportLegacyCommand{Logger: f.logger}.Command(ctx, f.cfg))
	assert.Error(t, err)
}

func mustRead(t *testing.T, path string) []byte {
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func TestImportLegacyMissingMasterKeepsStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	existing := nurture.NewMaster()
	existing.RecordSend("555-0001", "Intro", "2026-10-01")
	require.NoError(t, nurture.NewXLSXStore(f.cfg.MasterFile).Save(ctx, existing))

	out, err := run(t, ImportLegacyCommand{Logger: f.logger}.Command(ctx, f.cfg),
		"--master", filepath.Join(f.dir, "typo.xlsx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, out)

	master, err := nurture.NewXLSXStore(f.cfg.MasterFile).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*nurture.Record{{
		PhoneNumber: "555-0001",
		Status:      nurture.StatusSent,
		Count:       1,
		Sends:       []nurture.Send{{Sequence: 1, Template: "Intro", Date: "2026-10-01"}},
	}}, master.Records())
}
