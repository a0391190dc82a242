package nurture

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"outreach-desk/internal/database/databasetest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(date string) func() time.Time {
	return func() time.Time {
		ts, _ := time.Parse("2006-01-02", date)
		return ts
	}
}

func newTestService(t *testing.T, date string) (*Service, MasterStore) {
	t.Helper()
	db := databasetest.Open(t)
	store := NewXLSXStore(filepath.Join(t.TempDir(), "master_file_A.xlsx"))
	svc := NewService(store, NewSessionRepository(db), databasetest.Logger()).WithClock(fixedClock(date))
	return svc, store
}

func stageInput(t *testing.T, first bool) StageInput {
	return StageInput{
		Leads:        table(t, "leads.csv", "Phone Number\n555-0001\n555-0002\n555-0003\n555-0002\n"),
		Priorities:   table(t, "priority.csv", "Phone Number,Priority\n555-0002,1\n555-0003,2\n"),
		Templates:    "Intro\nFollow up\n",
		FirstSession: first,
	}
}

func markSent(rows []Lead, template string, phones ...string) []Lead {
	want := make(map[string]bool)
	for _, p := range phones {
		want[p] = true
	}
	out := make([]Lead, len(rows))
	for i, r := range rows {
		if want[r.PhoneNumber] {
			r.Sent = true
			r.Template = template
		}
		out[i] = r
	}
	return out
}

func TestServiceStageAndSubmit(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "2026-10-18")

	session, err := svc.Stage(ctx, stageInput(t, true))
	require.NoError(t, err)
	assert.Equal(t, SessionStaged, session.Status)

	rows := LeadsFromSession(session)
	assert.Equal(t, []string{"555-0002", "555-0003", "555-0001"}, phones(rows))
	for _, r := range rows {
		assert.Equal(t, "2026-10-18", r.Date)
		assert.False(t, r.Sent)
		assert.Empty(t, r.Template)
	}

	result, err := svc.Submit(ctx, session.ID, markSent(rows, "Intro", "555-0001"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, session.ID, result.SessionID)

	master, err := store.Load(ctx)
	require.NoError(t, err)
	rec, ok := master.Lookup("555-0001")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Count)
	assert.Equal(t, []Send{{Sequence: 1, Template: "Intro", Date: "2026-10-18"}}, rec.Sends)

	stored, err := svc.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCommitted, stored.Status)
	assert.NotNil(t, stored.CommittedAt)
	assert.True(t, LeadsFromSession(stored)[2].Sent)

	_, err = svc.Submit(ctx, session.ID, rows)
	assert.ErrorIs(t, err, ErrSessionCommitted)
}

func TestServiceSubmitUnknownSession(t *testing.T) {
	svc, _ := newTestService(t, "2026-10-18")
	_, err := svc.Submit(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceRequiresTemplates(t *testing.T) {
	svc, _ := newTestService(t, "2026-10-18")
	in := stageInput(t, true)
	in.Templates = "\n  \n"

	_, err := svc.Stage(context.Background(), in)
	assert.ErrorIs(t, err, ErrNoTemplates)
}

func TestServiceSaturationAcrossSessions(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "2026-10-18")

	require.NoError(t, store.Save(ctx, NewMaster(
		&Record{PhoneNumber: "555-0002", Status: StatusSent, Count: 3, Sends: []Send{
			{Sequence: 1, Template: "Intro", Date: "2026-10-01"},
			{Sequence: 2, Template: "Intro", Date: "2026-10-02"},
			{Sequence: 3, Template: "Intro", Date: "2026-10-03"},
		}},
	)))

	repeat, err := svc.Stage(ctx, stageInput(t, false))
	require.NoError(t, err)
	assert.Equal(t, []string{"555-0003", "555-0001"}, phones(LeadsFromSession(repeat)))

	first, err := svc.Stage(ctx, stageInput(t, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"555-0002", "555-0003", "555-0001"}, phones(LeadsFromSession(first)),
		"first sessions never filter")
}

func TestServiceRepeatSessionsAppend(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "2026-10-17")

	first, err := svc.Stage(ctx, stageInput(t, true))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, first.ID, markSent(LeadsFromSession(first), "Intro", "555-0003"))
	require.NoError(t, err)

	svc.WithClock(fixedClock("2026-10-18"))
	second, err := svc.Stage(ctx, stageInput(t, false))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, second.ID, markSent(LeadsFromSession(second), "Follow up", "555-0003"))
	require.NoError(t, err)

	master, err := store.Load(ctx)
	require.NoError(t, err)
	rec, _ := master.Lookup("555-0003")
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, []Send{
		{Sequence: 1, Template: "Intro", Date: "2026-10-17"},
		{Sequence: 2, Template: "Follow up", Date: "2026-10-18"},
	}, rec.Sends)
}

func TestServiceSubmitRejectsUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "2026-10-18")

	session, err := svc.Stage(ctx, stageInput(t, true))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, session.ID, markSent(LeadsFromSession(session), "Not listed", "555-0001"))
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	master, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, master.Len())

	stored, err := svc.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionStaged, stored.Status, "a rejected submit can be retried")
}

func TestServiceCommitRowsFillsDates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "2026-10-18")

	result, err := svc.CommitRows(ctx, false, []Lead{{PhoneNumber: "a", Sent: true, Template: "Intro"}}, []string{"Intro"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", result.Sends[0].Date)
}

func TestServiceMarkReplied(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "2026-10-18")
	require.NoError(t, store.Save(ctx, NewMaster(&Record{PhoneNumber: "a", Status: StatusSent, Count: 1,
		Sends: []Send{{Sequence: 1, Template: "Intro", Date: "2026-10-18"}}})))

	changed, err := svc.MarkReplied(ctx, "a")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.MarkReplied(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, changed)

	master, err := svc.Master(ctx)
	require.NoError(t, err)
	rec, _ := master.Lookup("a")
	assert.Equal(t, StatusReplied, rec.Status)
}

type flakyStore struct {
	MasterStore
	failSave bool
}

func (f *flakyStore) Save(ctx context.Context, m *Master) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MasterStore.Save(ctx, m)
}

func TestServiceSubmitReopensSessionWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	db := databasetest.Open(t)
	store := &flakyStore{MasterStore: NewXLSXStore(filepath.Join(t.TempDir(), "master_file_A.xlsx"))}
	sessions := NewSessionRepository(db)
	svc := NewService(store, sessions, databasetest.Logger()).WithClock(fixedClock("2026-10-18"))

	session, err := svc.Stage(ctx, stageInput(t, true))
	require.NoError(t, err)
	rows := markSent(LeadsFromSession(session), "Intro", "555-0003")

	store.failSave = true
	_, err = svc.Submit(ctx, session.ID, rows)
	assert.EqualError(t, err, "disk full")

	reopened, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionStaged, reopened.Status)
	assert.Nil(t, reopened.CommittedAt)
	assert.Equal(t, rows, LeadsFromSession(reopened))

	master, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, master.Len())

	store.failSave = false
	result, err := svc.Submit(ctx, session.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	master, err = store.Load(ctx)
	require.NoError(t, err)
	rec, ok := master.Lookup("555-0003")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Count)

	committed, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, SessionCommitted, committed.Status)
}

func TestSessionReopenRequiresCommitted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "2026-10-18")

	session, err := svc.Stage(ctx, stageInput(t, true))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.sessions.Reopen(ctx, session.ID), ErrSessionNotFound)
}
