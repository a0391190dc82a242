package nurture

import (
	"context"
	"strings"
	"sync"
	"time"

	"outreach-desk/internal/models"
	"outreach-desk/internal/tabular"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StageInput is everything an operator provides to open a session.
type StageInput struct {
	Leads        *tabular.Table
	Priorities   *tabular.Table
	Templates    string
	FirstSession bool
}

// SubmitResult is returned after a session has been folded into the master.
type SubmitResult struct {
	*CommitResult
	SessionID string  `json:"session_id,omitempty"`
	Master    *Master `json:"-"`
}

// Service runs the stage/submit cycle against an injected master store.
// Every call that rewrites the master holds mu.
type Service struct {
	master   MasterStore
	sessions *SessionRepository
	logger   *logrus.Logger
	now      func() time.Time
	mu       sync.Mutex
}

func NewService(master MasterStore, sessions *SessionRepository, logger *logrus.Logger) *Service {
	return &Service{
		master:   master,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the source of today's date.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}

// Prepare builds the working rows for a session without persisting them. It
// also returns the parsed template repository.
func (s *Service) Prepare(ctx context.Context, in StageInput) ([]Lead, []string, error) {
	templates := ParseTemplates(in.Templates)
	if len(templates) == 0 {
		return nil, nil, ErrNoTemplates
	}

	if in.Leads.Name == "" {
		in.Leads.Name = "the nurturing list"
	}
	if in.Priorities.Name == "" {
		in.Priorities.Name = "the priority table"
	}

	leads, err := Enrich(in.Leads, in.Priorities)
	if err != nil {
		return nil, nil, err
	}

	if !in.FirstSession {
		master, err := s.master.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		before := len(leads)
		leads = Filter(leads, master, SaturationThreshold)
		s.logger.WithFields(logrus.Fields{
			"excluded":  before - len(leads),
			"threshold": SaturationThreshold,
		}).Debug("filtered saturated leads")
	}

	return Stage(Dedupe(leads), s.today()), templates, nil
}

// Stage prepares a working table and persists it as a new session.
func (s *Service) Stage(ctx context.Context, in StageInput) (*models.LeadSession, error) {
	if s.sessions == nil {
		return nil, errors.New("nurture: no session repository configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	leads, templates, err := s.Prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	session := &models.LeadSession{
		ID:           id,
		FirstSession: in.FirstSession,
		Templates:    strings.Join(templates, "\n"),
		Status:       SessionStaged,
		Rows:         SessionRows(id, leads),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session":       id,
		"leads":         len(leads),
		"first_session": in.FirstSession,
	}).Info("session staged")
	return session, nil
}

// Session returns a stored session.
func (s *Service) Session(ctx context.Context, id string) (*models.LeadSession, error) {
	if s.sessions == nil {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}
	return s.sessions.Get(ctx, id)
}

// Submit folds the edited rows of a staged session into the master.
func (s *Service) Submit(ctx context.Context, id string, rows []Lead) (*SubmitResult, error) {
	if s.sessions == nil {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status == SessionCommitted {
		return nil, errors.Wrap(ErrSessionCommitted, id)
	}

	rows = s.fillDates(rows)
	marked := false
	result, err := s.commit(ctx, session.FirstSession, rows, ParseTemplates(session.Templates), func() error {
		if err := s.sessions.MarkCommitted(ctx, id, rows, s.now()); err != nil {
			return err
		}
		marked = true
		return nil
	})
	if err != nil {
		if marked {
			s.reopen(ctx, id, err)
		}
		return nil, err
	}
	result.SessionID = id
	return result, nil
}

// reopen returns a session to staged after its master save failed, so the
// same edits can be submitted again.
func (s *Service) reopen(ctx context.Context, id string, cause error) {
	entry := s.logger.WithField("session_id", id).WithField("cause", cause.Error())
	if err := s.sessions.Reopen(context.WithoutCancel(ctx), id); err != nil {
		entry.WithError(err).Error("master save failed and the session could not be reopened")
		return
	}
	entry.Warn("master save failed, session reopened")
}

// CommitRows folds rows into the master without a stored session.
func (s *Service) CommitRows(ctx context.Context, firstSession bool, rows []Lead, templates []string) (*SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, firstSession, s.fillDates(rows), templates, nil)
}

// commit applies rows to the master in memory, runs beforeSave and only then
// persists the master. A beforeSave error leaves the stored master untouched.
func (s *Service) commit(ctx context.Context, firstSession bool, rows []Lead, templates []string, beforeSave func() error) (*SubmitResult, error) {
	stored, err := s.master.Load(ctx)
	if err != nil {
		return nil, err
	}

	master := stored
	if firstSession {
		if stored.Len() > 0 {
			s.logger.WithField("records", stored.Len()).
				Warn("first session replaces the existing master records")
		}
		master = NewMaster()
	}

	result, err := Commit(master, rows, templates)
	if err != nil {
		return nil, err
	}

	if beforeSave != nil {
		if err := beforeSave(); err != nil {
			return nil, err
		}
	}
	if err := s.master.Save(ctx, master); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"records": master.Len(),
	}).Info("master updated")
	return &SubmitResult{CommitResult: result, Master: master}, nil
}

func (s *Service) fillDates(rows []Lead) []Lead {
	today := s.today()
	out := make([]Lead, len(rows))
	for i, r := range rows {
		if strings.TrimSpace(r.Date) == "" {
			r.Date = today
		}
		out[i] = r
	}
	return out
}

// Master returns the stored master.
func (s *Service) Master(ctx context.Context) (*Master, error) {
	return s.master.Load(ctx)
}

// MarkReplied flags phone as replied. It reports whether the master changed.
func (s *Service) MarkReplied(ctx context.Context, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	master, err := s.master.Load(ctx)
	if err != nil {
		return false, err
	}
	if !master.MarkReplied(phone) {
		return false, nil
	}
	if err := s.master.Save(ctx, master); err != nil {
		return false, err
	}

	s.logger.WithField("phone", phone).Info("lead marked as replied")
	return true, nil
}
