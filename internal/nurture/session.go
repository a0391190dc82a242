package nurture

import (
	"context"
	"time"

	"outreach-desk/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	SessionStaged    = "staged"
	SessionCommitted = "committed"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCommitted = errors.New("session has already been submitted")
)

// SessionRepository persists staged working tables between stage and submit.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.LeadSession) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(session).Error, "nurture: failed to create session")
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.LeadSession, error) {
	var session models.LeadSession
	err := r.db.WithContext(ctx).
		Preload("Rows", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "nurture: failed to load session %s", id)
	}
	return &session, nil
}

// MarkCommitted stores the submitted rows and closes the session.
func (r *SessionRepository) MarkCommitted(ctx context.Context, id string, rows []Lead, at time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.LeadSession{}).
			Where("id = ? AND status = ?", id, SessionStaged).
			Updates(map[string]interface{}{"status": SessionCommitted, "committed_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionCommitted
		}

		if err := tx.Where("session_id = ?", id).Delete(&models.SessionRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(SessionRows(id, rows)).Error
	})
	return errors.Wrapf(err, "nurture: failed to close session %s", id)
}

// Reopen moves a committed session back to staged. The submitted rows stay
// as the session's working rows.
func (r *SessionRepository) Reopen(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.LeadSession{}).
		Where("id = ? AND status = ?", id, SessionCommitted).
		Updates(map[string]interface{}{"status": SessionStaged, "committed_at": nil})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "nurture: failed to reopen session %s", id)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrSessionNotFound, "%s is not committed", id)
	}
	return nil
}

// SessionRows converts leads to their persisted form.
func SessionRows(sessionID string, leads []Lead) []models.SessionRow {
	rows := make([]models.SessionRow, len(leads))
	for i, l := range leads {
		rows[i] = models.SessionRow{
			SessionID:   sessionID,
			Position:    i,
			Date:        l.Date,
			PhoneNumber: l.PhoneNumber,
			Priority:    l.Priority,
			Sent:        l.Sent,
			Template:    l.Template,
		}
	}
	return rows
}

// LeadsFromSession returns the staged rows of a session in order.
func LeadsFromSession(session *models.LeadSession) []Lead {
	leads := make([]Lead, len(session.Rows))
	for i, row := range session.Rows {
		leads[i] = Lead{
			Date:        row.Date,
			PhoneNumber: row.PhoneNumber,
			Priority:    row.Priority,
			Sent:        row.Sent,
			Template:    row.Template,
		}
	}
	return leads
}
