package snapshot

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"outreach-desk/internal/models"
	"outreach-desk/internal/tabular"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DateLayout is the ISO calendar date used as the snapshot key.
const DateLayout = "2006-01-02"

// Store keeps one customer set per calendar date.
type Store interface {
	// Save replaces the snapshot for date.
	Save(ctx context.Context, date string, customers []string) error
	// Load returns the customers stored for date.
	Load(ctx context.Context, date string) ([]string, error)
	// Dates returns every stored date in ascending order.
	Dates(ctx context.Context) ([]string, error)
}

var ErrSnapshotNotFound = errors.New("snapshot not found")

func validDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// FileStore keeps snapshots as <date>.csv files with a single customer column.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(date string) string {
	return filepath.Join(s.Dir, date+".csv")
}

func (s *FileStore) Save(_ context.Context, date string, customers []string) error {
	if !validDate(date) {
		return errors.Errorf("snapshot: invalid date %q", date)
	}

	rows := make([][]string, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, []string{c})
	}

	err := tabular.WriteFileAtomic(s.path(date), func(w io.Writer) error {
		return tabular.WriteCSV(w, []string{CustomerColumn}, rows)
	})
	return errors.Wrapf(err, "snapshot: failed to write %s", s.path(date))
}

func (s *FileStore) Load(_ context.Context, date string) ([]string, error) {
	table, err := tabular.ReadFile(s.path(date))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(ErrSnapshotNotFound, date)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot: failed to read %s", date)
	}
	return Normalize(table)
}

func (s *FileStore) Dates(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot: failed to list %s", s.Dir)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		date := strings.TrimSuffix(e.Name(), ".csv")
		if validDate(date) {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// GormStore keeps snapshots in the snapshots/snapshot_customers tables.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Save(ctx context.Context, date string, customers []string) error {
	if !validDate(date) {
		return errors.Errorf("snapshot: invalid date %q", date)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("snapshot_date = ?", date).Delete(&models.SnapshotCustomer{}).Error; err != nil {
			return err
		}
		upsert := clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}
		if err := tx.Clauses(upsert).Create(&models.Snapshot{Date: date}).Error; err != nil {
			return err
		}
		if len(customers) == 0 {
			return nil
		}

		rows := make([]models.SnapshotCustomer, 0, len(customers))
		for _, c := range customers {
			rows = append(rows, models.SnapshotCustomer{SnapshotDate: date, Customer: c})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	return errors.Wrapf(err, "snapshot: failed to save %s", date)
}

func (s *GormStore) Load(ctx context.Context, date string) ([]string, error) {
	var snap models.Snapshot
	err := s.db.WithContext(ctx).
		Preload("Customers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&snap, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(ErrSnapshotNotFound, date)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot: failed to load %s", date)
	}

	customers := make([]string, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		customers = append(customers, c.Customer)
	}
	return customers, nil
}

func (s *GormStore) Dates(ctx context.Context) ([]string, error) {
	var dates []string
	err := s.db.WithContext(ctx).Model(&models.Snapshot{}).Order("date ASC").Pluck("date", &dates).Error
	return dates, errors.Wrap(err, "snapshot: failed to list dates")
}
