package nurture

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"outreach-desk/internal/models"
	"outreach-desk/internal/tabular"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	StatusColumn = "Status"
	CountColumn  = "Count"
)

// MasterStore persists the whole master at once. Load returns an empty master
// when nothing has been stored yet.
type MasterStore interface {
	Load(ctx context.Context) (*Master, error)
	Save(ctx context.Context, m *Master) error
}

func TemplateColumnName(n int) string {
	return fmt.Sprintf("Template %d", n)
}

func DateOfTemplateColumnName(n int) string {
	return fmt.Sprintf("Date of template %d", n)
}

// MasterColumns is the sheet header for a master whose largest count is maxCount.
func MasterColumns(maxCount int) []string {
	columns := []string{PhoneColumn, StatusColumn, CountColumn}
	for n := 1; n <= maxCount; n++ {
		columns = append(columns, TemplateColumnName(n), DateOfTemplateColumnName(n))
	}
	return columns
}

// WriteMasterXLSX renders m as the master workbook.
func WriteMasterXLSX(w io.Writer, m *Master) error {
	maxCount := m.MaxCount()
	rows := make([][]interface{}, 0, m.Len())
	for _, r := range m.Records() {
		row := []interface{}{r.PhoneNumber, r.Status, r.Count}
		for n := 1; n <= maxCount; n++ {
			if n <= len(r.Sends) {
				row = append(row, r.Sends[n-1].Template, r.Sends[n-1].Date)
			} else {
				row = append(row, nil, nil)
			}
		}
		rows = append(rows, row)
	}
	return tabular.WriteXLSX(w, MasterColumns(maxCount), rows)
}

// MasterFromTable reads the wide master layout. Sends are rebuilt for
// sequences 1..Count so the history stays contiguous even when cells are blank.
func MasterFromTable(t *tabular.Table) (*Master, error) {
	if len(t.Columns) == 0 {
		return NewMaster(), nil
	}
	if err := t.Require(PhoneColumn, CountColumn); err != nil {
		return nil, err
	}

	m := NewMaster()
	for i, row := range t.Rows {
		phone := t.Value(row, PhoneColumn)
		if tabular.IsMissing(phone) {
			continue
		}

		count, err := parseCount(t.Value(row, CountColumn))
		if err != nil {
			return nil, errors.Wrapf(err, "master row %d (%s)", i+2, phone)
		}

		status := t.Value(row, StatusColumn)
		if tabular.IsMissing(status) {
			status = StatusSent
		}

		rec := &Record{PhoneNumber: phone, Status: status, Count: count}
		for n := 1; n <= count; n++ {
			rec.Sends = append(rec.Sends, Send{
				Sequence: n,
				Template: cell(t, row, TemplateColumnName(n)),
				Date:     NormalizeDate(cell(t, row, DateOfTemplateColumnName(n))),
			})
		}
		m.add(rec)
	}
	return m, nil
}

func cell(t *tabular.Table, row []string, column string) string {
	v := t.Value(row, column)
	if tabular.IsMissing(v) {
		return ""
	}
	return v
}

func parseCount(value string) (int, error) {
	if tabular.IsMissing(value) {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, errors.Errorf("invalid Count %q", value)
	}
	if f < 0 {
		return 0, errors.Errorf("negative Count %q", value)
	}
	return int(f), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01-02-06",
	"1/2/06",
	"1/2/2006",
}

// NormalizeDate turns the date renderings spreadsheets produce back into
// ISO dates. Unrecognised values are kept as they are.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return value
}

// XLSXStore keeps the master in a single workbook.
type XLSXStore struct {
	Path string
}

func NewXLSXStore(path string) *XLSXStore {
	return &XLSXStore{Path: path}
}

// Load treats a workbook that does not exist yet as an empty master.
func (s *XLSXStore) Load(_ context.Context) (*Master, error) {
	m, err := ReadMasterFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return NewMaster(), nil
	}
	return m, err
}

// ReadMasterFile reads a master workbook. Unlike XLSXStore.Load a missing
// file is an error.
func ReadMasterFile(path string) (*Master, error) {
	t, err := tabular.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "nurture: failed to read master %s", path)
	}
	t.Name = "the master file"
	return MasterFromTable(t)
}

func (s *XLSXStore) Save(_ context.Context, m *Master) error {
	err := tabular.WriteFileAtomic(s.Path, func(w io.Writer) error {
		return WriteMasterXLSX(w, m)
	})
	return errors.Wrapf(err, "nurture: failed to write master %s", s.Path)
}

// GormStore keeps the master in master_records/master_sends.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(ctx context.Context) (*Master, error) {
	var rows []models.MasterRecord
	err := s.db.WithContext(ctx).
		Preload("Sends", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "nurture: failed to load master")
	}

	m := NewMaster()
	for _, row := range rows {
		rec := &Record{PhoneNumber: row.PhoneNumber, Status: row.Status, Count: row.Count}
		for _, send := range row.Sends {
			rec.Sends = append(rec.Sends, Send{Sequence: send.Sequence, Template: send.Template, Date: send.SentOn})
		}
		m.add(rec)
	}
	return m, nil
}

// Save replaces the stored master inside one transaction.
func (s *GormStore) Save(ctx context.Context, m *Master) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.MasterSend{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.MasterRecord{}).Error; err != nil {
			return err
		}
		if m.Len() == 0 {
			return nil
		}

		rows := make([]models.MasterRecord, 0, m.Len())
		for i, r := range m.Records() {
			row := models.MasterRecord{
				PhoneNumber: r.PhoneNumber,
				Status:      r.Status,
				Count:       r.Count,
				Position:    i,
			}
			for _, send := range r.Sends {
				row.Sends = append(row.Sends, models.MasterSend{
					PhoneNumber: r.PhoneNumber,
					Sequence:    send.Sequence,
					Template:    send.Template,
					SentOn:      send.Date,
				})
			}
			rows = append(rows, row)
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	return errors.Wrap(err, "nurture: failed to save master")
}
