// Package snapshot stores one customer list per day and reports the customers
// that are new compared with the most recent earlier day.
package snapshot

import (
	"context"
	"sort"
	"time"

	"outreach-desk/internal/tabular"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const CustomerColumn = "customer"

// Result is the outcome of one upload. When Compared is false there was no
// earlier snapshot and NewCustomers is meaningless, not empty.
type Result struct {
	Date         string   `json:"date"`
	Saved        int      `json:"saved"`
	Compared     bool     `json:"compared"`
	PreviousDate string   `json:"previous_date,omitempty"`
	NewCustomers []string `json:"new_customers"`
	Message      string   `json:"message"`
}

// Normalize extracts the customer set: missing cells dropped, duplicates
// collapsed, first-seen order kept.
func Normalize(table *tabular.Table) ([]string, error) {
	if err := table.Require(CustomerColumn); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	customers := make([]string, 0, len(table.Rows))
	for _, v := range table.Column(CustomerColumn) {
		if tabular.IsMissing(v) {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		customers = append(customers, v)
	}
	return customers, nil
}

// Subtract returns the members of today absent from previous, sorted.
func Subtract(today, previous []string) []string {
	prev := make(map[string]struct{}, len(previous))
	for _, c := range previous {
		prev[c] = struct{}{}
	}

	diff := []string{}
	seen := make(map[string]struct{})
	for _, c := range today {
		if _, ok := prev[c]; ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		diff = append(diff, c)
	}
	sort.Strings(diff)
	return diff
}

type Differ struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewDiffer(store Store, logger *logrus.Logger) *Differ {
	return &Differ{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the source of "today".
func (d *Differ) WithClock(now func() time.Time) *Differ {
	d.now = now
	return d
}

func (d *Differ) Today() string {
	return d.now().Format(DateLayout)
}

// Process saves today's upload and compares it with the previous stored date.
func (d *Differ) Process(ctx context.Context, table *tabular.Table) (*Result, error) {
	customers, err := Normalize(table)
	if err != nil {
		return nil, err
	}

	date := d.Today()
	if err := d.store.Save(ctx, date, customers); err != nil {
		return nil, err
	}
	d.logger.WithFields(logrus.Fields{"date": date, "customers": len(customers)}).Info("snapshot saved")

	result, err := d.compare(ctx, date, customers)
	if err != nil {
		return nil, err
	}
	result.Saved = len(customers)
	return result, nil
}

// Compare recomputes the diff for an already stored date.
func (d *Differ) Compare(ctx context.Context, date string) (*Result, error) {
	customers, err := d.store.Load(ctx, date)
	if err != nil {
		return nil, err
	}

	result, err := d.compare(ctx, date, customers)
	if err != nil {
		return nil, err
	}
	result.Saved = len(customers)
	return result, nil
}

func (d *Differ) compare(ctx context.Context, date string, customers []string) (*Result, error) {
	dates, err := d.store.Dates(ctx)
	if err != nil {
		return nil, err
	}

	previous := PreviousDate(dates, date)
	if previous == "" {
		return &Result{
			Date:     date,
			Compared: false,
			Message:  "No previous data to compare. Saved today's list.",
		}, nil
	}

	prevCustomers, err := d.store.Load(ctx, previous)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot: failed to load baseline %s", previous)
	}

	diff := Subtract(customers, prevCustomers)
	d.logger.WithFields(logrus.Fields{
		"date":     date,
		"previous": previous,
		"new":      len(diff),
	}).Info("snapshot compared")

	return &Result{
		Date:         date,
		Compared:     true,
		PreviousDate: previous,
		NewCustomers: diff,
		Message:      "New customers compared to " + previous,
	}, nil
}

// PreviousDate returns the latest date in dates strictly before date, or "".
// ISO dates sort chronologically as strings.
func PreviousDate(dates []string, date string) string {
	previous := ""
	for _, d := range dates {
		if d < date && d > previous {
			previous = d
		}
	}
	return previous
}
