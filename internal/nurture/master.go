package nurture

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	StatusSent    = "Sent"
	StatusReplied = "Replied"
)

var (
	ErrUnknownTemplate = errors.New("template is not in the template repository")
	ErrNoTemplates     = errors.New("the template repository is empty; enter one template per line")
)

// Send is one outreach event. Sequence runs 1..Count within a record.
type Send struct {
	Sequence int    `json:"sequence"`
	Template string `json:"template"`
	Date     string `json:"date"`
}

// Record is the outreach history of one phone number. Sends only grow.
type Record struct {
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status"`
	Count       int    `json:"count"`
	Sends       []Send `json:"sends"`
}

// Master is the ordered set of records keyed by phone number.
type Master struct {
	records []*Record
	index   map[string]*Record
}

func NewMaster(records ...*Record) *Master {
	m := &Master{index: make(map[string]*Record)}
	for _, r := range records {
		m.add(r)
	}
	return m
}

func (m *Master) add(r *Record) {
	if existing, ok := m.index[r.PhoneNumber]; ok {
		*existing = *r
		return
	}
	m.records = append(m.records, r)
	m.index[r.PhoneNumber] = r
}

func (m *Master) Records() []*Record {
	return m.records
}

func (m *Master) Len() int {
	return len(m.records)
}

func (m *Master) Lookup(phone string) (*Record, bool) {
	r, ok := m.index[phone]
	return r, ok
}

// MaxCount is the largest send count across all records.
func (m *Master) MaxCount() int {
	highest := 0
	for _, r := range m.records {
		if r.Count > highest {
			highest = r.Count
		}
	}
	return highest
}

// Saturated lists phone numbers whose count reached threshold, in store order.
func (m *Master) Saturated(threshold int) []string {
	var phones []string
	for _, r := range m.records {
		if r.Count >= threshold {
			phones = append(phones, r.PhoneNumber)
		}
	}
	return phones
}

// RecordSend appends a send to phone's history, creating the record on first send.
func (m *Master) RecordSend(phone, template, date string) (*Record, bool) {
	if r, ok := m.index[phone]; ok {
		r.Count++
		r.Sends = append(r.Sends, Send{Sequence: r.Count, Template: template, Date: date})
		return r, false
	}

	r := &Record{
		PhoneNumber: phone,
		Status:      StatusSent,
		Count:       1,
		Sends:       []Send{{Sequence: 1, Template: template, Date: date}},
	}
	m.add(r)
	return r, true
}

// Resolve finds the record for phone, falling back to a digits-only match so
// "+1 555-0001" and "15550001" refer to the same lead.
func (m *Master) Resolve(phone string) (*Record, bool) {
	if r, ok := m.index[phone]; ok {
		return r, true
	}
	want := digits(phone)
	if want == "" {
		return nil, false
	}
	for _, r := range m.records {
		if digits(r.PhoneNumber) == want {
			return r, true
		}
	}
	return nil, false
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MarkReplied flags phone as having answered. It reports whether a record changed.
func (m *Master) MarkReplied(phone string) bool {
	r, ok := m.Resolve(phone)
	if !ok || r.Status == StatusReplied {
		return false
	}
	r.Status = StatusReplied
	return true
}

// CommittedSend describes one send folded into the master.
type CommittedSend struct {
	PhoneNumber string `json:"phone_number"`
	Sequence    int    `json:"sequence"`
	Template    string `json:"template"`
	Date        string `json:"date"`
	Created     bool   `json:"created"`
}

type CommitResult struct {
	Sends   []CommittedSend `json:"sends"`
	Created int             `json:"created"`
	Updated int             `json:"updated"`
	Skipped int             `json:"skipped"`
}

// Commit folds every sent row into master in row order. Templates are checked
// against the repository before anything is changed; an empty repository
// accepts any template. Rows without a phone number are skipped.
func Commit(master *Master, rows []Lead, templates []string) (*CommitResult, error) {
	if err := checkTemplates(rows, templates); err != nil {
		return nil, err
	}

	result := &CommitResult{Sends: []CommittedSend{}}
	for _, row := range rows {
		if !row.Sent {
			continue
		}
		phone := strings.TrimSpace(row.PhoneNumber)
		if phone == "" {
			result.Skipped++
			continue
		}

		rec, created := master.RecordSend(phone, row.Template, row.Date)
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		result.Sends = append(result.Sends, CommittedSend{
			PhoneNumber: phone,
			Sequence:    rec.Count,
			Template:    row.Template,
			Date:        row.Date,
			Created:     created,
		})
	}
	return result, nil
}

func checkTemplates(rows []Lead, templates []string) error {
	if len(templates) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(templates))
	for _, t := range templates {
		allowed[t] = struct{}{}
	}

	for i, row := range rows {
		if !row.Sent || row.Template == "" {
			continue
		}
		if _, ok := allowed[row.Template]; !ok {
			return errors.Wrap(ErrUnknownTemplate, fmt.Sprintf("row %d (%s): %q", i+1, row.PhoneNumber, row.Template))
		}
	}
	return nil
}
