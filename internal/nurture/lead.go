// Package nurture merges lead lists with a priority table, hides contacts that
// were already reached often enough, and folds each session's sends into the
// persisted master record of every phone number.
package nurture

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"outreach-desk/internal/tabular"
)

const (
	PhoneColumn    = "Phone Number"
	PriorityColumn = "Priority"
	DateColumn     = "Date"
	SentColumn     = "Sent"
	TemplateColumn = "Template"

	// SentinelPriority is given to leads without a priority; it sorts last.
	SentinelPriority = 999
	// SaturationThreshold is the send count at which a lead is no longer offered.
	SaturationThreshold = 3
)

// Lead is one row of the working table.
type Lead struct {
	Date        string `json:"date"`
	PhoneNumber string `json:"phone_number"`
	Priority    int    `json:"priority"`
	Sent        bool   `json:"sent"`
	Template    string `json:"template"`
}

// ParseTemplates splits a template repository: one label per line, blank
// lines and repeats dropped.
func ParseTemplates(text string) []string {
	var templates []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		templates = append(templates, t)
	}
	return templates
}

// Enrich left-joins priorities onto leads by phone number and sorts ascending
// by priority. Leads without a usable priority get SentinelPriority. A phone
// listed several times in the priority table yields one lead per entry, the
// way a relational left join does; Dedupe keeps the best one.
func Enrich(leads, priorities *tabular.Table) ([]Lead, error) {
	if err := leads.Require(PhoneColumn); err != nil {
		return nil, err
	}
	if err := priorities.Require(PhoneColumn, PriorityColumn); err != nil {
		return nil, err
	}

	lookup := make(map[string][]int)
	for _, row := range priorities.Rows {
		phone := priorities.Value(row, PhoneColumn)
		if tabular.IsMissing(phone) {
			continue
		}
		lookup[phone] = append(lookup[phone], parsePriority(priorities.Value(row, PriorityColumn)))
	}

	out := make([]Lead, 0, len(leads.Rows))
	for _, phone := range leads.Column(PhoneColumn) {
		if tabular.IsMissing(phone) {
			continue
		}
		matches, ok := lookup[phone]
		if !ok {
			out = append(out, Lead{PhoneNumber: phone, Priority: SentinelPriority})
			continue
		}
		for _, p := range matches {
			out = append(out, Lead{PhoneNumber: phone, Priority: p})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out, nil
}

func parsePriority(value string) int {
	if tabular.IsMissing(value) {
		return SentinelPriority
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return SentinelPriority
	}
	return int(f)
}

// Filter drops leads whose master count has reached threshold.
func Filter(leads []Lead, master *Master, threshold int) []Lead {
	if master == nil || master.Len() == 0 {
		return leads
	}

	out := make([]Lead, 0, len(leads))
	for _, l := range leads {
		if rec, ok := master.Lookup(l.PhoneNumber); ok && rec.Count >= threshold {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Dedupe keeps the first lead per phone number.
func Dedupe(leads []Lead) []Lead {
	seen := make(map[string]struct{}, len(leads))
	out := make([]Lead, 0, len(leads))
	for _, l := range leads {
		if _, dup := seen[l.PhoneNumber]; dup {
			continue
		}
		seen[l.PhoneNumber] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Stage resets every lead to an unsent row dated date.
func Stage(leads []Lead, date string) []Lead {
	out := make([]Lead, len(leads))
	for i, l := range leads {
		out[i] = Lead{
			Date:        date,
			PhoneNumber: l.PhoneNumber,
			Priority:    l.Priority,
		}
	}
	return out
}
