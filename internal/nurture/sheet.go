package nurture

import (
	"io"
	"strconv"
	"strings"

	"outreach-desk/internal/tabular"
)

// WorkingColumns is the layout of the editable working sheet.
var WorkingColumns = []string{DateColumn, PhoneColumn, PriorityColumn, SentColumn, TemplateColumn}

// WriteWorkingSheet writes staged leads as CSV for offline editing.
func WriteWorkingSheet(w io.Writer, leads []Lead) error {
	rows := make([][]string, len(leads))
	for i, l := range leads {
		rows[i] = []string{l.Date, l.PhoneNumber, strconv.Itoa(l.Priority), strconv.FormatBool(l.Sent), l.Template}
	}
	return tabular.WriteCSV(w, WorkingColumns, rows)
}

// ReadWorkingSheet reads an edited working sheet back into leads. Rows may
// have been added or removed by the operator.
func ReadWorkingSheet(t *tabular.Table) ([]Lead, error) {
	if err := t.Require(PhoneColumn, SentColumn); err != nil {
		return nil, err
	}

	leads := make([]Lead, 0, len(t.Rows))
	for _, row := range t.Rows {
		template := t.Value(row, TemplateColumn)
		if tabular.IsMissing(template) {
			template = ""
		}
		leads = append(leads, Lead{
			Date:        NormalizeDate(t.Value(row, DateColumn)),
			PhoneNumber: t.Value(row, PhoneColumn),
			Priority:    parsePriority(t.Value(row, PriorityColumn)),
			Sent:        parseSent(t.Value(row, SentColumn)),
			Template:    template,
		})
	}
	return leads, nil
}

func parseSent(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "y", "yes", "x", "sent":
		return true
	}
	return false
}
