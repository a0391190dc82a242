package api

import (
	"context"
	"strings"

	"outreach-desk/internal/nurture"

	"github.com/sirupsen/logrus"
)

// TemplateSender delivers one template message. *whatsapp.Client satisfies it.
type TemplateSender interface {
	SendTemplateMessage(ctx context.Context, to, templateName, languageCode string) error
}

// BroadcastReport counts the outcome of delivering a committed session.
type BroadcastReport struct {
	SentTo  int      `json:"sent_to"`
	Total   int      `json:"total"`
	Failed  []string `json:"failed,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// Broadcaster delivers each committed send through WhatsApp. The master is
// already updated at this point; a failed delivery is reported, not undone.
type Broadcaster struct {
	Sender   TemplateSender
	Language string
	Logger   *logrus.Logger
}

func NewBroadcaster(sender TemplateSender, language string, logger *logrus.Logger) *Broadcaster {
	return &Broadcaster{Sender: sender, Language: language, Logger: logger}
}

// Broadcast sends each row's template. Rows without a template name are
// listed in Skipped and never reach the sender.
func (b *Broadcaster) Broadcast(ctx context.Context, sends []nurture.CommittedSend) *BroadcastReport {
	report := &BroadcastReport{Total: len(sends)}
	for _, s := range sends {
		if strings.TrimSpace(s.Template) == "" {
			report.Skipped = append(report.Skipped, s.PhoneNumber)
			continue
		}
		if err := b.Sender.SendTemplateMessage(ctx, s.PhoneNumber, s.Template, b.Language); err != nil {
			b.Logger.WithError(err).WithFields(logrus.Fields{
				"phone":    s.PhoneNumber,
				"template": s.Template,
			}).Warn("failed to broadcast template")
			report.Failed = append(report.Failed, s.PhoneNumber)
			continue
		}
		report.SentTo++
	}

	b.Logger.WithFields(logrus.Fields{"sent_to": report.SentTo, "total": report.Total}).WithField("skipped", len(report.Skipped)).Info("broadcast processed")
	return report
}
