// Package notify carries the outbound side effects of the scheduling tools:
// Slack messages, confirmation emails and calendar events. Each channel is
// optional; a nil client turns the corresponding notification into a no-op.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier fans booking and stats events out to the configured channels.
type Notifier struct {
	Slack    *SlackClient
	Mail     *Mailer
	Calendar *CalendarClient
}

// PostSlack sends text to the given Slack channel. It reports whether a
// message was actually sent so callers can flag the result.
func (n *Notifier) PostSlack(ctx context.Context, channel, text string) (bool, error) {
	if n == nil || n.Slack == nil {
		log.Debug().Msg("Slack not configured, skipping notification")
		return false, nil
	}
	if err := n.Slack.PostMessage(ctx, channel, text); err != nil {
		return false, err
	}
	return true, nil
}

// SendEmail sends a plain-text email. Missing SMTP configuration is a no-op.
func (n *Notifier) SendEmail(to, subject, body string) error {
	if n == nil || n.Mail == nil {
		log.Debug().Str("to", to).Msg("SMTP not configured, skipping email")
		return nil
	}
	return n.Mail.Send(to, subject, body)
}

// CreateCalendarEvent inserts an event and returns its id. Missing calendar
// configuration returns an empty id with no error.
func (n *Notifier) CreateCalendarEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error) {
	if n == nil || n.Calendar == nil {
		log.Debug().Msg("Calendar not configured, skipping event")
		return "", nil
	}
	return n.Calendar.CreateEvent(ctx, summary, description, start, end)
}
