// Package notify delivers notifications to configured webhooks: payload
// formatting per webhook type, HTTP dispatch with retries, and a retry
// queue for deliveries that keep failing.
package notify

import (
	"fmt"
	"time"

	"github.com/coachkit/traincue/internal/model"
)

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n *model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// FormatterFor returns the formatter for a webhook type. Unknown types
// fall back to the generic formatter.
func FormatterFor(webhookType string) Formatter {
	switch webhookType {
	case model.WebhookTypeDiscord:
		return &DiscordFormatter{}
	case model.WebhookTypeSlack:
		return &SlackFormatter{}
	default:
		return &GenericFormatter{}
	}
}

// ReminderNotification builds the notification delivered when a scheduled
// reminder fires.
func ReminderNotification(r model.PendingReminder) *model.Notification {
	var message string
	switch r.Direction {
	case model.AfterEnd:
		message = fmt.Sprintf("%s wrapped up. Time to: %s", r.ActivityTitle, r.Title)
	default:
		startAt := r.FireAt.Add(time.Duration(r.OffsetMin) * time.Minute)
		message = fmt.Sprintf("%s starts at %s. Don't forget: %s",
			r.ActivityTitle, startAt.Format("3:04 PM"), r.Title)
	}

	return model.NewNotification(model.NotifyReminder, r.Title, message).
		WithField("Session", r.ActivityTitle).
		WithField("When", r.FireAt.Format("Mon Jan 2, 3:04 PM"))
}
