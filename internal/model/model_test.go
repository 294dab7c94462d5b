package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeLocal(t *testing.T) {
	got, err := ComposeLocal("2024-01-10", "18:00")
	require.NoError(t, err)

	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.January, got.Month())
	assert.Equal(t, 10, got.Day())
	assert.Equal(t, 18, got.Hour())
	assert.Equal(t, 0, got.Minute())
	// The composed instant must carry the local zone, not UTC.
	assert.Equal(t, time.Local, got.Location())
}

func TestComposeLocalInvalid(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock string
	}{
		{"empty", "", ""},
		{"bad_date", "2024-13-40", "18:00"},
		{"bad_clock", "2024-01-10", "25:99"},
		{"wrong_layout", "10/01/2024", "18:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComposeLocal(tt.date, tt.clock)
			assert.Error(t, err)
		})
	}
}

func TestActivityStartEnd(t *testing.T) {
	a := &Activity{Title: "Strength", Date: "2024-01-10", Start: "18:00", DurationMin: 60}

	start, err := a.StartAt()
	require.NoError(t, err)
	end, err := a.EndAt()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, end.Sub(start))
}

func TestNewActivityRoundTrip(t *testing.T) {
	at := time.Date(2024, 6, 1, 7, 30, 0, 0, time.Local)
	a := NewActivity("Morning run", at, 45)

	assert.Equal(t, "2024-06-01", a.Date)
	assert.Equal(t, "07:30", a.Start)

	start, err := a.StartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(at))
}

func TestReminderKeyPerDirection(t *testing.T) {
	taskKey := GenerateTaskKey("abc-123")

	before := ReminderKey(taskKey, BeforeStart)
	after := ReminderKey(taskKey, AfterEnd)

	assert.NotEqual(t, before, after)
	assert.Contains(t, before, taskKey)
	assert.Contains(t, after, taskKey)
}

func TestTaskOffsetFor(t *testing.T) {
	task := NewTask(GenerateActivityKey("act"), "Bring shoes")
	task.RemindBeforeMin = 30
	task.RemindAfterMin = 120

	assert.Equal(t, 30, task.OffsetFor(BeforeStart))
	assert.Equal(t, 120, task.OffsetFor(AfterEnd))
	assert.Equal(t, 0, task.OffsetFor(Direction("bogus")))
	assert.True(t, task.HasReminder())

	task.RemindBeforeMin = 0
	task.RemindAfterMin = 0
	assert.False(t, task.HasReminder())
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, BeforeStart.Valid())
	assert.True(t, AfterEnd.Valid())
	assert.False(t, Direction("sideways").Valid())
}

func TestWebhookTypeDetection(t *testing.T) {
	assert.Equal(t, WebhookTypeDiscord, DetectWebhookType("https://discord.com/api/webhooks/123/abc"))
	assert.Equal(t, WebhookTypeSlack, DetectWebhookType("https://hooks.slack.com/services/T/B/x"))
	assert.Equal(t, WebhookTypeGeneric, DetectWebhookType("https://example.com/hook"))
}

func TestWebhookNameValidation(t *testing.T) {
	assert.True(t, IsValidWebhookName("team-slack"))
	assert.False(t, IsValidWebhookName(""))
	assert.False(t, IsValidWebhookName("-leading-dash"))
}
