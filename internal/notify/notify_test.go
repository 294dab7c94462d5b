package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachkit/traincue/internal/model"
	"github.com/coachkit/traincue/internal/storage"
)

func testNotification() *model.Notification {
	n := model.NewNotification(model.NotifyReminder, "Pack your bag", "Strength starts at 6:00 PM.")
	n.Timestamp = time.Date(2024, 5, 1, 17, 30, 0, 0, time.UTC)
	return n.WithField("Session", "Strength")
}

func TestDiscordFormatter(t *testing.T) {
	data, err := (&DiscordFormatter{}).Format(testNotification())
	require.NoError(t, err)

	var payload discordPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload.Embeds, 1)

	embed := payload.Embeds[0]
	assert.Equal(t, "Pack your bag", embed.Title)
	assert.Equal(t, "Strength starts at 6:00 PM.", embed.Description)
	assert.Equal(t, model.ColorWarning, embed.Color)
	assert.Equal(t, "Traincue", embed.Footer.Text)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Session", embed.Fields[0].Name)
	assert.Equal(t, "Strength", embed.Fields[0].Value)
}

func TestSlackFormatter(t *testing.T) {
	data, err := (&SlackFormatter{}).Format(testNotification())
	require.NoError(t, err)

	var payload slackPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "*Pack your bag*", payload.Text)
	require.NotEmpty(t, payload.Blocks)
	assert.Equal(t, "header", payload.Blocks[0].Type)
	assert.Equal(t, "Pack your bag", payload.Blocks[0].Text.Text)
	require.Len(t, payload.Attachments, 1)
	assert.Equal(t, "#FEE75C", payload.Attachments[0].Color)
}

func TestGenericFormatterDefault(t *testing.T) {
	data, err := (&GenericFormatter{}).Format(testNotification())
	require.NoError(t, err)

	var payload genericPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "reminder", payload.Type)
	assert.Equal(t, "Pack your bag", payload.Title)
	assert.Equal(t, "Strength", payload.Fields["Session"])
}

func TestGenericFormatterTemplate(t *testing.T) {
	f := NewGenericFormatter(`{"text":"{{.Title}}: {{.Message}}"}`)
	data, err := f.Format(testNotification())
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Pack your bag: Strength starts at 6:00 PM."}`, string(data))
}

func TestFormatterFor(t *testing.T) {
	assert.IsType(t, &DiscordFormatter{}, FormatterFor(model.WebhookTypeDiscord))
	assert.IsType(t, &SlackFormatter{}, FormatterFor(model.WebhookTypeSlack))
	assert.IsType(t, &GenericFormatter{}, FormatterFor(model.WebhookTypeGeneric))
	assert.IsType(t, &GenericFormatter{}, FormatterFor("mystery"))
}

func TestReminderNotification(t *testing.T) {
	fireAt := time.Date(2024, 5, 1, 17, 30, 0, 0, time.Local)

	before := ReminderNotification(model.PendingReminder{
		ReminderKey:   "task:t1|before_start",
		Title:         "Fill water bottle",
		ActivityTitle: "Strength",
		FireAt:        fireAt,
		OffsetMin:     30,
		Direction:     model.BeforeStart,
	})
	assert.Equal(t, model.NotifyReminder, before.Type)
	assert.Equal(t, "Fill water bottle", before.Title)
	assert.Contains(t, before.Message, "Strength starts at 6:00 PM")
	assert.Contains(t, before.Message, "Fill water bottle")

	after := ReminderNotification(model.PendingReminder{
		ReminderKey:   "task:t1|after_end",
		Title:         "Log your sets",
		ActivityTitle: "Strength",
		FireAt:        fireAt,
		OffsetMin:     60,
		Direction:     model.AfterEnd,
	})
	assert.Contains(t, after.Message, "wrapped up")
	assert.Contains(t, after.Message, "Log your sets")
}

func setupDispatcher(t *testing.T) (*Dispatcher, *storage.WebhookRepo) {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := storage.NewWebhookRepo(db)
	return NewDispatcher(repo), repo
}

func TestDispatcherSendsToEnabledWebhooks(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	dispatcher, repo := setupDispatcher(t)
	require.NoError(t, repo.Create(model.NewWebhook("coach", model.WebhookTypeGeneric, server.URL)))

	disabled := model.NewWebhook("muted", model.WebhookTypeGeneric, server.URL)
	disabled.Enabled = false
	require.NoError(t, repo.Create(disabled))

	results := dispatcher.Send(context.Background(), testNotification())
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "coach", results[0].WebhookName)
	assert.Equal(t, int32(1), hits.Load())

	// Delivery status lands on the webhook record.
	wh, err := repo.Get("coach")
	require.NoError(t, err)
	assert.False(t, wh.LastUsed.IsZero())
	assert.Empty(t, wh.LastError)
}

func TestDispatcherRecordsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dispatcher, repo := setupDispatcher(t)
	require.NoError(t, repo.Create(model.NewWebhook("coach", model.WebhookTypeGeneric, server.URL)))

	results := dispatcher.Send(context.Background(), testNotification())
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, http.StatusForbidden, results[0].StatusCode)

	wh, err := repo.Get("coach")
	require.NoError(t, err)
	assert.NotEmpty(t, wh.LastError)
}

func TestDispatcherEnqueuesFailedDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	dispatcher, repo := setupDispatcher(t)
	require.NoError(t, repo.Create(model.NewWebhook("coach", model.WebhookTypeGeneric, server.URL)))

	queue := NewRetryQueue(NewHTTPClient())
	dispatcher.WithRetryQueue(queue)

	dispatcher.Send(context.Background(), testNotification())
	assert.Equal(t, 1, queue.Pending())

	stats := queue.Stats()
	assert.Equal(t, 1, stats.TotalQueued)
	assert.Equal(t, 1, stats.QueueSize)

	queue.Clear()
	assert.Equal(t, 0, queue.Pending())
}

func TestDispatcherNoWebhooks(t *testing.T) {
	dispatcher, _ := setupDispatcher(t)
	results := dispatcher.Send(context.Background(), testNotification())
	assert.Nil(t, results)
	assert.False(t, dispatcher.HasEnabledWebhooks())
	assert.Equal(t, 0, dispatcher.CountEnabledWebhooks())
}

func TestTestWebhook(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = json.Marshal(r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher, repo := setupDispatcher(t)
	require.NoError(t, repo.Create(model.NewWebhook("coach", model.WebhookTypeGeneric, server.URL)))

	result := dispatcher.TestWebhook(context.Background(), "coach")
	assert.True(t, result.Success)
	assert.Contains(t, string(body), "Traincue/1.0")

	result = dispatcher.TestWebhook(context.Background(), "missing")
	assert.False(t, result.Success)
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &HTTPClient{
		client:     &http.Client{Timeout: time.Second},
		maxRetries: 2,
		retryDelay: []time.Duration{0, time.Millisecond, time.Millisecond},
	}

	result := client.Send(context.Background(), server.URL, "application/json", []byte(`{}`))
	require.NoError(t, result.Error)
	assert.Equal(t, 2, result.Attempts)
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := &HTTPClient{
		client:     &http.Client{Timeout: time.Second},
		maxRetries: 3,
		retryDelay: []time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond},
	}

	result := client.Send(context.Background(), server.URL, "application/json", []byte(`{}`))
	require.Error(t, result.Error)
	assert.Equal(t, int32(1), hits.Load())
}
