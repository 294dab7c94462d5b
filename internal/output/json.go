package output

import (
	"time"

	"github.com/coachkit/traincue/internal/model"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// ActivityOutput represents an activity in JSON output.
type ActivityOutput struct {
	Key         string `json:"key"`
	ShortID     string `json:"short_id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Start       string `json:"start"`
	DurationMin int    `json:"duration_min"`
	External    bool   `json:"external,omitempty"`
}

// NewActivityOutput creates an ActivityOutput from an Activity.
func NewActivityOutput(a *model.Activity) *ActivityOutput {
	return &ActivityOutput{
		Key:         a.Key,
		ShortID:     a.ShortID(),
		Title:       a.Title,
		Date:        a.Date,
		Start:       a.Start,
		DurationMin: a.DurationMin,
		External:    a.External,
	}
}

// TaskOutput represents a task in JSON output.
type TaskOutput struct {
	Key             string `json:"key"`
	ShortID         string `json:"short_id"`
	ActivityKey     string `json:"activity_key"`
	Title           string `json:"title"`
	Note            string `json:"note,omitempty"`
	RemindBeforeMin int    `json:"remind_before_min,omitempty"`
	RemindAfterMin  int    `json:"remind_after_min,omitempty"`
	Completed       bool   `json:"completed"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

// NewTaskOutput creates a TaskOutput from a Task.
func NewTaskOutput(t *model.Task) *TaskOutput {
	out := &TaskOutput{
		Key:             t.Key,
		ShortID:         t.ShortID(),
		ActivityKey:     t.ActivityKey,
		Title:           t.Title,
		Note:            t.Note,
		RemindBeforeMin: t.RemindBeforeMin,
		RemindAfterMin:  t.RemindAfterMin,
		Completed:       t.Completed,
	}
	if !t.CompletedAt.IsZero() {
		out.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

// ActivitiesResponse represents the activity list output in JSON.
type ActivitiesResponse struct {
	Activities []*ActivityOutput `json:"activities"`
	Count      int               `json:"count"`
}

// NewActivitiesResponse creates an ActivitiesResponse.
func NewActivitiesResponse(activities []*model.Activity) *ActivitiesResponse {
	outputs := make([]*ActivityOutput, len(activities))
	for i, a := range activities {
		outputs[i] = NewActivityOutput(a)
	}
	return &ActivitiesResponse{Activities: outputs, Count: len(outputs)}
}

// TasksResponse represents the task list output in JSON.
type TasksResponse struct {
	Tasks []*TaskOutput `json:"tasks"`
	Count int           `json:"count"`
}

// NewTasksResponse creates a TasksResponse.
func NewTasksResponse(tasks []*model.Task) *TasksResponse {
	outputs := make([]*TaskOutput, len(tasks))
	for i, t := range tasks {
		outputs[i] = NewTaskOutput(t)
	}
	return &TasksResponse{Tasks: outputs, Count: len(outputs)}
}

// RefreshResponse represents a refresh run in JSON.
type RefreshResponse struct {
	Status    string `json:"status"`
	Scheduled int    `json:"scheduled"`
	Failed    int    `json:"failed"`
	Deferred  int    `json:"deferred"`
	At        string `json:"at,omitempty"`
}

// ReconcileResponse represents a reconcile run in JSON.
type ReconcileResponse struct {
	Status         string `json:"status"`
	Checked        int    `json:"checked"`
	RemovedOrphans int    `json:"removed_orphans"`
}

// StatsResponse represents queue stats in JSON.
type StatsResponse struct {
	SinkScheduled int      `json:"sink_scheduled"`
	StoreEntries  int      `json:"store_entries"`
	Orphans       int      `json:"orphans"`
	NextFireTimes []string `json:"next_fire_times,omitempty"`
	LastRefreshAt string   `json:"last_refresh_at,omitempty"`
}

// NewStatsResponse creates a StatsResponse from QueueStats.
func NewStatsResponse(stats model.QueueStats) *StatsResponse {
	resp := &StatsResponse{
		SinkScheduled: stats.SinkScheduled,
		StoreEntries:  stats.StoreEntries,
		Orphans:       stats.Orphans,
	}
	for _, t := range stats.NextFireTimes {
		resp.NextFireTimes = append(resp.NextFireTimes, t.Format(time.RFC3339))
	}
	if !stats.LastRefreshAt.IsZero() {
		resp.LastRefreshAt = stats.LastRefreshAt.Format(time.RFC3339)
	}
	return resp
}

// WebhookOutput represents a webhook in JSON output.
type WebhookOutput struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	LastUsed  string `json:"last_used,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// NewWebhookOutput creates a WebhookOutput with a masked URL.
func NewWebhookOutput(w *model.Webhook) *WebhookOutput {
	out := &WebhookOutput{
		Name:      w.Name,
		Type:      w.Type,
		URL:       w.MaskedURL(),
		Enabled:   w.Enabled,
		LastError: w.LastError,
	}
	if !w.LastUsed.IsZero() {
		out.LastUsed = w.LastUsed.Format(time.RFC3339)
	}
	return out
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(status, errMsg, message string) error {
	return j.JSON(ErrorResponse{
		Status:  status,
		Error:   errMsg,
		Message: message,
	})
}
