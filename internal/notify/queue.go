package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coachkit/traincue/internal/config"
	"github.com/coachkit/traincue/internal/logging"
)

// QueuedDelivery is one formatted payload waiting for redelivery.
type QueuedDelivery struct {
	WebhookName string          `json:"webhook_name"`
	URL         string          `json:"url"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
	CreatedAt   time.Time       `json:"created_at"`
	NextRetry   time.Time       `json:"next_retry"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error,omitempty"`
}

// RetryQueue holds failed deliveries and retries them on an exponential
// backoff schedule. It gives up after the schedule is exhausted.
type RetryQueue struct {
	mu       sync.RWMutex
	queue    []*QueuedDelivery
	client   *HTTPClient
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	interval time.Duration

	totalQueued int
	totalSent   int
	totalFailed int
}

// NewRetryQueue creates a new retry queue with the given HTTP client.
func NewRetryQueue(client *HTTPClient) *RetryQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &RetryQueue{
		queue:    make([]*QueuedDelivery, 0),
		client:   client,
		ctx:      ctx,
		cancel:   cancel,
		interval: config.Global.RetryQueue.CheckInterval,
	}
}

// Start begins processing the retry queue in the background.
func (q *RetryQueue) Start() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	q.wg.Add(1)
	go q.processLoop()
}

// Stop stops the retry queue processor.
func (q *RetryQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// Enqueue adds a failed delivery to the queue.
func (q *RetryQueue) Enqueue(delivery QueuedDelivery, cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delivery.CreatedAt = time.Now()
	delivery.NextRetry = time.Now().Add(backoffFor(0))
	if cause != nil {
		delivery.LastError = cause.Error()
	}

	q.queue = append(q.queue, &delivery)
	q.totalQueued++

	logging.Info("delivery queued for retry",
		logging.KeyWebhook, delivery.WebhookName,
		"queue_size", len(q.queue),
		logging.KeyError, cause)
}

// processLoop runs in the background and processes queued deliveries.
func (q *RetryQueue) processLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processQueue()
		}
	}
}

// processQueue attempts to send every delivery whose retry time arrived.
func (q *RetryQueue) processQueue() {
	q.mu.Lock()
	now := time.Now()

	var ready []*QueuedDelivery
	var remaining []*QueuedDelivery

	for _, d := range q.queue {
		if !d.NextRetry.After(now) {
			ready = append(ready, d)
		} else {
			remaining = append(remaining, d)
		}
	}

	q.queue = remaining
	q.mu.Unlock()

	for _, d := range ready {
		q.processDelivery(d)
	}
}

// processDelivery attempts one redelivery.
func (q *RetryQueue) processDelivery(d *QueuedDelivery) {
	d.Attempts++

	logging.DebugLog("retrying delivery",
		logging.KeyWebhook, d.WebhookName,
		"attempt", d.Attempts)

	result := q.client.Send(q.ctx, d.URL, d.ContentType, d.Body)

	if result.Error == nil {
		q.mu.Lock()
		q.totalSent++
		q.mu.Unlock()

		logging.Info("queued delivery sent",
			logging.KeyWebhook, d.WebhookName,
			"attempts", d.Attempts,
			logging.KeyDuration, result.Duration.Milliseconds())
		return
	}

	d.LastError = result.Error.Error()

	schedule := config.Global.RetryQueue.BackoffSchedule
	if d.Attempts >= len(schedule) {
		q.mu.Lock()
		q.totalFailed++
		q.mu.Unlock()

		logging.Warn("delivery dropped after exhausting retries",
			logging.KeyWebhook, d.WebhookName,
			"attempts", d.Attempts,
			logging.KeyError, result.Error)
		return
	}

	d.NextRetry = time.Now().Add(backoffFor(d.Attempts))

	q.mu.Lock()
	q.queue = append(q.queue, d)
	q.mu.Unlock()

	logging.DebugLog("delivery re-queued",
		logging.KeyWebhook, d.WebhookName,
		"next_retry", d.NextRetry,
		"attempts", d.Attempts)
}

// backoffFor returns the backoff duration for the given attempt number.
func backoffFor(attempt int) time.Duration {
	schedule := config.Global.RetryQueue.BackoffSchedule
	if attempt >= len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[attempt]
}

// RetryStats reports retry queue counters.
type RetryStats struct {
	QueueSize   int `json:"queue_size"`
	TotalQueued int `json:"total_queued"`
	TotalSent   int `json:"total_sent"`
	TotalFailed int `json:"total_failed"`
}

// Stats returns current queue statistics.
func (q *RetryQueue) Stats() RetryStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return RetryStats{
		QueueSize:   len(q.queue),
		TotalQueued: q.totalQueued,
		TotalSent:   q.totalSent,
		TotalFailed: q.totalFailed,
	}
}

// Pending returns the number of pending deliveries.
func (q *RetryQueue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.queue)
}

// Clear removes all pending deliveries.
func (q *RetryQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = make([]*QueuedDelivery, 0)
}
