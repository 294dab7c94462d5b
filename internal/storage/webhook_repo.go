package storage

import (
	"github.com/coachkit/traincue/internal/model"
)

// WebhookRepo provides operations for Webhook entities.
type WebhookRepo struct {
	db *DB
}

// NewWebhookRepo creates a new webhook repository.
func NewWebhookRepo(db *DB) *WebhookRepo {
	return &WebhookRepo{db: db}
}

// Create creates a new webhook keyed by name.
func (r *WebhookRepo) Create(webhook *model.Webhook) error {
	if webhook.Key == "" {
		webhook.Key = model.GenerateWebhookKey(webhook.Name)
	}
	return r.db.Set(webhook)
}

// Get retrieves a webhook by name.
func (r *WebhookRepo) Get(name string) (*model.Webhook, error) {
	webhook := &model.Webhook{}
	if err := r.db.Get(model.GenerateWebhookKey(name), webhook); err != nil {
		return nil, err
	}
	return webhook, nil
}

// List retrieves all webhooks.
func (r *WebhookRepo) List() ([]*model.Webhook, error) {
	return GetAllByPrefix(r.db, model.PrefixWebhook+":", func() *model.Webhook {
		return &model.Webhook{}
	})
}

// ListEnabled retrieves all enabled webhooks.
func (r *WebhookRepo) ListEnabled() ([]*model.Webhook, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Webhook
	for _, w := range all {
		if w.IsEnabled() {
			result = append(result, w)
		}
	}
	return result, nil
}

// Update updates an existing webhook.
func (r *WebhookRepo) Update(webhook *model.Webhook) error {
	return r.db.Set(webhook)
}

// Delete removes a webhook by name.
func (r *WebhookRepo) Delete(name string) error {
	return r.db.Delete(model.GenerateWebhookKey(name))
}

// SetEnabled toggles a webhook on or off.
func (r *WebhookRepo) SetEnabled(name string, enabled bool) error {
	webhook, err := r.Get(name)
	if err != nil {
		return err
	}
	webhook.Enabled = enabled
	return r.db.Set(webhook)
}

// UpdateLastUsed records the last delivery attempt for a webhook.
func (r *WebhookRepo) UpdateLastUsed(name string, lastErr error) error {
	webhook, err := r.Get(name)
	if err != nil {
		return err
	}

	webhook.LastUsed = nowFunc()
	if lastErr != nil {
		webhook.LastError = lastErr.Error()
	} else {
		webhook.LastError = ""
	}
	return r.db.Set(webhook)
}

// Exists checks if a webhook exists.
func (r *WebhookRepo) Exists(name string) (bool, error) {
	return r.db.Exists(model.GenerateWebhookKey(name))
}
