package billing

import "time"

// WebhookEvent records every gateway event id that reached a handler. The
// unique (provider, provider_event_id) pair makes redeliveries no-ops.
type WebhookEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Provider        string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_webhook_events_provider_event,priority:1" json:"provider"`
	ProviderEventID string    `gorm:"type:varchar(191);not null;uniqueIndex:idx_webhook_events_provider_event,priority:2" json:"provider_event_id"`
	EventType       string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Result          string    `gorm:"type:varchar(20);not null" json:"result"`
	Message         string    `gorm:"type:text" json:"message,omitempty"`
	ProcessedAt     time.Time `json:"processed_at"`
	CreatedAt       time.Time `json:"created_at"`
}
