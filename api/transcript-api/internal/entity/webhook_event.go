package internal_entity

import "time"

// WebhookEvent is the dedup ledger for inbound callbacks. The uniqueness
// constraint on (provider, event_key) is the single source of truth: the
// insert happens before any side-effecting work, so a retried delivery
// conflicts here and is acknowledged without re-running side effects.
type WebhookEvent struct {
	Id         uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	ReceivedAt time.Time `json:"receivedAt" gorm:"not null;autoCreateTime"`

	Provider     string `json:"provider" gorm:"size:32;not null;uniqueIndex:ux_webhook_provider_event,priority:1"`
	EventKey     string `json:"eventKey" gorm:"size:200;not null;uniqueIndex:ux_webhook_provider_event,priority:2"`
	TranscriptId string `json:"transcriptId" gorm:"type:uuid"`
	Payload      []byte `json:"payload,omitempty" gorm:"type:jsonb"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
