package internal_entity

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditActionCreated                AuditAction = "created"
	AuditActionRecordingUploaded      AuditAction = "recording_uploaded"
	AuditActionTranscriptionStarted   AuditAction = "transcription_started"
	AuditActionTranscriptionCompleted AuditAction = "transcription_completed"
	AuditActionSummaryGenerated       AuditAction = "summary_generated"
	AuditActionReviewed               AuditAction = "reviewed"
	AuditActionConfirmed              AuditAction = "confirmed"
	AuditActionRejected               AuditAction = "rejected"
	AuditActionRecordingDeleted       AuditAction = "recording_deleted"
	AuditActionExported               AuditAction = "exported"
	AuditActionArchived               AuditAction = "archived"
	AuditActionRestored               AuditAction = "restored"
	AuditActionFailed                 AuditAction = "failed"
)

var errAuditImmutable = errors.New("audit log entries are immutable")

// TranscriptAuditLog is the append-only trail of lifecycle events. Actor 0 is
// the system (webhook-driven transitions).
type TranscriptAuditLog struct {
	Id        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`

	TranscriptId string      `json:"transcriptId" gorm:"type:uuid;not null;index"`
	Action       AuditAction `json:"action" gorm:"size:40;not null"`
	Actor        uint64      `json:"actor" gorm:"type:bigint;not null;default:0"`
	Detail       []byte      `json:"detail,omitempty" gorm:"type:jsonb"`

	IpAddress string `json:"ipAddress,omitempty" gorm:"size:64"`
	UserAgent string `json:"userAgent,omitempty" gorm:"size:512"`
}

func (TranscriptAuditLog) TableName() string { return "transcript_audit_logs" }

func (a *TranscriptAuditLog) BeforeUpdate(tx *gorm.DB) error {
	return errAuditImmutable
}

func (a *TranscriptAuditLog) BeforeDelete(tx *gorm.DB) error {
	return errAuditImmutable
}
