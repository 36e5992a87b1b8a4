// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TranscriptStatus is the state-machine discriminator of a Transcript. Status
// writes go through the orchestrator only.
type TranscriptStatus string

const (
	TranscriptStatusPending      TranscriptStatus = "pending"
	TranscriptStatusRecording    TranscriptStatus = "recording"
	TranscriptStatusProcessing   TranscriptStatus = "processing"
	TranscriptStatusTranscribing TranscriptStatus = "transcribing"
	TranscriptStatusSummarizing  TranscriptStatus = "summarizing"
	TranscriptStatusReady        TranscriptStatus = "ready"
	TranscriptStatusConfirmed    TranscriptStatus = "confirmed"
	TranscriptStatusRejected     TranscriptStatus = "rejected"
	TranscriptStatusArchived     TranscriptStatus = "archived"
	TranscriptStatusFailed       TranscriptStatus = "failed"
)

// transcriptTransitions is the legal-edge table. `failed` is additionally
// reachable from every non-terminal state.
var transcriptTransitions = map[TranscriptStatus][]TranscriptStatus{
	TranscriptStatusPending:      {TranscriptStatusRecording},
	TranscriptStatusRecording:    {TranscriptStatusProcessing},
	TranscriptStatusProcessing:   {TranscriptStatusTranscribing},
	TranscriptStatusTranscribing: {TranscriptStatusSummarizing},
	TranscriptStatusSummarizing:  {TranscriptStatusReady},
	TranscriptStatusReady:        {TranscriptStatusConfirmed, TranscriptStatusRejected},
	TranscriptStatusConfirmed:    {TranscriptStatusArchived},
	TranscriptStatusRejected:     {TranscriptStatusArchived},
	TranscriptStatusArchived:     {TranscriptStatusConfirmed, TranscriptStatusRejected},
}

// Terminal reports whether no failure edge leaves this status.
func (s TranscriptStatus) Terminal() bool {
	switch s {
	case TranscriptStatusConfirmed, TranscriptStatusRejected, TranscriptStatusArchived, TranscriptStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether s -> to is a legal edge.
func (s TranscriptStatus) CanTransition(to TranscriptStatus) bool {
	if to == TranscriptStatusFailed {
		return !s.Terminal()
	}
	for _, next := range transcriptTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// NonTerminalStatuses lists every status a failure edge can leave from.
func NonTerminalStatuses() []TranscriptStatus {
	return []TranscriptStatus{
		TranscriptStatusPending,
		TranscriptStatusRecording,
		TranscriptStatusProcessing,
		TranscriptStatusTranscribing,
		TranscriptStatusSummarizing,
		TranscriptStatusReady,
	}
}

// Transcript tracks one call through its recording/transcription lifecycle.
// Rows are never deleted; confirmation purges the recording, not the row.
type Transcript struct {
	Id        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	OrganizationId uint64 `json:"organizationId" gorm:"type:bigint;not null;index"`
	ClientId       uint64 `json:"clientId" gorm:"type:bigint;not null"`
	OperatorId     uint64 `json:"operatorId" gorm:"type:bigint;not null"`

	// One transcript per consent record.
	ConsentId string       `json:"consentId" gorm:"type:uuid;not null;uniqueIndex"`
	Consent   *CallConsent `json:"consent,omitempty" gorm:"foreignKey:ConsentId"`

	CallSid                  string     `json:"callSid" gorm:"size:64;not null;index"`
	RecordingSid             string     `json:"recordingSid" gorm:"size:64;index"`
	RecordingUrl             string     `json:"recordingUrl"`
	StorageKey               *string    `json:"storageKey,omitempty"`
	RecordingDurationSeconds int64      `json:"recordingDurationSeconds" gorm:"not null;default:0"`
	RecordingSizeBytes       int64      `json:"recordingSizeBytes" gorm:"not null;default:0"`
	RecordingContentType     string     `json:"recordingContentType" gorm:"size:100"`
	RecordingDeletedAt       *time.Time `json:"recordingDeletedAt,omitempty"`
	RecordingDeletedBy       *uint64    `json:"recordingDeletedBy,omitempty"`

	TranscriptionText      *string `json:"transcriptionText,omitempty" gorm:"type:text"`
	TranscriptionJson      []byte  `json:"transcriptionJson,omitempty" gorm:"type:jsonb"`
	TranscriptionProvider  string  `json:"transcriptionProvider" gorm:"size:50"`
	TranscriptionModel     string  `json:"transcriptionModel" gorm:"size:50"`
	TranscriptionRequestId string  `json:"transcriptionRequestId" gorm:"size:100;index"`
	TranscriptionCostCents int64   `json:"transcriptionCostCents" gorm:"not null;default:0"`
	TranscriptionTimeMs    int64   `json:"transcriptionTimeMs" gorm:"not null;default:0"`

	// Written by external collaborators on a ready/confirmed transcript.
	Summary      *string `json:"summary,omitempty" gorm:"type:text"`
	Requirements []byte  `json:"requirements,omitempty" gorm:"type:jsonb"`

	Status        TranscriptStatus `json:"status" gorm:"size:32;not null;default:pending;index"`
	StatusMessage string           `json:"statusMessage" gorm:"type:text"`

	ConfirmedBy     *uint64    `json:"confirmedBy,omitempty"`
	ConfirmedAt     *time.Time `json:"confirmedAt,omitempty"`
	RejectedBy      *uint64    `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`

	AssistantMetadata []byte `json:"assistantMetadata,omitempty" gorm:"type:jsonb"`
}

func (Transcript) TableName() string { return "transcripts" }

func (t *Transcript) BeforeCreate(tx *gorm.DB) error {
	if t.Id == "" {
		t.Id = uuid.New().String()
	}
	return nil
}
