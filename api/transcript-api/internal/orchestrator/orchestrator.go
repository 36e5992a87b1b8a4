// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	internal_entity "github.com/rapidaai/transcript-api/api/transcript-api/internal/entity"
	internal_storage "github.com/rapidaai/transcript-api/api/transcript-api/internal/storage"
	internal_telephony "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony"
	internal_transcription "github.com/rapidaai/transcript-api/api/transcript-api/internal/transcription"
	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/connectors"
	"github.com/rapidaai/transcript-api/pkg/types"
)

// Orchestrator owns the transcript state machine. It is the only writer of
// transcript status; the blob and transcription clients are side-effect
// producers it invokes. Constructed once per process, passed by reference.
type Orchestrator struct {
	cfg       *config.AppConfig
	logger    commons.Logger
	postgres  connectors.PostgresConnector
	redis     connectors.RedisConnector
	blobs     internal_storage.BlobStore
	telephony internal_telephony.RecordingProvider
	stt       internal_transcription.SpeechToText
}

func New(
	cfg *config.AppConfig,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	redis connectors.RedisConnector,
	blobs internal_storage.BlobStore,
	telephony internal_telephony.RecordingProvider,
	stt internal_transcription.SpeechToText,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		postgres:  postgres,
		redis:     redis,
		blobs:     blobs,
		telephony: telephony,
		stt:       stt,
	}
}

// Provenance identifies who drove an operation and from where. Actor 0 is
// the system itself (webhook-driven transitions).
type Provenance struct {
	Actor     uint64
	IpAddress string
	UserAgent string
}

type auditEntry struct {
	action internal_entity.AuditAction
	prov   Provenance
	detail map[string]interface{}
}

// conditionalUpdate applies the optimistic from-state check: the write only
// lands when the row still holds one of the expected statuses. Zero rows
// means a concurrent transition already advanced the transcript.
func (o *Orchestrator) conditionalUpdate(tx *gorm.DB, id string, from []internal_entity.TranscriptStatus, to internal_entity.TranscriptStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	res := tx.Model(&internal_entity.Transcript{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var current internal_entity.Transcript
		if err := tx.Select("status").First(&current, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NewNotFoundError("transcript", id)
			}
			return err
		}
		return types.NewConflictError("transcript %s is %s, cannot move to %s", id, current.Status, to)
	}
	return nil
}

// runInAuditScope runs the transition work and appends its audit entry. By
// default the audit write happens after the transition and its failure is
// logged and swallowed; with AuditStrict both share a transaction and an
// audit failure rolls the transition back.
func (o *Orchestrator) runInAuditScope(ctx context.Context, transcriptId string, entry *auditEntry, work func(tx *gorm.DB) error) error {
	db := o.postgres.DB(ctx)
	if o.cfg.AuditStrict {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := work(tx); err != nil {
				return err
			}
			if entry != nil {
				return o.insertAudit(tx, transcriptId, entry)
			}
			return nil
		})
	}
	if err := work(db); err != nil {
		return err
	}
	if entry != nil {
		if err := o.insertAudit(db, transcriptId, entry); err != nil {
			// Losing an audit entry is less harmful than losing the business
			// transition it documents.
			o.logger.Errorf("audit append failed transcript=%s action=%s: %v", transcriptId, entry.action, err)
		}
	}
	return nil
}

func (o *Orchestrator) insertAudit(tx *gorm.DB, transcriptId string, entry *auditEntry) error {
	var detail []byte
	if len(entry.detail) > 0 {
		detail, _ = json.Marshal(entry.detail)
	}
	return tx.Create(&internal_entity.TranscriptAuditLog{
		CreatedAt:    time.Now(),
		TranscriptId: transcriptId,
		Action:       entry.action,
		Actor:        entry.prov.Actor,
		Detail:       detail,
		IpAddress:    entry.prov.IpAddress,
		UserAgent:    entry.prov.UserAgent,
	}).Error
}

// Fail moves a transcript from any non-terminal state to failed with a
// human-readable status message and a failed audit entry.
func (o *Orchestrator) Fail(ctx context.Context, transcriptId string, message string, prov Provenance) error {
	entry := &auditEntry{
		action: internal_entity.AuditActionFailed,
		prov:   prov,
		detail: map[string]interface{}{"message": message},
	}
	return o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			internal_entity.NonTerminalStatuses(),
			internal_entity.TranscriptStatusFailed,
			map[string]interface{}{"status_message": message})
	})
}

func (o *Orchestrator) FindTranscript(ctx context.Context, id string) (*internal_entity.Transcript, error) {
	var transcript internal_entity.Transcript
	err := o.postgres.DB(ctx).First(&transcript, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("transcript", id)
		}
		return nil, err
	}
	return &transcript, nil
}

// FindTranscriptByCallSid resolves a callback that carries no explicit
// transcript identifier.
func (o *Orchestrator) FindTranscriptByCallSid(ctx context.Context, callSid string) (*internal_entity.Transcript, error) {
	var transcript internal_entity.Transcript
	err := o.postgres.DB(ctx).
		Order("created_at DESC").
		First(&transcript, "call_sid = ?", callSid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("transcript", callSid)
		}
		return nil, err
	}
	return &transcript, nil
}

func (o *Orchestrator) FindTranscriptByRequestId(ctx context.Context, requestId string) (*internal_entity.Transcript, error) {
	if requestId == "" {
		return nil, types.NewNotFoundError("transcript", requestId)
	}
	var transcript internal_entity.Transcript
	err := o.postgres.DB(ctx).First(&transcript, "transcription_request_id = ?", requestId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("transcript", requestId)
		}
		return nil, err
	}
	return &transcript, nil
}
