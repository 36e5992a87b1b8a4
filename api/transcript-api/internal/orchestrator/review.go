// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_orchestrator

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	internal_entity "github.com/rapidaai/transcript-api/api/transcript-api/internal/entity"
	"github.com/rapidaai/transcript-api/pkg/types"
	"github.com/rapidaai/transcript-api/pkg/utils"
)

// Confirm is the accepting half of the confirmation workflow: ready→confirmed
// with reviewer stamps, then best-effort recording deletion when requested.
// Data minimization is best-effort once the confirmation intent is recorded —
// a storage failure never blocks the committed transition.
func (o *Orchestrator) Confirm(ctx context.Context, transcriptId string, prov Provenance, deleteRecording bool, requirements []byte) (*internal_entity.Transcript, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"confirmed_by": prov.Actor,
		"confirmed_at": now,
	}
	if len(requirements) > 0 {
		updates["requirements"] = requirements
	}
	entry := &auditEntry{
		action: internal_entity.AuditActionConfirmed,
		prov:   prov,
		detail: map[string]interface{}{"deleteRecording": deleteRecording},
	}
	err := o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusReady},
			internal_entity.TranscriptStatusConfirmed, updates)
	})
	if err != nil {
		return nil, err
	}

	if deleteRecording {
		if err := o.DeleteRecording(ctx, transcriptId, prov); err != nil {
			o.logger.Warnf("recording deletion deferred transcript=%s: %v", transcriptId, err)
		}
	}
	return o.FindTranscript(ctx, transcriptId)
}

// DeleteRecording purges the stored audio. It is idempotent and monotonic:
// once deleted, always deleted, and a second call neither errors nor appends
// another recording_deleted audit entry. Exposed separately so a deferred
// deletion can be retried.
func (o *Orchestrator) DeleteRecording(ctx context.Context, transcriptId string, prov Provenance) error {
	transcript, err := o.FindTranscript(ctx, transcriptId)
	if err != nil {
		return err
	}
	if transcript.StorageKey == nil {
		return nil
	}

	if err := o.blobs.Delete(ctx, *transcript.StorageKey); err != nil {
		return err
	}

	entry := &auditEntry{
		action: internal_entity.AuditActionRecordingDeleted,
		prov:   prov,
		detail: map[string]interface{}{"storageKey": *transcript.StorageKey},
	}
	return o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		// Guard on storage_key so a concurrent delete produces exactly one
		// recording_deleted entry.
		res := tx.Model(&internal_entity.Transcript{}).
			Where("id = ? AND storage_key IS NOT NULL", transcriptId).
			Updates(map[string]interface{}{
				"storage_key":          nil,
				"recording_deleted_at": time.Now(),
				"recording_deleted_by": prov.Actor,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return types.NewConflictError("recording for %s already deleted", transcriptId)
		}
		return nil
	})
}

// Reject routes a ready transcript back for re-review with a mandatory
// reason.
func (o *Orchestrator) Reject(ctx context.Context, transcriptId string, prov Provenance, reason string) (*internal_entity.Transcript, error) {
	if utils.IsEmpty(reason) {
		return nil, types.NewValidationError("rejection requires a reason")
	}
	entry := &auditEntry{
		action: internal_entity.AuditActionRejected,
		prov:   prov,
		detail: map[string]interface{}{"reason": reason},
	}
	err := o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusReady},
			internal_entity.TranscriptStatusRejected,
			map[string]interface{}{
				"rejected_by":      prov.Actor,
				"rejected_at":      time.Now(),
				"rejection_reason": reason,
			})
	})
	if err != nil {
		return nil, err
	}
	return o.FindTranscript(ctx, transcriptId)
}

func (o *Orchestrator) Archive(ctx context.Context, transcriptId string, prov Provenance) (*internal_entity.Transcript, error) {
	entry := &auditEntry{action: internal_entity.AuditActionArchived, prov: prov}
	err := o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{
				internal_entity.TranscriptStatusConfirmed,
				internal_entity.TranscriptStatusRejected,
			},
			internal_entity.TranscriptStatusArchived, nil)
	})
	if err != nil {
		return nil, err
	}
	return o.FindTranscript(ctx, transcriptId)
}

// Restore returns an archived transcript to whichever terminal state its
// confirmation stamps prove it held before archiving.
func (o *Orchestrator) Restore(ctx context.Context, transcriptId string, prov Provenance) (*internal_entity.Transcript, error) {
	transcript, err := o.FindTranscript(ctx, transcriptId)
	if err != nil {
		return nil, err
	}
	target := internal_entity.TranscriptStatusRejected
	if transcript.ConfirmedAt != nil {
		target = internal_entity.TranscriptStatusConfirmed
	}

	entry := &auditEntry{
		action: internal_entity.AuditActionRestored,
		prov:   prov,
		detail: map[string]interface{}{"restoredTo": string(target)},
	}
	err = o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusArchived},
			target, nil)
	})
	if err != nil {
		return nil, err
	}
	return o.FindTranscript(ctx, transcriptId)
}

// Playback is the read side of the review workflow: the transcript plus a
// freshly minted short-lived playback URL while the recording still exists.
// Opening a ready transcript leaves a reviewed audit entry.
type Playback struct {
	Transcript  *internal_entity.Transcript
	PlaybackUrl string
	ExpiresAt   *time.Time
}

func (o *Orchestrator) Get(ctx context.Context, transcriptId string, organizationId uint64, prov Provenance) (*Playback, error) {
	var transcript internal_entity.Transcript
	err := o.postgres.DB(ctx).
		First(&transcript, "id = ? AND organization_id = ?", transcriptId, organizationId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("transcript", transcriptId)
		}
		return nil, err
	}

	playback := &Playback{Transcript: &transcript}
	if transcript.StorageKey != nil {
		url, expiresAt, err := o.blobs.PlaybackUrl(ctx, *transcript.StorageKey, playbackTtl)
		if err != nil {
			o.logger.Warnf("playback url unavailable transcript=%s: %v", transcriptId, err)
		} else {
			playback.PlaybackUrl = url
			playback.ExpiresAt = &expiresAt
		}
	}

	if transcript.Status == internal_entity.TranscriptStatusReady && prov.Actor != 0 {
		entry := &auditEntry{action: internal_entity.AuditActionReviewed, prov: prov}
		if err := o.insertAudit(o.postgres.DB(ctx), transcriptId, entry); err != nil {
			o.logger.Errorf("audit append failed transcript=%s action=reviewed: %v", transcriptId, err)
		}
	}
	return playback, nil
}

// Export hands the finished transcript to downstream consumers and leaves an
// exported audit entry; status is untouched.
func (o *Orchestrator) Export(ctx context.Context, transcriptId string, organizationId uint64, prov Provenance) (*internal_entity.Transcript, error) {
	var transcript internal_entity.Transcript
	err := o.postgres.DB(ctx).
		First(&transcript, "id = ? AND organization_id = ?", transcriptId, organizationId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("transcript", transcriptId)
		}
		return nil, err
	}
	entry := &auditEntry{action: internal_entity.AuditActionExported, prov: prov}
	if err := o.insertAudit(o.postgres.DB(ctx), transcriptId, entry); err != nil {
		o.logger.Errorf("audit append failed transcript=%s action=exported: %v", transcriptId, err)
	}
	return &transcript, nil
}

// AttachSummary lets the external summarization collaborator attach its
// output to a ready or confirmed transcript without changing status.
func (o *Orchestrator) AttachSummary(ctx context.Context, transcriptId string, prov Provenance, summary string) error {
	if utils.IsEmpty(summary) {
		return types.NewValidationError("summary must not be empty")
	}
	entry := &auditEntry{action: internal_entity.AuditActionSummaryGenerated, prov: prov}
	return o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		res := tx.Model(&internal_entity.Transcript{}).
			Where("id = ? AND status IN ?", transcriptId, []internal_entity.TranscriptStatus{
				internal_entity.TranscriptStatusReady,
				internal_entity.TranscriptStatusConfirmed,
			}).
			Update("summary", summary)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current internal_entity.Transcript
			if err := tx.Select("status").First(&current, "id = ?", transcriptId).Error; err != nil {
				return types.NewNotFoundError("transcript", transcriptId)
			}
			return types.NewConflictError("transcript %s is %s, summary not attachable", transcriptId, current.Status)
		}
		return nil
	})
}
