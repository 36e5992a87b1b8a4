// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	internal_entity "github.com/rapidaai/transcript-api/api/transcript-api/internal/entity"
	internal_storage "github.com/rapidaai/transcript-api/api/transcript-api/internal/storage"
	internal_telephony "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony"
	internal_transcription "github.com/rapidaai/transcript-api/api/transcript-api/internal/transcription"
	"github.com/rapidaai/transcript-api/pkg/types"
	"github.com/rapidaai/transcript-api/pkg/utils"
)

const playbackTtl = 15 * time.Minute

type StartRecordingInput struct {
	ConsentId      string
	CallSid        string
	OrganizationId uint64
	Prov           Provenance
}

// StartRecording validates the consent gate, creates a pending transcript,
// asks the telephony provider to record, and moves the transcript to
// recording only once the provider acknowledges. Without a valid consent no
// transcript is created at all.
func (o *Orchestrator) StartRecording(ctx context.Context, input StartRecordingInput) (*internal_entity.Transcript, error) {
	if utils.IsEmpty(input.CallSid) {
		return nil, types.NewValidationError("call sid is required")
	}
	consent, err := o.validConsent(ctx, input.ConsentId, input.OrganizationId)
	if err != nil {
		return nil, err
	}

	transcript := &internal_entity.Transcript{
		OrganizationId: consent.OrganizationId,
		ClientId:       consent.ClientId,
		OperatorId:     consent.OperatorId,
		ConsentId:      consent.Id,
		CallSid:        input.CallSid,
		Status:         internal_entity.TranscriptStatusPending,
	}
	if err := o.postgres.DB(ctx).Create(transcript).Error; err != nil {
		// Two concurrent starts on the same consent can both pass the
		// linked-count check; the consent_id unique index decides the loser.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.NewConflictError("consent %s already backs a transcript", consent.Id)
		}
		return nil, err
	}

	callbackUrl := fmt.Sprintf("%s/v1/webhooks/telephony?transcriptId=%s&organizationId=%d",
		o.cfg.CallbackHost, transcript.Id, transcript.OrganizationId)
	ack, err := o.telephony.StartRecording(ctx, input.CallSid, callbackUrl)
	if err != nil {
		message := fmt.Sprintf("recording start refused: %v", err)
		if failErr := o.Fail(ctx, transcript.Id, message, input.Prov); failErr != nil {
			o.logger.Errorf("failed transition after refused recording transcript=%s: %v", transcript.Id, failErr)
		}
		return nil, err
	}

	entry := &auditEntry{
		action: internal_entity.AuditActionCreated,
		prov:   input.Prov,
		detail: map[string]interface{}{
			"consentId":    consent.Id,
			"callSid":      input.CallSid,
			"recordingSid": ack.RecordingSid,
		},
	}
	err = o.runInAuditScope(ctx, transcript.Id, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcript.Id,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusPending},
			internal_entity.TranscriptStatusRecording,
			map[string]interface{}{"recording_sid": ack.RecordingSid})
	})
	if err != nil {
		// The provider's in-progress callback can land before our own ack
		// transition; losing that race is fine as long as the transcript has
		// in fact advanced.
		if !types.IsConflict(err) {
			return nil, err
		}
	}
	return o.FindTranscript(ctx, transcript.Id)
}

// StopRecording is an explicit operation against the provider; it changes no
// transcript state. The recording→processing transition still happens only
// via the completion webhook.
func (o *Orchestrator) StopRecording(ctx context.Context, transcriptId string, prov Provenance) error {
	transcript, err := o.FindTranscript(ctx, transcriptId)
	if err != nil {
		return err
	}
	if transcript.Status != internal_entity.TranscriptStatusRecording {
		return types.NewConflictError("transcript %s is %s, nothing to stop", transcriptId, transcript.Status)
	}
	return o.telephony.StopRecording(ctx, transcript.CallSid, transcript.RecordingSid)
}

// RegisterWebhookEvent makes webhook processing idempotent. The dedup insert
// happens before any side-effecting work; the uniqueness constraint is the
// source of truth and redis is a best-effort fast path in front of it.
func (o *Orchestrator) RegisterWebhookEvent(ctx context.Context, provider, eventKey, transcriptId string, payload []byte) (bool, error) {
	if o.redis != nil {
		cacheKey := fmt.Sprintf("webhook:%s:%s", provider, eventKey)
		fresh, err := o.redis.Client().SetNX(ctx, cacheKey, 1, 24*time.Hour).Result()
		if err != nil {
			o.logger.Warnf("webhook dedup cache unavailable: %v", err)
		} else if !fresh {
			return false, nil
		}
	}

	event := &internal_entity.WebhookEvent{
		Provider:     provider,
		EventKey:     eventKey,
		TranscriptId: transcriptId,
		Payload:      payload,
	}
	if err := o.postgres.DB(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HandleRecordingEvent applies a telephony recording callback to the state
// machine.
func (o *Orchestrator) HandleRecordingEvent(ctx context.Context, transcriptId string, evt *internal_telephony.RecordingEvent) error {
	switch evt.Status {
	case internal_telephony.RecordingEventInProgress:
		return o.handleRecordingStarted(ctx, transcriptId, evt)
	case internal_telephony.RecordingEventCompleted:
		return o.handleRecordingCompleted(ctx, transcriptId, evt)
	case internal_telephony.RecordingEventFailed, internal_telephony.RecordingEventAbsent:
		message := fmt.Sprintf("recording %s", evt.Status)
		if evt.ErrorCode != "" {
			message = fmt.Sprintf("recording %s: error %s", evt.Status, evt.ErrorCode)
		}
		return o.Fail(ctx, transcriptId, message, Provenance{})
	default:
		return types.NewValidationError("unhandled recording event %q", evt.Status)
	}
}

// handleRecordingStarted covers the race where the provider's in-progress
// callback beats the synchronous ack in StartRecording. A transcript already
// past pending makes this a duplicate, reported as a conflict the webhook
// surface acknowledges.
func (o *Orchestrator) handleRecordingStarted(ctx context.Context, transcriptId string, evt *internal_telephony.RecordingEvent) error {
	entry := &auditEntry{
		action: internal_entity.AuditActionCreated,
		detail: map[string]interface{}{
			"callSid":      evt.CallSid,
			"recordingSid": evt.RecordingSid,
			"via":          "webhook",
		},
	}
	return o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusPending},
			internal_entity.TranscriptStatusRecording,
			map[string]interface{}{"recording_sid": evt.RecordingSid})
	})
}

// handleRecordingCompleted drives recording→processing→transcribing: move to
// processing, transfer the blob, move to transcribing and submit for
// transcription. Each status hop appends its own recording_uploaded entry with
// a stage detail, so a crash mid-transfer still leaves the processing hop on
// the audit trail. A provider failure anywhere lands the transcript in failed
// with the error in its status message.
func (o *Orchestrator) handleRecordingCompleted(ctx context.Context, transcriptId string, evt *internal_telephony.RecordingEvent) error {
	transcript, err := o.FindTranscript(ctx, transcriptId)
	if err != nil {
		return err
	}

	entry := &auditEntry{
		action: internal_entity.AuditActionRecordingUploaded,
		detail: map[string]interface{}{
			"stage":           "transfer_started",
			"recordingSid":    evt.RecordingSid,
			"durationSeconds": evt.DurationSeconds,
		},
	}
	err = o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusRecording},
			internal_entity.TranscriptStatusProcessing,
			map[string]interface{}{
				"recording_sid":              evt.RecordingSid,
				"recording_url":              evt.RecordingUrl,
				"recording_duration_seconds": evt.DurationSeconds,
			})
	})
	if err != nil {
		return err
	}

	owner := internal_storage.Ownership{
		OrganizationId: transcript.OrganizationId,
		CallSid:        transcript.CallSid,
		TranscriptId:   transcript.Id,
	}
	uploaded, err := o.blobs.Upload(ctx, o.telephony.MediaUrl(evt.RecordingUrl), owner)
	if err != nil {
		return o.failUpstream(ctx, transcriptId, "recording transfer failed", err)
	}

	entry = &auditEntry{
		action: internal_entity.AuditActionRecordingUploaded,
		detail: map[string]interface{}{
			"stage":      "stored",
			"storageKey": uploaded.StorageKey,
			"sizeBytes":  uploaded.SizeBytes,
		},
	}
	err = o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusProcessing},
			internal_entity.TranscriptStatusTranscribing,
			map[string]interface{}{
				"storage_key":            uploaded.StorageKey,
				"recording_size_bytes":   uploaded.SizeBytes,
				"recording_content_type": uploaded.ContentType,
			})
	})
	if err != nil {
		return err
	}

	return o.submitTranscription(ctx, transcriptId, uploaded.StorageKey)
}

// submitTranscription hands the durable recording to the speech-to-text
// provider. Refusal moves the transcript to failed immediately; there is no
// silent pending state.
func (o *Orchestrator) submitTranscription(ctx context.Context, transcriptId string, storageKey string) error {
	audioUrl, _, err := o.blobs.PlaybackUrl(ctx, storageKey, time.Hour)
	if err != nil {
		return o.failUpstream(ctx, transcriptId, "recording url signing failed", err)
	}

	callbackUrl := fmt.Sprintf("%s/v1/webhooks/transcription?transcriptId=%s", o.cfg.CallbackHost, transcriptId)
	submission, err := o.stt.Submit(ctx, internal_transcription.SubmitRequest{
		AudioUrl:     audioUrl,
		TranscriptId: transcriptId,
		CallbackUrl:  callbackUrl,
	})
	if err != nil {
		return o.failUpstream(ctx, transcriptId, "transcription submit refused", err)
	}

	entry := &auditEntry{
		action: internal_entity.AuditActionTranscriptionStarted,
		detail: map[string]interface{}{
			"provider":  submission.Provider,
			"model":     submission.Model,
			"requestId": submission.RequestId,
		},
	}
	return o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		return tx.Model(&internal_entity.Transcript{}).
			Where("id = ?", transcriptId).
			Updates(map[string]interface{}{
				"transcription_provider":   submission.Provider,
				"transcription_model":      submission.Model,
				"transcription_request_id": submission.RequestId,
			}).Error
	})
}

// HandleTranscriptionResult applies a speech-to-text completion callback.
// Success walks transcribing→summarizing→ready; summary generation itself is
// an external collaborator, so the machine does not park in summarizing.
func (o *Orchestrator) HandleTranscriptionResult(ctx context.Context, transcriptId string, result *internal_transcription.Result) error {
	if !result.Success {
		message := result.Error
		if message == "" {
			message = "transcription failed"
		}
		return o.Fail(ctx, transcriptId, fmt.Sprintf("transcription failed: %s", message), Provenance{})
	}

	transcript, err := o.FindTranscript(ctx, transcriptId)
	if err != nil {
		return err
	}
	processingMs := time.Since(transcript.UpdatedAt).Milliseconds()

	entry := &auditEntry{
		action: internal_entity.AuditActionTranscriptionCompleted,
		detail: map[string]interface{}{
			"requestId":       result.RequestId,
			"durationSeconds": result.DurationSeconds,
			"costCents":       result.CostCents,
		},
	}
	return o.runInAuditScope(ctx, transcriptId, entry, func(tx *gorm.DB) error {
		err := o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusTranscribing},
			internal_entity.TranscriptStatusSummarizing,
			map[string]interface{}{
				"transcription_text":       result.Text,
				"transcription_json":       result.Structured,
				"transcription_cost_cents": result.CostCents,
				"transcription_time_ms":    processingMs,
				"status_message":           "",
			})
		if err != nil {
			return err
		}
		return o.conditionalUpdate(tx, transcriptId,
			[]internal_entity.TranscriptStatus{internal_entity.TranscriptStatusSummarizing},
			internal_entity.TranscriptStatusReady, nil)
	})
}

// ParseTranscriptionCallback exposes the provider's parse-or-reject boundary
// to the webhook surface without leaking the provider package into it.
func (o *Orchestrator) ParseTranscriptionCallback(payload []byte) (*internal_transcription.Result, error) {
	return o.stt.ParseCallback(payload)
}

func (o *Orchestrator) failUpstream(ctx context.Context, transcriptId, message string, cause error) error {
	full := fmt.Sprintf("%s: %v", message, cause)
	if err := o.Fail(ctx, transcriptId, full, Provenance{}); err != nil {
		o.logger.Errorf("failed transition not applied transcript=%s: %v", transcriptId, err)
	}
	var upstream *types.UpstreamError
	if errors.As(cause, &upstream) {
		return cause
	}
	return types.NewUpstreamError("provider", message, cause)
}
