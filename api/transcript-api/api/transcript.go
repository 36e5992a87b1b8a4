// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package transcript_api

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	internal_orchestrator "github.com/rapidaai/transcript-api/api/transcript-api/internal/orchestrator"
	"github.com/rapidaai/transcript-api/pkg/types"
	"github.com/rapidaai/transcript-api/pkg/utils"
)

type startRecordingRequest struct {
	ConsentId string `json:"consentId" binding:"required,uuid"`
	CallSid   string `json:"callSid" binding:"required"`
}

// StartRecording validates the consent gate and instructs the telephony
// provider to begin recording. The transcript reaches recording only after
// the provider acknowledges.
func (api *TranscriptApi) StartRecording(c *gin.Context) {
	principle, ok := types.GetAuthPrinciple(c)
	if !ok {
		utils.Failure(c, types.NewAuthenticationError("unauthenticated request"), "")
		return
	}
	var request startRecordingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.Failure(c, types.NewValidationError("invalid recording payload: %v", err), "")
		return
	}

	transcript, err := api.orchestrator.StartRecording(c.Request.Context(), internal_orchestrator.StartRecordingInput{
		ConsentId:      request.ConsentId,
		CallSid:        request.CallSid,
		OrganizationId: principle.OrganizationId,
		Prov:           api.provenance(c),
	})
	if err != nil {
		utils.Failure(c, err, "Unable to start the recording, please try again in sometime.")
		return
	}
	utils.Created(c, transcript)
}

// StopRecording ends the provider-side recording; transcript status is not
// touched here, the completion webhook still drives it.
func (api *TranscriptApi) StopRecording(c *gin.Context) {
	if err := api.orchestrator.StopRecording(c.Request.Context(), c.Param("id"), api.provenance(c)); err != nil {
		utils.Failure(c, err, "Unable to stop the recording.")
		return
	}
	utils.Success(c, gin.H{"stopped": true})
}

type confirmTranscriptRequest struct {
	DeleteRecording *bool           `json:"deleteRecording"`
	Requirements    json.RawMessage `json:"requirements"`
}

// ConfirmTranscript accepts a ready transcript. Recording deletion defaults
// to true: once a human has vouched for the text, the raw audio goes.
func (api *TranscriptApi) ConfirmTranscript(c *gin.Context) {
	var request confirmTranscriptRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.Failure(c, types.NewValidationError("invalid confirmation payload: %v", err), "")
		return
	}
	deleteRecording := true
	if request.DeleteRecording != nil {
		deleteRecording = *request.DeleteRecording
	}

	transcript, err := api.orchestrator.Confirm(c.Request.Context(), c.Param("id"), api.provenance(c), deleteRecording, request.Requirements)
	if err != nil {
		utils.Failure(c, err, "Unable to confirm the transcript.")
		return
	}
	utils.Success(c, transcript)
}

type rejectTranscriptRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (api *TranscriptApi) RejectTranscript(c *gin.Context) {
	var request rejectTranscriptRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.Failure(c, types.NewValidationError("rejection requires a reason"), "")
		return
	}
	transcript, err := api.orchestrator.Reject(c.Request.Context(), c.Param("id"), api.provenance(c), request.Reason)
	if err != nil {
		utils.Failure(c, err, "Unable to reject the transcript.")
		return
	}
	utils.Success(c, transcript)
}

func (api *TranscriptApi) ArchiveTranscript(c *gin.Context) {
	transcript, err := api.orchestrator.Archive(c.Request.Context(), c.Param("id"), api.provenance(c))
	if err != nil {
		utils.Failure(c, err, "Unable to archive the transcript.")
		return
	}
	utils.Success(c, transcript)
}

func (api *TranscriptApi) RestoreTranscript(c *gin.Context) {
	transcript, err := api.orchestrator.Restore(c.Request.Context(), c.Param("id"), api.provenance(c))
	if err != nil {
		utils.Failure(c, err, "Unable to restore the transcript.")
		return
	}
	utils.Success(c, transcript)
}

// GetTranscript returns the transcript plus a freshly minted playback URL
// while the recording still exists.
func (api *TranscriptApi) GetTranscript(c *gin.Context) {
	principle, ok := types.GetAuthPrinciple(c)
	if !ok {
		utils.Failure(c, types.NewAuthenticationError("unauthenticated request"), "")
		return
	}
	playback, err := api.orchestrator.Get(c.Request.Context(), c.Param("id"), principle.OrganizationId, api.provenance(c))
	if err != nil {
		utils.Failure(c, err, "Unable to get the transcript.")
		return
	}
	utils.Success(c, gin.H{
		"transcript":  playback.Transcript,
		"playbackUrl": playback.PlaybackUrl,
		"expiresAt":   playback.ExpiresAt,
	})
}

func (api *TranscriptApi) ExportTranscript(c *gin.Context) {
	principle, ok := types.GetAuthPrinciple(c)
	if !ok {
		utils.Failure(c, types.NewAuthenticationError("unauthenticated request"), "")
		return
	}
	transcript, err := api.orchestrator.Export(c.Request.Context(), c.Param("id"), principle.OrganizationId, api.provenance(c))
	if err != nil {
		utils.Failure(c, err, "Unable to export the transcript.")
		return
	}
	utils.Success(c, gin.H{
		"transcriptId":   transcript.Id,
		"text":           transcript.TranscriptionText,
		"structuredJson": json.RawMessage(transcript.TranscriptionJson),
		"summary":        transcript.Summary,
	})
}

type attachSummaryRequest struct {
	Summary string `json:"summary" binding:"required"`
}

// AttachSummary lets the summarization collaborator park its output on a
// ready or confirmed transcript.
func (api *TranscriptApi) AttachSummary(c *gin.Context) {
	var request attachSummaryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.Failure(c, types.NewValidationError("summary must not be empty"), "")
		return
	}
	if err := api.orchestrator.AttachSummary(c.Request.Context(), c.Param("id"), api.provenance(c), request.Summary); err != nil {
		utils.Failure(c, err, "Unable to attach the summary.")
		return
	}
	utils.Success(c, gin.H{"attached": true})
}
