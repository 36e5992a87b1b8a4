// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package transcript_api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	internal_orchestrator "github.com/rapidaai/transcript-api/api/transcript-api/internal/orchestrator"
	internal_telephony_twilio "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony/twilio"
	internal_webhook "github.com/rapidaai/transcript-api/api/transcript-api/internal/webhook"
	"github.com/rapidaai/transcript-api/pkg/types"
	"github.com/rapidaai/transcript-api/pkg/utils"
)

const (
	telephonyProvider     = "twilio"
	transcriptionProvider = "deepgram"
)

// TelephonyWebhook ingests the provider's recording status callbacks:
// verify the request signature over the byte-exact body, resolve the target
// transcript, dedup the delivery, then dispatch into the state machine. The
// provider retries on anything but 2xx, so only signature (403) and payload
// (400) problems refuse the delivery.
func (api *TranscriptApi) TelephonyWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.Failure(c, types.NewValidationError("unreadable webhook body"), "")
		return
	}
	form, err := url.ParseQuery(string(body))
	if err != nil {
		utils.Failure(c, types.NewValidationError("malformed form payload"), "")
		return
	}

	params := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	publicUrl := api.cfg.CallbackHost + c.Request.URL.RequestURI()
	signature := c.GetHeader("X-Twilio-Signature")
	if !api.telephony.ValidateSignature(publicUrl, params, signature) {
		api.logger.Warnf("telephony webhook signature mismatch url=%s ip=%s", publicUrl, c.ClientIP())
		utils.Failure(c, types.NewAuthenticationError("invalid webhook signature"), "")
		return
	}

	event, err := internal_telephony_twilio.ParseRecordingEvent(form)
	if err != nil {
		utils.Failure(c, err, "")
		return
	}

	transcriptId := c.Query("transcriptId")
	if transcriptId == "" {
		transcript, err := api.orchestrator.FindTranscriptByCallSid(c.Request.Context(), event.CallSid)
		if err != nil {
			utils.Failure(c, err, "")
			return
		}
		transcriptId = transcript.Id
	}

	eventKey := fmt.Sprintf("%s:%s", event.RecordingSid, event.Status)
	if event.RecordingSid == "" {
		eventKey = fmt.Sprintf("%s:%s", event.CallSid, event.Status)
	}
	fresh, err := api.orchestrator.RegisterWebhookEvent(c.Request.Context(), telephonyProvider, eventKey, transcriptId, body)
	if err != nil {
		utils.Failure(c, err, "")
		return
	}
	if !fresh {
		api.logger.Debugf("duplicate telephony delivery key=%s", eventKey)
		utils.Ack(c)
		return
	}

	api.dispatch(c, transcriptId, func(ctx context.Context) error {
		return api.orchestrator.HandleRecordingEvent(ctx, transcriptId, event)
	})
}

// TranscriptionWebhook ingests the speech-to-text completion callback. The
// scheme is HMAC-SHA256 over the raw body; with no secret configured the
// callback is accepted only outside production.
func (api *TranscriptApi) TranscriptionWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.Failure(c, types.NewValidationError("unreadable webhook body"), "")
		return
	}

	secret := api.cfg.DeepgramConfig.WebhookSecret
	if secret == "" {
		if utils.FromEnvironmentStr(api.cfg.Environment).IsProduction() {
			api.logger.Errorf("transcription webhook rejected: no secret configured in production")
			utils.Failure(c, types.NewAuthenticationError("webhook secret not configured"), "")
			return
		}
	} else if !internal_webhook.Verify(secret, body, c.GetHeader("X-Signature")) {
		api.logger.Warnf("transcription webhook signature mismatch ip=%s", c.ClientIP())
		utils.Failure(c, types.NewAuthenticationError("invalid webhook signature"), "")
		return
	}

	result, err := api.orchestrator.ParseTranscriptionCallback(body)
	if err != nil {
		utils.Failure(c, err, "")
		return
	}

	transcriptId := c.Query("transcriptId")
	if transcriptId == "" {
		transcript, err := api.orchestrator.FindTranscriptByRequestId(c.Request.Context(), result.RequestId)
		if err != nil {
			utils.Failure(c, err, "")
			return
		}
		transcriptId = transcript.Id
	}

	eventKey := result.RequestId
	if eventKey == "" {
		sum := sha256.Sum256(body)
		eventKey = hex.EncodeToString(sum[:])
	}
	fresh, err := api.orchestrator.RegisterWebhookEvent(c.Request.Context(), transcriptionProvider, eventKey, transcriptId, body)
	if err != nil {
		utils.Failure(c, err, "")
		return
	}
	if !fresh {
		api.logger.Debugf("duplicate transcription delivery key=%s", eventKey)
		utils.Ack(c)
		return
	}

	api.dispatch(c, transcriptId, func(ctx context.Context) error {
		return api.orchestrator.HandleTranscriptionResult(ctx, transcriptId, result)
	})
}

// dispatch runs a webhook handler under the configured processing deadline
// and translates its outcome into the provider-facing response: conflicts
// and upstream failures are acknowledged so the provider stops retrying; a
// deadline hit marks the transcript failed and is acknowledged too.
func (api *TranscriptApi) dispatch(c *gin.Context, transcriptId string, handle func(ctx context.Context) error) {
	timeout := time.Duration(api.cfg.WebhookTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	err := handle(ctx)
	switch {
	case err == nil:
		utils.Ack(c)
	case errors.Is(err, context.DeadlineExceeded):
		api.logger.Errorf("webhook processing timed out transcript=%s", transcriptId)
		failCtx, failCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer failCancel()
		if failErr := api.orchestrator.Fail(failCtx, transcriptId, "webhook processing timed out", internal_orchestrator.Provenance{}); failErr != nil && !types.IsConflict(failErr) {
			api.logger.Errorf("timeout fail transition not applied transcript=%s: %v", transcriptId, failErr)
		}
		utils.Ack(c)
	case types.IsConflict(err):
		api.logger.Debugf("stale webhook for transcript=%s: %v", transcriptId, err)
		utils.Ack(c)
	case types.IsNotFound(err), types.IsValidation(err):
		utils.Failure(c, err, "")
	default:
		var upstream *types.UpstreamError
		if errors.As(err, &upstream) {
			// The transcript is already marked failed; acknowledge so the
			// provider does not retry into a dead channel.
			utils.Ack(c)
			return
		}
		utils.Failure(c, err, "")
	}
}

