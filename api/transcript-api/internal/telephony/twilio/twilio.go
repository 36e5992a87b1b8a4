// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_telephony_twilio

import (
	"context"
	"strings"

	"github.com/twilio/twilio-go"
	twilio_client "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	internal_telephony "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/configs"
	"github.com/rapidaai/transcript-api/pkg/types"
)

type twl struct {
	logger    commons.Logger
	client    *twilio.RestClient
	validator twilio_client.RequestValidator
}

func NewTwilio(cfg *configs.TwilioConfig, logger commons.Logger) internal_telephony.RecordingProvider {
	return &twl{
		logger: logger,
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSid,
			Password: cfg.AuthToken,
		}),
		validator: twilio_client.NewRequestValidator(cfg.AuthToken),
	}
}

// StartRecording begins a dual-channel recording on an active call. The
// twilio-go client carries no context; the ctx parameter bounds nothing here
// but keeps the provider contract uniform.
func (tpc *twl) StartRecording(ctx context.Context, callSid string, callbackUrl string) (*internal_telephony.RecordingAck, error) {
	params := &openapi.CreateCallRecordingParams{}
	params.SetRecordingStatusCallback(callbackUrl)
	params.SetRecordingStatusCallbackEvent([]string{"in-progress", "completed", "absent"})
	params.SetRecordingChannels("dual")

	recording, err := tpc.client.Api.CreateCallRecording(callSid, params)
	if err != nil {
		return nil, types.NewUpstreamError("twilio", "recording request refused", err)
	}
	ack := &internal_telephony.RecordingAck{}
	if recording.Sid != nil {
		ack.RecordingSid = *recording.Sid
	}
	return ack, nil
}

func (tpc *twl) StopRecording(ctx context.Context, callSid string, recordingSid string) error {
	params := &openapi.UpdateCallRecordingParams{}
	params.SetStatus("stopped")
	if _, err := tpc.client.Api.UpdateCallRecording(callSid, recordingSid, params); err != nil {
		return types.NewUpstreamError("twilio", "recording stop refused", err)
	}
	return nil
}

// ValidateSignature delegates to the SDK validator, which covers the
// provider's method+URL+params signing scheme with a constant-time compare.
func (tpc *twl) ValidateSignature(url string, params map[string]string, signature string) bool {
	return tpc.validator.Validate(url, params, signature)
}

// MediaUrl appends the mp3 rendition to the recording resource URL.
func (tpc *twl) MediaUrl(recordingUrl string) string {
	if strings.HasSuffix(recordingUrl, ".mp3") || strings.HasSuffix(recordingUrl, ".wav") {
		return recordingUrl
	}
	return recordingUrl + ".mp3"
}
