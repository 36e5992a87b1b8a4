// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_transcription_deepgram

import (
	"context"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	"github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	internal_transcription "github.com/rapidaai/transcript-api/api/transcript-api/internal/transcription"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/configs"
	"github.com/rapidaai/transcript-api/pkg/types"
)

const Provider = "deepgram"

type dpg struct {
	logger commons.Logger
	cfg    *configs.DeepgramConfig
	rest   *listenapi.Client
}

func NewDeepgram(cfg *configs.DeepgramConfig, logger commons.Logger) internal_transcription.SpeechToText {
	c := listen.NewREST(cfg.Key, &interfaces.ClientOptions{})
	return &dpg{
		logger: logger,
		cfg:    cfg,
		rest:   listenapi.New(c),
	}
}

// Submit queues the recording by URL. The provider transcribes offline and
// POSTs the result to the callback URL.
func (co *dpg) Submit(ctx context.Context, req internal_transcription.SubmitRequest) (*internal_transcription.Submission, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:          co.model(),
		SmartFormat:    true,
		Punctuate:      true,
		Utterances:     true,
		Callback:       req.CallbackUrl,
		CallbackMethod: "POST",
	}
	res, err := co.rest.FromURL(ctx, req.AudioUrl, options)
	if err != nil {
		return nil, types.NewUpstreamError(Provider, "transcription submit refused", err)
	}
	co.logger.Debugf("transcription queued transcript=%s request=%s", req.TranscriptId, res.RequestID)
	return &internal_transcription.Submission{
		Provider:  Provider,
		Model:     co.model(),
		RequestId: res.RequestID,
	}, nil
}

func (co *dpg) model() string {
	if co.cfg.Model != "" {
		return co.cfg.Model
	}
	return "nova-2"
}
