package internal_transcription_deepgram

import (
	"encoding/json"
	"math"

	internal_transcription "github.com/rapidaai/transcript-api/api/transcript-api/internal/transcription"
	"github.com/rapidaai/transcript-api/pkg/types"
)

// callbackEnvelope is the strict schema of the provider's completion
// callback. The provider reports failures either through err_code/err_msg or
// through an explicit success flag; both shapes are handled here and nowhere
// else.
type callbackEnvelope struct {
	Success *bool    `json:"success,omitempty"`
	Error   string   `json:"error,omitempty"`
	ErrCode string   `json:"err_code,omitempty"`
	ErrMsg  string   `json:"err_msg,omitempty"`
	Cost    *float64 `json:"cost,omitempty"` // dollars

	Metadata *struct {
		RequestId string  `json:"request_id"`
		Duration  float64 `json:"duration"`
	} `json:"metadata,omitempty"`

	Results json.RawMessage `json:"results,omitempty"`
}

type callbackResults struct {
	Channels []struct {
		Alternatives []struct {
			Transcript string          `json:"transcript"`
			Confidence float64         `json:"confidence"`
			Words      json.RawMessage `json:"words"`
		} `json:"alternatives"`
	} `json:"channels"`
}

// ParseCallback normalizes the provider payload. Malformed payloads return a
// ValidationError so the webhook surface rejects them with 400 instead of
// quietly acknowledging garbage.
func (co *dpg) ParseCallback(payload []byte) (*internal_transcription.Result, error) {
	var envelope callbackEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, types.NewValidationError("malformed transcription callback: %v", err)
	}

	result := &internal_transcription.Result{}
	if envelope.Metadata != nil {
		result.RequestId = envelope.Metadata.RequestId
		result.DurationSeconds = envelope.Metadata.Duration
	}
	if envelope.Cost != nil {
		result.CostCents = int64(math.Round(*envelope.Cost * 100))
	}

	if failure, message := envelope.failure(); failure {
		result.Success = false
		result.Error = message
		return result, nil
	}

	if len(envelope.Results) == 0 {
		return nil, types.NewValidationError("transcription callback carries neither results nor an error")
	}
	var results callbackResults
	if err := json.Unmarshal(envelope.Results, &results); err != nil {
		return nil, types.NewValidationError("malformed transcription results: %v", err)
	}
	if len(results.Channels) == 0 || len(results.Channels[0].Alternatives) == 0 {
		return nil, types.NewValidationError("transcription callback has no alternatives")
	}

	result.Success = true
	result.Text = results.Channels[0].Alternatives[0].Transcript
	result.Structured = envelope.Results
	return result, nil
}

func (e *callbackEnvelope) failure() (bool, string) {
	if e.Success != nil && !*e.Success {
		for _, m := range []string{e.Error, e.ErrMsg, e.ErrCode} {
			if m != "" {
				return true, m
			}
		}
		return true, "transcription failed"
	}
	if e.ErrCode != "" || e.ErrMsg != "" {
		if e.ErrMsg != "" {
			return true, e.ErrMsg
		}
		return true, e.ErrCode
	}
	return false, ""
}
