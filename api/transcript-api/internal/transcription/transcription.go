package internal_transcription

import "context"

// SubmitRequest queues a recording for asynchronous transcription. The
// callback URL embeds the transcript identity so the completion webhook can
// find its way home.
type SubmitRequest struct {
	AudioUrl     string
	TranscriptId string
	CallbackUrl  string
}

// Submission is the provider's acceptance of a submit. Failure to accept
// must move the transcript to failed immediately; there is no silent pending
// state.
type Submission struct {
	Provider  string
	Model     string
	RequestId string
}

// Result is a provider completion payload normalized through the
// parse-or-reject boundary. Unknown or malformed payloads are failures,
// never silent no-ops.
type Result struct {
	RequestId       string
	Success         bool
	Error           string
	Text            string
	Structured      []byte
	DurationSeconds float64
	CostCents       int64
}

// SpeechToText is the asynchronous transcription provider. It produces side
// effects only; transcript status stays with the orchestrator.
type SpeechToText interface {
	Submit(ctx context.Context, req SubmitRequest) (*Submission, error)
	ParseCallback(payload []byte) (*Result, error)
}
