package internal_telephony

import "context"

// RecordingEventStatus is the normalized vocabulary of telephony recording
// callbacks.
type RecordingEventStatus string

const (
	RecordingEventInProgress RecordingEventStatus = "in-progress"
	RecordingEventCompleted  RecordingEventStatus = "completed"
	RecordingEventFailed     RecordingEventStatus = "failed"
	RecordingEventAbsent     RecordingEventStatus = "absent"
)

// RecordingEvent is a telephony webhook normalized through the provider's
// parse-or-reject boundary.
type RecordingEvent struct {
	CallSid         string
	RecordingSid    string
	RecordingUrl    string
	Status          RecordingEventStatus
	DurationSeconds int64
	ErrorCode       string
}

type RecordingAck struct {
	RecordingSid string
}

// RecordingProvider starts and stops call recordings and authenticates the
// provider's callbacks. It has no access to transcript state.
type RecordingProvider interface {
	// StartRecording asks the provider to record callSid, delivering status
	// callbacks to callbackUrl. The returned ack means the provider accepted
	// the request, not that recording finished.
	StartRecording(ctx context.Context, callSid string, callbackUrl string) (*RecordingAck, error)
	// StopRecording ends an in-flight recording. Completion still arrives
	// via webhook; this call changes no transcript state.
	StopRecording(ctx context.Context, callSid string, recordingSid string) error
	// ValidateSignature checks the provider's request signature over the
	// public URL and the posted params.
	ValidateSignature(url string, params map[string]string, signature string) bool
	// MediaUrl converts a callback's recording URL into the fetchable media
	// URL.
	MediaUrl(recordingUrl string) string
}
