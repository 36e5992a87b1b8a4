package internal_telephony_twilio

import (
	"net/url"
	"strconv"

	internal_telephony "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony"
	"github.com/rapidaai/transcript-api/pkg/types"
)

// ParseRecordingEvent is the parse-or-reject boundary for the provider's
// form-encoded recording status callback. Unknown statuses are rejected, not
// threaded through as loose strings.
func ParseRecordingEvent(form url.Values) (*internal_telephony.RecordingEvent, error) {
	callSid := form.Get("CallSid")
	status := form.Get("RecordingStatus")
	if callSid == "" || status == "" {
		return nil, types.NewValidationError("recording callback missing CallSid or RecordingStatus")
	}

	evt := &internal_telephony.RecordingEvent{
		CallSid:      callSid,
		RecordingSid: form.Get("RecordingSid"),
		RecordingUrl: form.Get("RecordingUrl"),
		ErrorCode:    form.Get("ErrorCode"),
	}
	switch internal_telephony.RecordingEventStatus(status) {
	case internal_telephony.RecordingEventInProgress:
		evt.Status = internal_telephony.RecordingEventInProgress
	case internal_telephony.RecordingEventCompleted:
		evt.Status = internal_telephony.RecordingEventCompleted
	case internal_telephony.RecordingEventFailed:
		evt.Status = internal_telephony.RecordingEventFailed
	case internal_telephony.RecordingEventAbsent:
		evt.Status = internal_telephony.RecordingEventAbsent
	default:
		return nil, types.NewValidationError("unknown recording status %q", status)
	}

	if d := form.Get("RecordingDuration"); d != "" {
		seconds, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			return nil, types.NewValidationError("malformed RecordingDuration %q", d)
		}
		evt.DurationSeconds = seconds
	}
	return evt, nil
}
