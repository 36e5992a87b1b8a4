package internal_orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	internal_entity "github.com/rapidaai/transcript-api/api/transcript-api/internal/entity"
	internal_storage "github.com/rapidaai/transcript-api/api/transcript-api/internal/storage"
	internal_telephony "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony"
	internal_transcription "github.com/rapidaai/transcript-api/api/transcript-api/internal/transcription"
	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/types"
)

// --- Test Harness ---

type testConnector struct {
	db *gorm.DB
}

func (t *testConnector) DB(ctx context.Context) *gorm.DB { return t.db.WithContext(ctx) }
func (t *testConnector) Ping(ctx context.Context) error  { return nil }
func (t *testConnector) Close() error                    { return nil }

type fakeBlobStore struct {
	uploads   []string
	deletes   []string
	uploadErr error
	deleteErr error
	signErr   error
}

func (f *fakeBlobStore) Upload(ctx context.Context, sourceUrl string, owner internal_storage.Ownership) (*internal_storage.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, sourceUrl)
	return &internal_storage.UploadResult{
		StorageKey:  owner.Key(),
		SizeBytes:   2048,
		ContentType: "audio/mpeg",
	}, nil
}

func (f *fakeBlobStore) PlaybackUrl(ctx context.Context, storageKey string, ttl time.Duration) (string, time.Time, error) {
	if f.signErr != nil {
		return "", time.Time{}, f.signErr
	}
	return "https://signed.example/" + storageKey, time.Now().Add(ttl), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, storageKey string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, storageKey)
	return nil
}

type fakeTelephony struct {
	startErr     error
	stopErr      error
	stopped      []string
	callbackUrls []string
}

func (f *fakeTelephony) StartRecording(ctx context.Context, callSid string, callbackUrl string) (*internal_telephony.RecordingAck, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.callbackUrls = append(f.callbackUrls, callbackUrl)
	return &internal_telephony.RecordingAck{RecordingSid: "RE-" + callSid}, nil
}

func (f *fakeTelephony) StopRecording(ctx context.Context, callSid string, recordingSid string) error {
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, callSid)
	return nil
}

func (f *fakeTelephony) ValidateSignature(url string, params map[string]string, signature string) bool {
	return true
}

func (f *fakeTelephony) MediaUrl(recordingUrl string) string { return recordingUrl + ".mp3" }

type fakeSpeechToText struct {
	submitErr   error
	submissions []internal_transcription.SubmitRequest
}

func (f *fakeSpeechToText) Submit(ctx context.Context, req internal_transcription.SubmitRequest) (*internal_transcription.Submission, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submissions = append(f.submissions, req)
	return &internal_transcription.Submission{
		Provider:  "deepgram",
		Model:     "nova-2",
		RequestId: fmt.Sprintf("req-%d", len(f.submissions)),
	}, nil
}

func (f *fakeSpeechToText) ParseCallback(payload []byte) (*internal_transcription.Result, error) {
	return nil, types.NewValidationError("not used in tests")
}

type testHarness struct {
	orchestrator *Orchestrator
	db           *gorm.DB
	blobs        *fakeBlobStore
	telephony    *fakeTelephony
	stt          *fakeSpeechToText
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	sqlDb.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&internal_entity.CallConsent{},
		&internal_entity.Transcript{},
		&internal_entity.TranscriptAuditLog{},
		&internal_entity.WebhookEvent{},
	))

	cfg := &config.AppConfig{
		Name:                  "transcript-api",
		CallbackHost:          "https://api.example.com",
		WebhookTimeoutSeconds: 5,
	}
	h := &testHarness{
		db:        db,
		blobs:     &fakeBlobStore{},
		telephony: &fakeTelephony{},
		stt:       &fakeSpeechToText{},
	}
	h.orchestrator = New(cfg, commons.NewNoopLogger(), &testConnector{db: db}, nil, h.blobs, h.telephony, h.stt)
	return h
}

func (h *testHarness) seedConsent(t *testing.T, organizationId uint64) *internal_entity.CallConsent {
	t.Helper()
	consent, err := h.orchestrator.RecordConsent(context.Background(), ConsentInput{
		OrganizationId: organizationId,
		ClientId:       11,
		OperatorId:     22,
		RecordedBy:     22,
		Method:         internal_entity.ConsentMethodVerbal,
		CallType:       "support",
		CallDirection:  "outbound",
	})
	require.NoError(t, err)
	return consent
}

func (h *testHarness) seedTranscript(t *testing.T, status internal_entity.TranscriptStatus) *internal_entity.Transcript {
	t.Helper()
	consent := h.seedConsent(t, 1)
	storageKey := "recordings/1/CA100/seeded.mp3"
	transcript := &internal_entity.Transcript{
		OrganizationId: 1,
		ClientId:       11,
		OperatorId:     22,
		ConsentId:      consent.Id,
		CallSid:        "CA100",
		RecordingSid:   "RE-CA100",
		Status:         status,
		StorageKey:     &storageKey,
	}
	require.NoError(t, h.db.Create(transcript).Error)
	return transcript
}

func (h *testHarness) status(t *testing.T, id string) internal_entity.TranscriptStatus {
	t.Helper()
	transcript, err := h.orchestrator.FindTranscript(context.Background(), id)
	require.NoError(t, err)
	return transcript.Status
}

func (h *testHarness) auditActions(t *testing.T, id string) []internal_entity.AuditAction {
	t.Helper()
	var entries []internal_entity.TranscriptAuditLog
	require.NoError(t, h.db.Where("transcript_id = ?", id).Order("id").Find(&entries).Error)
	actions := make([]internal_entity.AuditAction, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

// --- Consent Tests ---

func TestRecordConsentValidation(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.orchestrator.RecordConsent(ctx, ConsentInput{Method: "telepathic", CallType: "support", CallDirection: "outbound"})
	assert.True(t, types.IsValidation(err))

	_, err = h.orchestrator.RecordConsent(ctx, ConsentInput{Method: internal_entity.ConsentMethodVerbal})
	assert.True(t, types.IsValidation(err))
}

func TestStartRecordingRequiresConsent(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	_, err := h.orchestrator.StartRecording(ctx, StartRecordingInput{
		ConsentId:      "e2b9c0f0-0000-0000-0000-000000000000",
		CallSid:        "CA1",
		OrganizationId: 1,
	})
	assert.True(t, types.IsNotFound(err))

	var count int64
	require.NoError(t, h.db.Model(&internal_entity.Transcript{}).Count(&count).Error)
	assert.Zero(t, count, "no transcript may exist without consent")
}

func TestStartRecordingConsentScopedToOrganization(t *testing.T) {
	h := newTestHarness(t)
	consent := h.seedConsent(t, 1)

	_, err := h.orchestrator.StartRecording(context.Background(), StartRecordingInput{
		ConsentId:      consent.Id,
		CallSid:        "CA1",
		OrganizationId: 2,
	})
	assert.True(t, types.IsNotFound(err))
}

func TestStartRecordingConsentSingleUse(t *testing.T) {
	h := newTestHarness(t)
	consent := h.seedConsent(t, 1)
	ctx := context.Background()

	_, err := h.orchestrator.StartRecording(ctx, StartRecordingInput{ConsentId: consent.Id, CallSid: "CA1", OrganizationId: 1})
	require.NoError(t, err)

	_, err = h.orchestrator.StartRecording(ctx, StartRecordingInput{ConsentId: consent.Id, CallSid: "CA2", OrganizationId: 1})
	assert.True(t, types.IsConflict(err))
}

// Two concurrent starts can both pass the linked-count check; the loser's
// insert then trips the consent_id unique index and must surface as the same
// conflict the count path reports. The competing row is injected between the
// check and the insert through a create callback.
func TestStartRecordingConsentInsertRace(t *testing.T) {
	h := newTestHarness(t)
	consent := h.seedConsent(t, 1)

	raced := false
	err := h.db.Callback().Create().Before("gorm:create").Register("inject_competing_transcript", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "transcripts" {
			return
		}
		raced = true
		competing := &internal_entity.Transcript{
			OrganizationId: 1,
			ClientId:       11,
			OperatorId:     22,
			ConsentId:      consent.Id,
			CallSid:        "CA-winner",
			Status:         internal_entity.TranscriptStatusPending,
		}
		tx.Session(&gorm.Session{NewDB: true}).Create(competing)
	})
	require.NoError(t, err)

	_, err = h.orchestrator.StartRecording(context.Background(), StartRecordingInput{
		ConsentId:      consent.Id,
		CallSid:        "CA-loser",
		OrganizationId: 1,
	})
	assert.True(t, types.IsConflict(err), "lost insert race must report a conflict, not a raw database error")
	assert.True(t, raced)
}

// --- Recording Lifecycle Tests ---

func TestStartRecordingHappyPath(t *testing.T) {
	h := newTestHarness(t)
	consent := h.seedConsent(t, 1)

	transcript, err := h.orchestrator.StartRecording(context.Background(), StartRecordingInput{
		ConsentId:      consent.Id,
		CallSid:        "CA1",
		OrganizationId: 1,
		Prov:           Provenance{Actor: 22},
	})
	require.NoError(t, err)
	assert.Equal(t, internal_entity.TranscriptStatusRecording, transcript.Status)
	assert.Equal(t, "RE-CA1", transcript.RecordingSid)

	require.Len(t, h.telephony.callbackUrls, 1)
	assert.Contains(t, h.telephony.callbackUrls[0], "https://api.example.com/v1/webhooks/telephony")
	assert.Contains(t, h.telephony.callbackUrls[0], transcript.Id)

	assert.Equal(t, []internal_entity.AuditAction{internal_entity.AuditActionCreated}, h.auditActions(t, transcript.Id))
}

func TestStartRecordingProviderRefusal(t *testing.T) {
	h := newTestHarness(t)
	h.telephony.startErr = types.NewUpstreamError("twilio", "recording refused", nil)
	consent := h.seedConsent(t, 1)

	_, err := h.orchestrator.StartRecording(context.Background(), StartRecordingInput{
		ConsentId:      consent.Id,
		CallSid:        "CA1",
		OrganizationId: 1,
	})
	require.Error(t, err)

	var transcript internal_entity.Transcript
	require.NoError(t, h.db.First(&transcript, "call_sid = ?", "CA1").Error)
	assert.Equal(t, internal_entity.TranscriptStatusFailed, transcript.Status)
	assert.Contains(t, transcript.StatusMessage, "recording start refused")
	assert.Equal(t, []internal_entity.AuditAction{internal_entity.AuditActionFailed}, h.auditActions(t, transcript.Id))
}

func TestRecordingLifecycleToReadyAndConfirm(t *testing.T) {
	h := newTestHarness(t)
	consent := h.seedConsent(t, 1)
	ctx := context.Background()

	created, err := h.orchestrator.StartRecording(ctx, StartRecordingInput{
		ConsentId: consent.Id, CallSid: "CA1", OrganizationId: 1, Prov: Provenance{Actor: 22},
	})
	require.NoError(t, err)

	err = h.orchestrator.HandleRecordingEvent(ctx, created.Id, &internal_telephony.RecordingEvent{
		CallSid:         "CA1",
		RecordingSid:    "RE-CA1",
		RecordingUrl:    "https://api.twilio.com/recordings/RE-CA1",
		Status:          internal_telephony.RecordingEventCompleted,
		DurationSeconds: 93,
	})
	require.NoError(t, err)

	transcript, err := h.orchestrator.FindTranscript(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, internal_entity.TranscriptStatusTranscribing, transcript.Status)
	require.NotNil(t, transcript.StorageKey)
	assert.Equal(t, int64(93), transcript.RecordingDurationSeconds)
	assert.Equal(t, "deepgram", transcript.TranscriptionProvider)
	assert.Equal(t, "req-1", transcript.TranscriptionRequestId)

	require.Len(t, h.blobs.uploads, 1)
	assert.Equal(t, "https://api.twilio.com/recordings/RE-CA1.mp3", h.blobs.uploads[0])
	require.Len(t, h.stt.submissions, 1)
	assert.Contains(t, h.stt.submissions[0].CallbackUrl, "/v1/webhooks/transcription?transcriptId="+created.Id)

	err = h.orchestrator.HandleTranscriptionResult(ctx, created.Id, &internal_transcription.Result{
		RequestId:       "req-1",
		Success:         true,
		Text:            "hello world",
		Structured:      []byte(`{"channels":[]}`),
		DurationSeconds: 93.4,
		CostCents:       5,
	})
	require.NoError(t, err)

	transcript, err = h.orchestrator.FindTranscript(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, internal_entity.TranscriptStatusReady, transcript.Status)
	require.NotNil(t, transcript.TranscriptionText)
	assert.Equal(t, "hello world", *transcript.TranscriptionText)
	assert.Equal(t, int64(5), transcript.TranscriptionCostCents)

	confirmed, err := h.orchestrator.Confirm(ctx, created.Id, Provenance{Actor: 33}, true, []byte(`{"tone":"friendly"}`))
	require.NoError(t, err)
	assert.Equal(t, internal_entity.TranscriptStatusConfirmed, confirmed.Status)
	assert.Nil(t, confirmed.StorageKey, "confirmation purges the recording")
	assert.NotNil(t, confirmed.RecordingDeletedAt)
	require.NotNil(t, confirmed.ConfirmedBy)
	assert.Equal(t, uint64(33), *confirmed.ConfirmedBy)
	require.Len(t, h.blobs.deletes, 1)

	assert.Equal(t, []internal_entity.AuditAction{
		internal_entity.AuditActionCreated,
		internal_entity.AuditActionRecordingUploaded,
		internal_entity.AuditActionRecordingUploaded,
		internal_entity.AuditActionTranscriptionStarted,
		internal_entity.AuditActionTranscriptionCompleted,
		internal_entity.AuditActionConfirmed,
		internal_entity.AuditActionRecordingDeleted,
	}, h.auditActions(t, created.Id))
}

func TestHandleRecordingStartedRace(t *testing.T) {
	h := newTestHarness(t)
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusPending)
	ctx := context.Background()
	evt := &internal_telephony.RecordingEvent{
		CallSid:      "CA100",
		RecordingSid: "RE-CA100",
		Status:       internal_telephony.RecordingEventInProgress,
	}

	require.NoError(t, h.orchestrator.HandleRecordingEvent(ctx, transcript.Id, evt))
	assert.Equal(t, internal_entity.TranscriptStatusRecording, h.status(t, transcript.Id))

	err := h.orchestrator.HandleRecordingEvent(ctx, transcript.Id, evt)
	assert.True(t, types.IsConflict(err), "replayed in-progress event must conflict, not re-run")
}

func TestHandleRecordingCompletedOutOfOrder(t *testing.T) {
	h := newTestHarness(t)
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusPending)

	err := h.orchestrator.HandleRecordingEvent(context.Background(), transcript.Id, &internal_telephony.RecordingEvent{
		CallSid: "CA100",
		Status:  internal_telephony.RecordingEventCompleted,
	})
	assert.True(t, types.IsConflict(err))
	assert.Empty(t, h.blobs.uploads, "no side effects on an illegal transition")
}

func TestHandleRecordingFailedEvent(t *testing.T) {
	h := newTestHarness(t)
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusRecording)

	err := h.orchestrator.HandleRecordingEvent(context.Background(), transcript.Id, &internal_telephony.RecordingEvent{
		CallSid:   "CA100",
		Status:    internal_telephony.RecordingEventFailed,
		ErrorCode: "11200",
	})
	require.NoError(t, err)

	found, err := h.orchestrator.FindTranscript(context.Background(), transcript.Id)
	require.NoError(t, err)
	assert.Equal(t, internal_entity.TranscriptStatusFailed, found.Status)
	assert.Contains(t, found.StatusMessage, "11200")
}

func TestHandleRecordingCompletedUploadFailure(t *testing.T) {
	h := newTestHarness(t)
	h.blobs.uploadErr = fmt.Errorf("bucket unavailable")
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusRecording)

	err := h.orchestrator.HandleRecordingEvent(context.Background(), transcript.Id, &internal_telephony.RecordingEvent{
		CallSid:      "CA100",
		RecordingSid: "RE-CA100",
		RecordingUrl: "https://api.twilio.com/recordings/RE-CA100",
		Status:       internal_telephony.RecordingEventCompleted,
	})
	require.Error(t, err)
	var upstream *types.UpstreamError
	assert.ErrorAs(t, err, &upstream)
	assert.Equal(t, internal_entity.TranscriptStatusFailed, h.status(t, transcript.Id))
	assert.Empty(t, h.stt.submissions, "no transcription submit after a failed transfer")

	// the hop into processing stays on the trail even though the transfer died
	assert.Equal(t, []internal_entity.AuditAction{
		internal_entity.AuditActionRecordingUploaded,
		internal_entity.AuditActionFailed,
	}, h.auditActions(t, transcript.Id))
}

// Every status change of the completion flow must land its own audit entry;
// the recording_uploaded stage detail tells the two hops apart.
func TestHandleRecordingCompletedAuditsEachHop(t *testing.T) {
	h := newTestHarness(t)
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusRecording)

	err := h.orchestrator.HandleRecordingEvent(context.Background(), transcript.Id, &internal_telephony.RecordingEvent{
		CallSid:         "CA100",
		RecordingSid:    "RE-CA100",
		RecordingUrl:    "https://api.twilio.com/recordings/RE-CA100",
		Status:          internal_telephony.RecordingEventCompleted,
		DurationSeconds: 93,
	})
	require.NoError(t, err)

	var entries []internal_entity.TranscriptAuditLog
	require.NoError(t, h.db.Where("transcript_id = ?", transcript.Id).Order("id").Find(&entries).Error)
	require.Len(t, entries, 3)
	assert.Equal(t, internal_entity.AuditActionRecordingUploaded, entries[0].Action)
	assert.Contains(t, string(entries[0].Detail), `"stage":"transfer_started"`)
	assert.Equal(t, internal_entity.AuditActionRecordingUploaded, entries[1].Action)
	assert.Contains(t, string(entries[1].Detail), `"stage":"stored"`)
	assert.Equal(t, internal_entity.AuditActionTranscriptionStarted, entries[2].Action)
}

func TestTranscriptionSubmitRefusal(t *testing.T) {
	h := newTestHarness(t)
	h.stt.submitErr = types.NewUpstreamError("deepgram", "quota exceeded", nil)
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusRecording)

	err := h.orchestrator.HandleRecordingEvent(context.Background(), transcript.Id, &internal_telephony.RecordingEvent{
		CallSid:      "CA100",
		RecordingSid: "RE-CA100",
		RecordingUrl: "https://api.twilio.com/recordings/RE-CA100",
		Status:       internal_telephony.RecordingEventCompleted,
	})
	require.Error(t, err)
	assert.Equal(t, internal_entity.TranscriptStatusFailed, h.status(t, transcript.Id))
}

func TestHandleTranscriptionResultFailure(t *testing.T) {
	h := newTestHarness(t)
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusTranscribing)

	err := h.orchestrator.HandleTranscriptionResult(context.Background(), transcript.Id, &internal_transcription.Result{
		RequestId: "req-1",
		Success:   false,
		Error:     "ASR_TIMEOUT",
	})
	require.NoError(t, err)

	found, err := h.orchestrator.FindTranscript(context.Background(), transcript.Id)
	require.NoError(t, err)
	assert.Equal(t, internal_entity.TranscriptStatusFailed, found.Status)
	assert.Equal(t, "transcription failed: ASR_TIMEOUT", found.StatusMessage)
}

func TestHandleTranscriptionResultReplay(t *testing.T) {
	h := newTestHarness(t)
	transcript := h.seedTranscript(t, internal_entity.TranscriptStatusTranscribing)
	result := &internal_transcription.Result{RequestId: "req-1", Success: true, Text: "hello"}
	ctx := context.Background()

	require.NoError(t, h.orchestrator.HandleTranscriptionResult(ctx, transcript.Id, result))
	err := h.orchestrator.HandleTranscriptionResult(ctx, transcript.Id, result)
	assert.True(t, types.IsConflict(err))
	assert.Equal(t, internal_entity.TranscriptStatusReady, h.status(t, transcript.Id))
}

func TestStopRecording(t *testing.T) {
	h := newTestHarness(t)
	recording := h.seedTranscript(t, internal_entity.TranscriptStatusRecording)
	ctx := context.Background()

	require.NoError(t, h.orchestrator.StopRecording(ctx, recording.Id, Provenance{Actor: 22}))
	assert.Equal(t, []string{"CA100"}, h.telephony.stopped)
	// state still advances only via the completion webhook
	assert.Equal(t, internal_entity.TranscriptStatusRecording, h.status(t, recording.Id))
}

func TestStopRecordingConflictsOutsideRecording(t *testing.T) {
	h := newTestHarness(t)
	ready := h.seedTranscript(t, internal_entity.TranscriptStatusReady)

	err := h.orchestrator.StopRecording(context.Background(), ready.Id, Provenance{})
	assert.True(t, types.IsConflict(err))
	assert.Empty(t, h.telephony.stopped)
}

func TestFailFromTerminalStateConflicts(t *testing.T) {
	h := newTestHarness(t)
	confirmed := h.seedTranscript(t, internal_entity.TranscriptStatusConfirmed)

	err := h.orchestrator.Fail(context.Background(), confirmed.Id, "late failure", Provenance{})
	assert.True(t, types.IsConflict(err))
	assert.Equal(t, internal_entity.TranscriptStatusConfirmed, h.status(t, confirmed.Id))
}
