package internal_orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_entity "github.com/rapidaai/transcript-api/api/transcript-api/internal/entity"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/connectors"
)

// --- Webhook Dedup Tests ---

func TestRegisterWebhookEventDedup(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	fresh, err := h.orchestrator.RegisterWebhookEvent(ctx, "twilio", "RE1:completed", "t-1", []byte("payload"))
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = h.orchestrator.RegisterWebhookEvent(ctx, "twilio", "RE1:completed", "t-1", []byte("payload"))
	require.NoError(t, err)
	assert.False(t, fresh, "a replayed delivery is not fresh")

	// same key under another provider is a distinct event
	fresh, err = h.orchestrator.RegisterWebhookEvent(ctx, "deepgram", "RE1:completed", "t-1", []byte("payload"))
	require.NoError(t, err)
	assert.True(t, fresh)

	var count int64
	require.NoError(t, h.db.Model(&internal_entity.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRegisterWebhookEventRedisFastPath(t *testing.T) {
	h := newTestHarness(t)
	client, mock := redismock.NewClientMock()
	h.orchestrator.redis = connectors.NewRedisConnectorWithClient(client, commons.NewNoopLogger())
	ctx := context.Background()

	mock.ExpectSetNX("webhook:twilio:RE1:completed", 1, 24*time.Hour).SetVal(false)
	fresh, err := h.orchestrator.RegisterWebhookEvent(ctx, "twilio", "RE1:completed", "t-1", nil)
	require.NoError(t, err)
	assert.False(t, fresh)

	var count int64
	require.NoError(t, h.db.Model(&internal_entity.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count, "the fast path answers without touching the database")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterWebhookEventSurvivesRedisOutage(t *testing.T) {
	h := newTestHarness(t)
	client, mock := redismock.NewClientMock()
	h.orchestrator.redis = connectors.NewRedisConnectorWithClient(client, commons.NewNoopLogger())
	ctx := context.Background()

	mock.ExpectSetNX("webhook:twilio:RE1:completed", 1, 24*time.Hour).SetErr(fmt.Errorf("connection refused"))
	fresh, err := h.orchestrator.RegisterWebhookEvent(ctx, "twilio", "RE1:completed", "t-1", nil)
	require.NoError(t, err, "the database constraint remains the source of truth")
	assert.True(t, fresh)
	require.NoError(t, mock.ExpectationsWereMet())
}
