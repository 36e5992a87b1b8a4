package transcript_routers

import (
	"github.com/gin-gonic/gin"

	transcriptApi "github.com/rapidaai/transcript-api/api/transcript-api/api"
	internal_orchestrator "github.com/rapidaai/transcript-api/api/transcript-api/internal/orchestrator"
	internal_telephony "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony"
	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/connectors"
)

func TranscriptApiRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	orchestrator *internal_orchestrator.Orchestrator,
	telephony internal_telephony.RecordingProvider,
) {
	logger.Info("Internal TranscriptApiRoutes added to engine.")
	tApi := transcriptApi.NewTranscriptApi(cfg, logger, postgres, orchestrator, telephony)

	v1 := engine.Group("/v1")

	// provider callbacks authenticate by signature, not bearer token
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/telephony", tApi.TelephonyWebhook)
		webhooks.POST("/transcription", tApi.TranscriptionWebhook)
	}

	secured := v1.Group("", Authenticator(cfg, logger))
	{
		secured.POST("/consents", tApi.CreateConsent)

		secured.POST("/transcripts", tApi.StartRecording)
		secured.POST("/transcripts/:id/stop", tApi.StopRecording)
		secured.POST("/transcripts/:id/confirm", tApi.ConfirmTranscript)
		secured.POST("/transcripts/:id/reject", tApi.RejectTranscript)
		secured.POST("/transcripts/:id/archive", tApi.ArchiveTranscript)
		secured.POST("/transcripts/:id/restore", tApi.RestoreTranscript)
		secured.POST("/transcripts/:id/summary", tApi.AttachSummary)
		secured.GET("/transcripts/:id", tApi.GetTranscript)
		secured.GET("/transcripts/:id/export", tApi.ExportTranscript)
	}
}

func HealthCheckRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	orchestrator *internal_orchestrator.Orchestrator,
	telephony internal_telephony.RecordingProvider,
) {
	logger.Info("Internal HealthCheckRoutes added to engine.")
	tApi := transcriptApi.NewTranscriptApi(cfg, logger, postgres, orchestrator, telephony)
	engine.GET("/healthz/", tApi.Healthz)
	engine.GET("/readiness/", tApi.Readiness)
}
