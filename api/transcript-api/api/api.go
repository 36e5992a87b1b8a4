package transcript_api

import (
	internal_orchestrator "github.com/rapidaai/transcript-api/api/transcript-api/internal/orchestrator"
	internal_telephony "github.com/rapidaai/transcript-api/api/transcript-api/internal/telephony"
	"github.com/rapidaai/transcript-api/config"
	"github.com/rapidaai/transcript-api/pkg/commons"
	"github.com/rapidaai/transcript-api/pkg/connectors"

	"github.com/gin-gonic/gin"

	"github.com/rapidaai/transcript-api/pkg/types"
)

// TranscriptApi carries the handler dependencies: the orchestrator owns all
// transcript state; the telephony provider is here only for webhook
// signature verification.
type TranscriptApi struct {
	cfg          *config.AppConfig
	logger       commons.Logger
	postgres     connectors.PostgresConnector
	orchestrator *internal_orchestrator.Orchestrator
	telephony    internal_telephony.RecordingProvider
}

func NewTranscriptApi(
	cfg *config.AppConfig,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	orchestrator *internal_orchestrator.Orchestrator,
	telephony internal_telephony.RecordingProvider,
) *TranscriptApi {
	return &TranscriptApi{
		cfg:          cfg,
		logger:       logger,
		postgres:     postgres,
		orchestrator: orchestrator,
		telephony:    telephony,
	}
}

// provenance stitches the authenticated caller and request metadata into the
// audit trail.
func (api *TranscriptApi) provenance(c *gin.Context) internal_orchestrator.Provenance {
	prov := internal_orchestrator.Provenance{
		IpAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if principle, ok := types.GetAuthPrinciple(c); ok {
		prov.Actor = principle.UserId
	}
	return prov
}
