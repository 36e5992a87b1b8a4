package transcript_api

import (
	"time"

	"github.com/gin-gonic/gin"

	internal_entity "github.com/rapidaai/transcript-api/api/transcript-api/internal/entity"
	internal_orchestrator "github.com/rapidaai/transcript-api/api/transcript-api/internal/orchestrator"
	"github.com/rapidaai/transcript-api/pkg/types"
	"github.com/rapidaai/transcript-api/pkg/utils"
)

type createConsentRequest struct {
	ClientId      uint64     `json:"clientId" binding:"required"`
	OperatorId    uint64     `json:"operatorId" binding:"required"`
	Method        string     `json:"method" binding:"required,oneof=verbal written electronic implied"`
	ConsentedAt   *time.Time `json:"consentedAt"`
	CallType      string     `json:"callType" binding:"required"`
	CallDirection string     `json:"callDirection" binding:"required,oneof=inbound outbound"`
	FromNumber    *string    `json:"fromNumber"`
	ToNumber      *string    `json:"toNumber"`
}

// CreateConsent records a compliant authorization to record. The consent
// identifier it returns is the ticket for starting a recording.
func (api *TranscriptApi) CreateConsent(c *gin.Context) {
	principle, ok := types.GetAuthPrinciple(c)
	if !ok {
		utils.Failure(c, types.NewAuthenticationError("unauthenticated request"), "")
		return
	}
	var request createConsentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.Failure(c, types.NewValidationError("invalid consent payload: %v", err), "")
		return
	}

	input := internal_orchestrator.ConsentInput{
		OrganizationId: principle.OrganizationId,
		ClientId:       request.ClientId,
		OperatorId:     request.OperatorId,
		RecordedBy:     principle.UserId,
		Method:         internal_entity.ConsentMethod(request.Method),
		CallType:       request.CallType,
		CallDirection:  request.CallDirection,
		FromNumber:     request.FromNumber,
		ToNumber:       request.ToNumber,
		IpAddress:      c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
	}
	if request.ConsentedAt != nil {
		input.ConsentedAt = *request.ConsentedAt
	}

	consent, err := api.orchestrator.RecordConsent(c.Request.Context(), input)
	if err != nil {
		utils.Failure(c, err, "Unable to record consent, please try again in sometime.")
		return
	}
	utils.Created(c, consent)
}
