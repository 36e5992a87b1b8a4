package internal_orchestrator

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	internal_entity "github.com/rapidaai/transcript-api/api/transcript-api/internal/entity"
	"github.com/rapidaai/transcript-api/pkg/types"
)

type ConsentInput struct {
	OrganizationId uint64
	ClientId       uint64
	OperatorId     uint64
	RecordedBy     uint64
	Method         internal_entity.ConsentMethod
	ConsentedAt    time.Time
	CallType       string
	CallDirection  string
	FromNumber     *string
	ToNumber       *string
	IpAddress      string
	UserAgent      string
}

// RecordConsent is a pure insert; consent records are never updated or
// deleted.
func (o *Orchestrator) RecordConsent(ctx context.Context, input ConsentInput) (*internal_entity.CallConsent, error) {
	if !input.Method.Valid() {
		return nil, types.NewValidationError("unknown consent method %q", input.Method)
	}
	if input.CallType == "" || input.CallDirection == "" {
		return nil, types.NewValidationError("consent requires call type and direction")
	}
	if input.ConsentedAt.IsZero() {
		input.ConsentedAt = time.Now()
	}

	consent := &internal_entity.CallConsent{
		OrganizationId: input.OrganizationId,
		ClientId:       input.ClientId,
		OperatorId:     input.OperatorId,
		Method:         input.Method,
		ConsentedAt:    input.ConsentedAt,
		RecordedBy:     input.RecordedBy,
		CallType:       input.CallType,
		CallDirection:  input.CallDirection,
		FromNumber:     input.FromNumber,
		ToNumber:       input.ToNumber,
		IpAddress:      input.IpAddress,
		UserAgent:      input.UserAgent,
	}
	if err := o.postgres.DB(ctx).Create(consent).Error; err != nil {
		return nil, err
	}
	o.logger.Infof("consent recorded id=%s org=%d method=%s", consent.Id, consent.OrganizationId, consent.Method)
	return consent, nil
}

// validConsent enforces the consent gate: the record must exist, belong to
// the caller's organization, and not already back another transcript.
func (o *Orchestrator) validConsent(ctx context.Context, consentId string, organizationId uint64) (*internal_entity.CallConsent, error) {
	var consent internal_entity.CallConsent
	err := o.postgres.DB(ctx).First(&consent, "id = ? AND organization_id = ?", consentId, organizationId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewNotFoundError("consent", consentId)
		}
		return nil, err
	}

	var linked int64
	if err := o.postgres.DB(ctx).Model(&internal_entity.Transcript{}).
		Where("consent_id = ?", consentId).
		Count(&linked).Error; err != nil {
		return nil, err
	}
	if linked > 0 {
		return nil, types.NewConflictError("consent %s already backs a transcript", consentId)
	}
	return &consent, nil
}
