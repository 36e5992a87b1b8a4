package internal_entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsentMethod string

const (
	ConsentMethodVerbal     ConsentMethod = "verbal"
	ConsentMethodWritten    ConsentMethod = "written"
	ConsentMethodElectronic ConsentMethod = "electronic"
	ConsentMethodImplied    ConsentMethod = "implied"
)

func (m ConsentMethod) Valid() bool {
	switch m {
	case ConsentMethodVerbal, ConsentMethodWritten, ConsentMethodElectronic, ConsentMethodImplied:
		return true
	}
	return false
}

var errConsentImmutable = errors.New("consent records are immutable")

// CallConsent proves a compliant authorization preceded recording. Immutable
// once created; retained for audit, never deleted.
type CallConsent struct {
	Id        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"createdAt"`

	OrganizationId uint64 `json:"organizationId" gorm:"type:bigint;not null;index"`
	ClientId       uint64 `json:"clientId" gorm:"type:bigint;not null"`
	OperatorId     uint64 `json:"operatorId" gorm:"type:bigint;not null"`

	Method      ConsentMethod `json:"method" gorm:"size:20;not null"`
	ConsentedAt time.Time     `json:"consentedAt" gorm:"not null"`
	RecordedBy  uint64        `json:"recordedBy" gorm:"type:bigint;not null"`

	CallType      string  `json:"callType" gorm:"size:20;not null"`
	CallDirection string  `json:"callDirection" gorm:"size:20;not null"`
	FromNumber    *string `json:"fromNumber,omitempty" gorm:"size:32"`
	ToNumber      *string `json:"toNumber,omitempty" gorm:"size:32"`

	IpAddress string `json:"ipAddress" gorm:"size:64"`
	UserAgent string `json:"userAgent" gorm:"size:512"`
}

func (CallConsent) TableName() string { return "call_consents" }

func (c *CallConsent) BeforeCreate(tx *gorm.DB) error {
	if c.Id == "" {
		c.Id = uuid.New().String()
	}
	return nil
}

func (c *CallConsent) BeforeUpdate(tx *gorm.DB) error {
	return errConsentImmutable
}

func (c *CallConsent) BeforeDelete(tx *gorm.DB) error {
	return errConsentImmutable
}
