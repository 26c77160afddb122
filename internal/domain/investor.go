package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	KycNotStarted = "NOT_STARTED"
	KycPending    = "PENDING"
	KycApproved   = "APPROVED"
	KycVerified   = "VERIFIED"
	KycRejected   = "REJECTED"
)

// IsKycCleared is the KYC allow-list. Match is exact and case-sensitive.
func IsKycCleared(status string) bool {
	return status == KycApproved || status == KycVerified
}

// Investor is an LP onboarding to one or more funds. Rows are never hard-deleted.
type Investor struct {
	InvestorID            uuid.UUID  `gorm:"column:investor_id;type:uuid;primaryKey" json:"investor_id"`
	UserID                *uuid.UUID `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	FundID                *uuid.UUID `gorm:"column:fund_id;type:uuid;index" json:"fund_id"`
	Name                  string     `gorm:"column:name;not null" json:"name"`
	Email                 string     `gorm:"column:email;not null;index" json:"email"`
	EntityType            string     `gorm:"column:entity_type;type:varchar(30)" json:"entity_type"`
	KycStatus             *string    `gorm:"column:kyc_status;type:varchar(30)" json:"kyc_status"`
	NdaSigned             bool       `gorm:"column:nda_signed;not null;default:false" json:"nda_signed"`
	Stage                 *Stage     `gorm:"column:stage;type:varchar(20)" json:"stage"`
	OnboardingStep        int        `gorm:"column:onboarding_step;not null;default:0" json:"onboarding_step"`
	OnboardingCompletedAt *time.Time `gorm:"column:onboarding_completed_at" json:"onboarding_completed_at"`
	Version               int64      `gorm:"column:version;not null;default:1" json:"version"`
	BankLinks             []BankLink `gorm:"foreignKey:InvestorID;references:InvestorID" json:"bank_links,omitempty"`
	CreatedAt             time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt             time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Investor) TableName() string {
	return "Investors"
}

func (i *Investor) BeforeCreate(tx *gorm.DB) error {
	if i.InvestorID == uuid.Nil {
		i.InvestorID = uuid.New()
	}
	if i.Version == 0 {
		i.Version = 1
	}
	return nil
}

// KycStatusValue returns the KYC status or "" when none has been recorded.
func (i *Investor) KycStatusValue() string {
	if i.KycStatus == nil {
		return ""
	}
	return *i.KycStatus
}

// AccreditationCertification is an investor self-certification of accredited status.
type AccreditationCertification struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvestorID     uuid.UUID  `gorm:"column:investor_id;type:uuid;not null;index" json:"investor_id"`
	Basis          string     `gorm:"column:basis;type:varchar(40)" json:"basis"`
	Status         string     `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Acknowledged   bool       `gorm:"column:acknowledged;not null;default:false" json:"acknowledged"`
	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at" json:"acknowledged_at"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

const CertificationCompleted = "COMPLETED"

func (AccreditationCertification) TableName() string {
	return "AccreditationCertifications"
}

func (a *AccreditationCertification) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BankLink is a bank account linked by an investor for settlement.
type BankLink struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvestorID  uuid.UUID `gorm:"column:investor_id;type:uuid;not null;index" json:"investor_id"`
	BankName    string    `gorm:"column:bank_name" json:"bank_name"`
	AccountMask string    `gorm:"column:account_mask;type:varchar(8)" json:"account_mask"`
	AccountType string    `gorm:"column:account_type;type:varchar(20)" json:"account_type"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (BankLink) TableName() string {
	return "BankLinks"
}

func (b *BankLink) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// InvestorStageTransition is an immutable entry in an investor's stage history.
type InvestorStageTransition struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvestorID uuid.UUID `gorm:"column:investor_id;type:uuid;not null;index" json:"investor_id"`
	FromStage  Stage     `gorm:"column:from_stage;type:varchar(20);not null" json:"from"`
	ToStage    Stage     `gorm:"column:to_stage;type:varchar(20);not null" json:"to"`
	ActorID    uuid.UUID `gorm:"column:actor_id;type:uuid;not null" json:"actor"`
	Notes      string    `gorm:"column:notes" json:"notes"`
	At         time.Time `gorm:"column:at;not null;index" json:"at"`
}

func (InvestorStageTransition) TableName() string {
	return "InvestorStageTransitions"
}

func (t *InvestorStageTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// KycProviderEvent records a processed KYC provider callback so redeliveries are ignored.
type KycProviderEvent struct {
	EventID    string    `gorm:"column:event_id;primaryKey" json:"event_id"`
	InvestorID uuid.UUID `gorm:"column:investor_id;type:uuid;not null;index" json:"investor_id"`
	Status     string    `gorm:"column:status;type:varchar(30);not null" json:"status"`
	CreatedAt  time.Time `gorm:"column:createdAt" json:"createdAt"`
}

func (KycProviderEvent) TableName() string {
	return "KycProviderEvents"
}
