package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TxTypeCapitalCall  = "CAPITAL_CALL"
	TxTypeDistribution = "DISTRIBUTION"
)

const (
	TxStatusPending       = "PENDING"
	TxStatusProofUploaded = "PROOF_UPLOADED"
	TxStatusCompleted     = "COMPLETED"
	TxStatusFailed        = "FAILED"
)

// ValidTransactionType reports whether t is one of the supported capital movement kinds.
func ValidTransactionType(t string) bool {
	return t == TxTypeCapitalCall || t == TxTypeDistribution
}

// Transaction is a single capital movement request. Amount never changes after creation.
type Transaction struct {
	TxID              uuid.UUID        `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	Type              string           `gorm:"column:type;type:varchar(20);not null" json:"type"`
	FundID            uuid.UUID        `gorm:"column:fund_id;type:uuid;not null;index" json:"fund_id"`
	InvestorID        uuid.UUID        `gorm:"column:investor_id;type:uuid;not null;index:idx_tx_investor_created" json:"investor_id"`
	TeamID            uuid.UUID        `gorm:"column:team_id;type:uuid;not null;index" json:"team_id"`
	Amount            decimal.Decimal  `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Currency          string           `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	Status            string           `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	BankLinkID        *uuid.UUID       `gorm:"column:bank_link_id;type:uuid" json:"bank_link_id"`
	Description       string           `gorm:"column:description" json:"description"`
	InitiatedBy       uuid.UUID        `gorm:"column:initiated_by;type:uuid;not null" json:"initiated_by"`
	InitiatedAt       time.Time        `gorm:"column:initiated_at;not null" json:"initiated_at"`
	ProofDocumentRef  *string          `gorm:"column:proof_document_ref" json:"proof_document_ref"`
	ProofUploadedAt   *time.Time       `gorm:"column:proof_uploaded_at" json:"proof_uploaded_at"`
	ConfirmedBy       *uuid.UUID       `gorm:"column:confirmed_by;type:uuid" json:"confirmed_by"`
	ConfirmedAt       *time.Time       `gorm:"column:confirmed_at" json:"confirmed_at"`
	FundsReceivedDate *time.Time       `gorm:"column:funds_received_date" json:"funds_received_date"`
	AmountReceived    *decimal.Decimal `gorm:"column:amount_received;type:decimal(20,2)" json:"amount_received"`
	BankReference     *string          `gorm:"column:bank_reference" json:"bank_reference"`
	Version           int64            `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt         time.Time        `gorm:"column:createdAt;index:idx_tx_investor_created" json:"createdAt"`
	UpdatedAt         time.Time        `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	if t.Version == 0 {
		t.Version = 1
	}
	return nil
}

const (
	TxEventInitiated     = "INITIATED"
	TxEventProofUploaded = "PROOF_UPLOADED"
	TxEventWireConfirmed = "WIRE_CONFIRMED"
)

// TransactionEvent is an append-only audit trail entry on a transaction.
type TransactionEvent struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TxID      uuid.UUID      `gorm:"column:tx_id;type:uuid;not null;index" json:"tx_id"`
	Action    string         `gorm:"column:action;type:varchar(30);not null" json:"action"`
	ActorID   uuid.UUID      `gorm:"column:actor_id;type:uuid;not null" json:"actor"`
	IPAddress string         `gorm:"column:ip_address" json:"ip"`
	UserAgent string         `gorm:"column:user_agent" json:"user_agent"`
	EventData datatypes.JSON `gorm:"column:event_data;type:jsonb" json:"event_data"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (TransactionEvent) TableName() string {
	return "TransactionEvents"
}

func (e *TransactionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
