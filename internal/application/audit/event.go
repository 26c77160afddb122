// Package audit is the append-only compliance trail. Services hand events to a
// Sink; in production that sink is a Dispatcher that writes asynchronously so a
// slow or failing store never blocks or fails the business operation.
package audit

import (
	"context"
	"time"

	"fundgate-backend/internal/domain"

	"github.com/google/uuid"
)

const (
	EventTransactionBlockedKyc       = "TRANSACTION_BLOCKED_KYC"
	EventAmlScreening                = "AML_SCREENING"
	EventTransactionCreated          = "TRANSACTION_CREATED"
	EventProofUploaded               = "WIRE_PROOF_UPLOADED"
	EventWireConfirmed               = "WIRE_CONFIRMED"
	EventInvestorStageChanged        = "INVESTOR_STAGE_CHANGED"
	EventManualInvestmentsReconciled = "MANUAL_INVESTMENTS_RECONCILED"
	EventKycStatusUpdated            = "KYC_STATUS_UPDATED"
)

const (
	ResourceTransaction = "transaction"
	ResourceInvestor    = "investor"
)

type Event struct {
	EventType    string                 `json:"event_type"`
	UserID       uuid.UUID              `json:"user_id"`
	TeamID       *uuid.UUID             `json:"team_id,omitempty"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	IPAddress    string                 `json:"ip_address"`
	UserAgent    string                 `json:"user_agent"`
	Metadata     map[string]interface{} `json:"metadata"`
	At           time.Time              `json:"at"`
}

// FromActor fills the caller fields of an event from the session actor.
func FromActor(a domain.Actor, eventType, resourceType, resourceID string, metadata map[string]interface{}) Event {
	e := Event{
		EventType:    eventType,
		UserID:       a.UserID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    a.IP,
		UserAgent:    a.UserAgent,
		Metadata:     metadata,
	}
	if a.TeamID != uuid.Nil {
		team := a.TeamID
		e.TeamID = &team
	}
	return e
}

// Sink accepts audit events.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Write(ctx context.Context, e Event) error {
	return f(ctx, e)
}
