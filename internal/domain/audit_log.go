package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of a security-relevant decision.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventType    string         `gorm:"column:event_type;type:varchar(50);not null;index" json:"event_type"`
	UserID       *uuid.UUID     `gorm:"column:user_id;type:uuid" json:"user_id"`
	TeamID       *uuid.UUID     `gorm:"column:team_id;type:uuid;index" json:"team_id"`
	ResourceType string         `gorm:"column:resource_type;type:varchar(40);not null" json:"resource_type"`
	ResourceID   string         `gorm:"column:resource_id;not null;index" json:"resource_id"`
	IPAddress    string         `gorm:"column:ip_address" json:"ip_address"`
	UserAgent    string         `gorm:"column:user_agent" json:"user_agent"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt    time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "AuditLogs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
