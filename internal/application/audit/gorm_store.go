package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"fundgate-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore persists events to the AuditLogs table.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) Write(ctx context.Context, e Event) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("audit: marshal metadata: %w", err)
	}
	row := domain.AuditLog{
		EventType:    e.EventType,
		TeamID:       e.TeamID,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		Metadata:     datatypes.JSON(meta),
		CreatedAt:    e.At,
	}
	if e.UserID != uuid.Nil {
		uid := e.UserID
		row.UserID = &uid
	}
	return s.DB.WithContext(ctx).Create(&row).Error
}

// List returns audit rows for a resource, oldest first.
func (s *GormStore) List(ctx context.Context, resourceType, resourceID string) ([]domain.AuditLog, error) {
	var rows []domain.AuditLog
	err := s.DB.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order(`"createdAt" ASC`).
		Find(&rows).Error
	return rows, err
}
