package kyc

import (
	"context"
	"strings"
	"time"

	"fundgate-backend/internal/application/audit"
	"fundgate-backend/internal/domain"
	"fundgate-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Update is a status change pushed by the KYC provider.
type Update struct {
	EventID    string
	InvestorID uuid.UUID
	Status     string
}

// Service records provider updates. Redelivered events are ignored.
type Service struct {
	DB       *gorm.DB
	Audit    audit.Sink
	Reporter audit.ErrorReporter
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// ApplyUpdate stores the new status. It returns false when the event was
// already processed.
func (s *Service) ApplyUpdate(ctx context.Context, u Update) (bool, error) {
	u.Status = strings.TrimSpace(u.Status)
	if u.EventID == "" || u.InvestorID == uuid.Nil || u.Status == "" {
		return false, apperr.Validation("MISSING_FIELDS", "event id, investor id and status are required")
	}
	if len(u.Status) > 30 {
		return false, apperr.Validation("INVALID_STATUS", "status is too long")
	}

	var previous string
	applied := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.KycProviderEvent{}).Where("event_id = ?", u.EventID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return nil
		}

		var inv domain.Investor
		if err := tx.Select("investor_id", "kyc_status").Where("investor_id = ?", u.InvestorID).First(&inv).Error; err != nil {
			return apperr.FromGorm(err, ErrInvestorNotFound)
		}
		previous = inv.KycStatusValue()

		if err := tx.Create(&domain.KycProviderEvent{
			EventID:    u.EventID,
			InvestorID: u.InvestorID,
			Status:     u.Status,
			CreatedAt:  s.now(),
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Investor{}).
			Where("investor_id = ?", u.InvestorID).
			Updates(map[string]interface{}{
				"kyc_status": u.Status,
				"version":    gorm.Expr("version + 1"),
				"updatedAt":  s.now(),
			}).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, apperr.FromGorm(err, nil)
	}
	if !applied {
		log.Info().Str("event_id", u.EventID).Msg("kyc provider event already processed")
		return false, nil
	}

	audit.Log(ctx, s.Audit, s.Reporter, audit.Event{
		EventType:    audit.EventKycStatusUpdated,
		ResourceType: audit.ResourceInvestor,
		ResourceID:   u.InvestorID.String(),
		Metadata: map[string]interface{}{
			"event_id":        u.EventID,
			"previous_status": previous,
			"status":          u.Status,
		},
		At: s.now(),
	})
	return true, nil
}
