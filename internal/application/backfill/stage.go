// Package backfill assigns an explicit stage to investor rows created before
// the stage column existed.
package backfill

import (
	"context"

	"fundgate-backend/internal/domain"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const DefaultBatchSize = 500

type Options struct {
	DryRun    bool
	BatchSize int
}

// Report counts rows by the stage they were (or would be) given.
type Report struct {
	Scanned int                  `json:"scanned"`
	Updated int                  `json:"updated"`
	ByStage map[domain.Stage]int `json:"by_stage"`
}

// Stages infers and stores a stage for every investor whose stage is NULL.
// Rows that gained a stage concurrently are left alone.
func Stages(ctx context.Context, db *gorm.DB, opts Options) (*Report, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	rep := &Report{ByStage: map[domain.Stage]int{}}

	var batch []domain.Investor
	err := db.WithContext(ctx).
		Where("stage IS NULL").
		FindInBatches(&batch, opts.BatchSize, func(tx *gorm.DB, n int) error {
			for i := range batch {
				inv := &batch[i]
				stage := domain.InferStage(inv)
				rep.Scanned++
				rep.ByStage[stage]++
				if opts.DryRun {
					continue
				}
				res := db.WithContext(ctx).Model(&domain.Investor{}).
					Where("investor_id = ? AND stage IS NULL", inv.InvestorID).
					Updates(map[string]interface{}{
						"stage":   stage,
						"version": gorm.Expr("version + 1"),
					})
				if res.Error != nil {
					return res.Error
				}
				rep.Updated += int(res.RowsAffected)
			}
			log.Info().Int("batch", n).Int("scanned", rep.Scanned).Int("updated", rep.Updated).Msg("stage backfill batch")
			return nil
		}).Error
	if err != nil {
		return rep, err
	}
	return rep, nil
}
