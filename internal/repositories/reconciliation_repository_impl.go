package repositories

import (
	"context"
	"fmt"

	"walletledger/internal/models"

	"gorm.io/gorm"
)

type reconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

func (r *reconciliationRepository) ReplaceForDate(ctx context.Context, date string, records []models.ReconciliationRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("reconciliation_date = ?", date).
			Delete(&models.ReconciliationRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear prior reconciliation records: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, 500).Error; err != nil {
			return fmt.Errorf("failed to persist reconciliation records: %w", err)
		}
		return nil
	})
}

func (r *reconciliationRepository) ListByDate(ctx context.Context, date string) ([]models.ReconciliationRecord, error) {
	var records []models.ReconciliationRecord
	err := r.db.WithContext(ctx).
		Where("reconciliation_date = ?", date).
		Order("processed_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation records: %w", err)
	}
	return records, nil
}
