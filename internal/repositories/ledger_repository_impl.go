package repositories

import (
	"context"
	"errors"
	"fmt"

	"walletledger/internal/models"

	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.TransactionLedgerEntry, error) {
	var entry models.TransactionLedgerEntry
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLedgerEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

func (r *ledgerRepository) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.TransactionLedgerEntry, error) {
	var entries []models.TransactionLedgerEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) ListCompletedByDate(ctx context.Context, date string) ([]models.TransactionLedgerEntry, error) {
	var entries []models.TransactionLedgerEntry
	err := r.db.WithContext(ctx).
		Where("status = ? AND DATE(created_at) = ?", models.TransactionStatusCompleted, date).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completed ledger entries: %w", err)
	}
	return entries, nil
}
