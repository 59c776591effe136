package repositories

import (
	"context"

	"walletledger/internal/models"

	"github.com/shopspring/decimal"
)

// WalletRepository is the durable-store boundary for wallets and their ledger.
// ExecuteInTransaction provides the atomic multi-record commit the ledger
// engine relies on: the wallet update and the new ledger entry either both
// commit or neither does.
type WalletRepository interface {
	Create(ctx context.Context, wallet *models.Wallet) error
	GetByWalletID(ctx context.Context, walletID string) (*models.Wallet, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.Wallet, error)

	// UpdateBalanceVersioned writes the new balance conditioned on the version
	// the wallet was read at. Returns ErrVersionConflict when the row has
	// moved on; on success the passed wallet is updated in place.
	UpdateBalanceVersioned(ctx context.Context, wallet *models.Wallet, newBalance decimal.Decimal) error

	CreateLedgerEntry(ctx context.Context, entry *models.TransactionLedgerEntry) error
	GetLedgerEntryByIdempotencyKey(ctx context.Context, key string) (*models.TransactionLedgerEntry, error)

	ExecuteInTransaction(fn func(tx WalletRepository) error) error
}

// LedgerRepository is the read side of the transaction ledger.
type LedgerRepository interface {
	GetByTransactionID(ctx context.Context, transactionID string) (*models.TransactionLedgerEntry, error)
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.TransactionLedgerEntry, error)
	ListCompletedByDate(ctx context.Context, date string) ([]models.TransactionLedgerEntry, error)
}

// ReconciliationRepository persists the outcome of reconciliation runs.
type ReconciliationRepository interface {
	// ReplaceForDate atomically swaps the record set for a date: prior records
	// are deleted and the new batch inserted in one transaction.
	ReplaceForDate(ctx context.Context, date string, records []models.ReconciliationRecord) error
	ListByDate(ctx context.Context, date string) ([]models.ReconciliationRecord, error)
}
