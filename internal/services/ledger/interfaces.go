package ledger

import (
	"context"

	"walletledger/internal/models"
)

// Service is the only code path permitted to change a wallet's balance.
type Service interface {
	CreateWallet(ctx context.Context, customerID, currency string) (*models.Wallet, error)
	ApplyTransaction(ctx context.Context, req ApplyRequest) (*models.TransactionLedgerEntry, error)
	GetBalance(ctx context.Context, walletID string) (*BalanceSnapshot, error)
	GetTransactionHistory(ctx context.Context, walletID string, limit, offset int) ([]models.TransactionLedgerEntry, error)
}

// WalletCache is the read-cache the service keeps coherent around mutations.
type WalletCache interface {
	GetWallet(ctx context.Context, walletID string) (*models.Wallet, bool)
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, walletID string) error
}
