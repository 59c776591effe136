package ledger

import (
	"time"

	"walletledger/internal/models"

	"github.com/shopspring/decimal"
)

// ApplyRequest describes one balance mutation. IdempotencyKey is the
// caller-supplied request identity and must be reused verbatim on retry.
type ApplyRequest struct {
	WalletID       string
	Type           string // models.TransactionTypeTopup or models.TransactionTypeConsume
	Amount         decimal.Decimal
	IdempotencyKey string
	Description    string
	ServiceType    string
	Metadata       models.JSON
}

// BalanceSnapshot is a read-only view of a wallet.
type BalanceSnapshot struct {
	WalletID    string          `json:"wallet_id"`
	CustomerID  string          `json:"customer_id"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Config holds tunables for the ledger service.
type Config struct {
	DefaultCurrency string
	// MaxAttempts bounds the optimistic-conflict retry loop.
	MaxAttempts int
	// RetryBackoff is the first backoff; it doubles per attempt.
	RetryBackoff time.Duration
}

// MetricsCollector defines the hooks for ledger metrics.
type MetricsCollector interface {
	RecordTransaction(txType string, amount decimal.Decimal)
	RecordConflictRetry(op string)
	RecordError(op, errType string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTransaction(string, decimal.Decimal) {}
func (NoopMetricsCollector) RecordConflictRetry(string)               {}
func (NoopMetricsCollector) RecordError(string, string)               {}
