package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TransactionTypeTopup   = "TOPUP"
	TransactionTypeConsume = "CONSUME"
)

// Transaction statuses
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
)

// TransactionLedgerEntry is the append-only record of one applied wallet
// mutation. IdempotencyKey is the caller-supplied request identity: at most
// one entry ever exists per key, and a replayed key returns the stored entry
// without touching the wallet again.
type TransactionLedgerEntry struct {
	ID             uint            `gorm:"primarykey" json:"-"`
	TransactionID  string          `gorm:"uniqueIndex;not null" json:"transaction_id"`
	WalletID       string          `gorm:"index;not null" json:"wallet_id"`
	CustomerID     string          `gorm:"index;not null" json:"customer_id"`
	Type           string          `gorm:"not null" json:"type"`
	Amount         decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"amount"`
	BalanceAfter   decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"balance_after"`
	Description    string          `json:"description,omitempty"`
	ServiceType    string          `json:"service_type,omitempty"`
	IdempotencyKey string          `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	Metadata       JSON            `gorm:"type:jsonb" json:"metadata,omitempty"`
	Status         string          `gorm:"not null;default:'PENDING'" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
}
