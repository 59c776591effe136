package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reconciliation statuses
const (
	ReconciliationStatusMatched         = "MATCHED"
	ReconciliationStatusAmountMismatch  = "AMOUNT_MISMATCH"
	ReconciliationStatusMissingExternal = "MISSING_EXTERNAL"
	ReconciliationStatusMissingInternal = "MISSING_INTERNAL"
)

// ReconciliationRecord is one outcome of matching an internal ledger entry
// against the external feed for a business date. Records are written in batch
// by a reconciliation run and are immutable; a re-run for the same date
// replaces the whole set.
type ReconciliationRecord struct {
	ID                    uint             `gorm:"primarykey" json:"-"`
	ReconciliationID      string           `gorm:"uniqueIndex;not null" json:"reconciliation_id"`
	ReconciliationDate    time.Time        `gorm:"index;type:date;not null" json:"reconciliation_date"`
	InternalTransactionID string           `json:"internal_transaction_id,omitempty"`
	ExternalTransactionID string           `json:"external_transaction_id,omitempty"`
	InternalAmount        *decimal.Decimal `gorm:"type:numeric(19,2)" json:"internal_amount,omitempty"`
	ExternalAmount        *decimal.Decimal `gorm:"type:numeric(19,2)" json:"external_amount,omitempty"`
	Status                string           `gorm:"not null" json:"status"`
	DiscrepancyAmount     *decimal.Decimal `gorm:"type:numeric(19,2)" json:"discrepancy_amount,omitempty"`
	DiscrepancyReason     string           `json:"discrepancy_reason,omitempty"`
	ProcessedAt           time.Time        `json:"processed_at"`
}

// ExternalTransaction is a row of the externally supplied feed. It is matching
// input only and never persisted as its own entity.
type ExternalTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	CustomerID      string          `json:"customer_id"`
	Type            string          `json:"type"`
	TransactionDate time.Time       `json:"transaction_date"`
}
