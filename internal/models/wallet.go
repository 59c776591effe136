package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds a single customer's balance. One wallet per customer.
// Version is the optimistic-concurrency counter: every committed balance
// mutation increments it, and writers condition their update on the value
// they read.
type Wallet struct {
	ID         uint            `gorm:"primarykey" json:"-"`
	WalletID   string          `gorm:"uniqueIndex;not null" json:"wallet_id"`
	CustomerID string          `gorm:"uniqueIndex;not null" json:"customer_id"`
	Balance    decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"balance"`
	Currency   string          `gorm:"default:'USD'" json:"currency"`
	Version    int64           `gorm:"not null;default:0" json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.WalletID == "" {
		w.WalletID = uuid.NewString()
	}
	// New wallets always start empty
	w.Balance = decimal.Zero
	w.Version = 0
	return nil
}
