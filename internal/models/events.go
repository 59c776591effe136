package models

import "github.com/shopspring/decimal"

// TransactionCompletedEvent is emitted after a wallet mutation commits.
// Delivery is at-least-once; consumers are expected to key on TransactionID.
type TransactionCompletedEvent struct {
	TransactionID string          `json:"transaction_id"`
	WalletID      string          `json:"wallet_id"`
	CustomerID    string          `json:"customer_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	ServiceType   string          `json:"service_type,omitempty"`
	Metadata      JSON            `json:"metadata,omitempty"`
}
