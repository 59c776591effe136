package validation

import (
	"walletledger/internal/errors"
	"walletledger/internal/models"

	"github.com/shopspring/decimal"
)

// MaxIdempotencyKeyLength bounds the caller-supplied request identity.
const MaxIdempotencyKeyLength = 64

// ValidateAmount accepts positive amounts with at most two fractional digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}
	if amount.Exponent() < -2 {
		return errors.ErrInvalidAmount
	}
	return nil
}

// ValidateIdempotencyKey rejects empty or oversized keys.
func ValidateIdempotencyKey(key string) error {
	if key == "" || len(key) > MaxIdempotencyKeyLength {
		return errors.ErrInvalidIdempotencyKey
	}
	return nil
}

// ValidateTransactionType accepts the two ledger mutation types.
func ValidateTransactionType(txType string) error {
	if txType != models.TransactionTypeTopup && txType != models.TransactionTypeConsume {
		return &errors.DomainError{
			Code:    "VALIDATION_ERROR",
			Message: "transaction type must be TOPUP or CONSUME",
		}
	}
	return nil
}

// ValidateApplyRequest validates the mutable parts of an apply request.
func ValidateApplyRequest(txType string, amount decimal.Decimal, idempotencyKey string) error {
	if err := ValidateTransactionType(txType); err != nil {
		return err
	}
	if err := ValidateAmount(amount); err != nil {
		return err
	}
	return ValidateIdempotencyKey(idempotencyKey)
}
