package reconciliation

import "walletledger/internal/errors"

var (
	ErrInvalidDate = &errors.DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "date must be in YYYY-MM-DD form",
	}
	ErrInvalidFeed = &errors.DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "external feed could not be parsed",
	}
)
