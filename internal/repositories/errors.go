package repositories

import "errors"

var (
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrDuplicateWallet         = errors.New("wallet already exists")
	ErrLedgerEntryNotFound     = errors.New("ledger entry not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	// ErrVersionConflict is returned when a version-conditioned wallet update
	// matched no row: another writer committed since the wallet was read.
	ErrVersionConflict = errors.New("wallet version conflict")
)
