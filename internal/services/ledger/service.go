package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/events"
	"walletledger/internal/models"
	"walletledger/internal/repositories"
	"walletledger/internal/validation"

	"github.com/google/uuid"
)

type service struct {
	repo      repositories.WalletRepository
	ledger    repositories.LedgerRepository
	cache     WalletCache
	publisher events.Publisher
	config    Config
	metrics   MetricsCollector
}

// NewService creates a new ledger service.
func NewService(
	repo repositories.WalletRepository,
	ledgerRepo repositories.LedgerRepository,
	cache WalletCache,
	publisher events.Publisher,
	config Config,
	metrics MetricsCollector,
) Service {
	if repo == nil {
		panic("wallet repository is required")
	}
	if ledgerRepo == nil {
		panic("ledger repository is required")
	}

	if config.DefaultCurrency == "" {
		config.DefaultCurrency = DefaultCurrency
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}

	if cache == nil {
		cache = noopCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	return &service{
		repo:      repo,
		ledger:    ledgerRepo,
		cache:     cache,
		publisher: publisher,
		config:    config,
		metrics:   metrics,
	}
}

func (s *service) CreateWallet(ctx context.Context, customerID, currency string) (*models.Wallet, error) {
	if customerID == "" {
		return nil, &apperrors.DomainError{
			Code:    "VALIDATION_ERROR",
			Message: "customer id is required",
		}
	}
	if currency == "" {
		currency = s.config.DefaultCurrency
	}

	wallet := &models.Wallet{
		CustomerID: customerID,
		Currency:   currency,
	}
	if err := s.repo.Create(ctx, wallet); err != nil {
		if errors.Is(err, repositories.ErrDuplicateWallet) {
			return nil, apperrors.ErrWalletExists
		}
		s.metrics.RecordError("create_wallet", "store")
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	if err := s.cache.CacheWallet(ctx, wallet); err != nil {
		log.Printf("failed to cache wallet %s: %v", wallet.WalletID, err)
	}
	return wallet, nil
}

// ApplyTransaction applies one credit or debit exactly once per idempotency
// key. The idempotency lookup, funds check, version-conditioned balance write
// and ledger insert all run inside a single store transaction; a version
// conflict aborts the transaction and the whole attempt is re-run against a
// fresh read, up to the configured attempt budget.
func (s *service) ApplyTransaction(ctx context.Context, req ApplyRequest) (*models.TransactionLedgerEntry, error) {
	if err := validation.ValidateApplyRequest(req.Type, req.Amount, req.IdempotencyKey); err != nil {
		return nil, err
	}

	var lastErr error
	backoff := s.config.RetryBackoff
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		entry, replayed, err := s.applyOnce(ctx, req)
		if err == nil {
			if !replayed {
				s.afterCommit(ctx, entry)
			}
			return entry, nil
		}

		if errors.Is(err, repositories.ErrVersionConflict) ||
			errors.Is(err, repositories.ErrDuplicateIdempotencyKey) {
			// Lost the race; re-read and re-validate against fresh state. A
			// duplicate key means a concurrent submission with the same key
			// committed first, and the next attempt returns that entry.
			s.metrics.RecordConflictRetry("apply_transaction")
			lastErr = err
			if attempt == s.config.MaxAttempts {
				break
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return nil, err
	}

	// A duplicate-key loss on the final attempt means the entry for this key
	// has committed; return it as a replay instead of an error the caller
	// would only resolve by retrying into that same replay.
	if errors.Is(lastErr, repositories.ErrDuplicateIdempotencyKey) {
		if existing, err := s.repo.GetLedgerEntryByIdempotencyKey(ctx, req.IdempotencyKey); err == nil {
			return existing, nil
		}
	}

	s.metrics.RecordError("apply_transaction", "concurrent_modification")
	return nil, apperrors.ErrConcurrentModification
}

// applyOnce runs a single attempt in one store transaction.
func (s *service) applyOnce(ctx context.Context, req ApplyRequest) (entry *models.TransactionLedgerEntry, replayed bool, err error) {
	err = s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		existing, lookupErr := tx.GetLedgerEntryByIdempotencyKey(ctx, req.IdempotencyKey)
		if lookupErr == nil {
			entry = existing
			replayed = true
			return nil
		}
		if !errors.Is(lookupErr, repositories.ErrLedgerEntryNotFound) {
			return lookupErr
		}

		wallet, loadErr := tx.GetByWalletID(ctx, req.WalletID)
		if loadErr != nil {
			if errors.Is(loadErr, repositories.ErrWalletNotFound) {
				return apperrors.ErrWalletNotFound
			}
			return loadErr
		}

		newBalance := wallet.Balance
		switch req.Type {
		case models.TransactionTypeTopup:
			newBalance = newBalance.Add(req.Amount)
		case models.TransactionTypeConsume:
			if wallet.Balance.LessThan(req.Amount) {
				return apperrors.ErrInsufficientFunds
			}
			newBalance = newBalance.Sub(req.Amount)
		}

		if updateErr := tx.UpdateBalanceVersioned(ctx, wallet, newBalance); updateErr != nil {
			return updateErr
		}

		now := time.Now()
		entry = &models.TransactionLedgerEntry{
			TransactionID:  uuid.NewString(),
			WalletID:       wallet.WalletID,
			CustomerID:     wallet.CustomerID,
			Type:           req.Type,
			Amount:         req.Amount,
			BalanceAfter:   newBalance,
			Description:    req.Description,
			ServiceType:    req.ServiceType,
			IdempotencyKey: req.IdempotencyKey,
			Metadata:       req.Metadata,
			Status:         models.TransactionStatusCompleted,
			ProcessedAt:    &now,
		}
		return tx.CreateLedgerEntry(ctx, entry)
	})
	if err != nil {
		return nil, false, err
	}
	return entry, replayed, nil
}

// afterCommit runs the post-commit side effects of a freshly applied
// mutation. The commit is the point of no return: a caller disconnect from
// here on must not undo it, so the publish is decoupled from ctx cancellation
// and a publish failure is logged, never propagated.
func (s *service) afterCommit(ctx context.Context, entry *models.TransactionLedgerEntry) {
	if err := s.cache.InvalidateWallet(ctx, entry.WalletID); err != nil {
		log.Printf("failed to invalidate wallet cache %s: %v", entry.WalletID, err)
	}
	s.metrics.RecordTransaction(entry.Type, entry.Amount)

	event := models.TransactionCompletedEvent{
		TransactionID: entry.TransactionID,
		WalletID:      entry.WalletID,
		CustomerID:    entry.CustomerID,
		Type:          entry.Type,
		Amount:        entry.Amount,
		ServiceType:   entry.ServiceType,
		Metadata:      entry.Metadata,
	}
	if err := s.publisher.PublishTransactionCompleted(context.WithoutCancel(ctx), event); err != nil {
		s.metrics.RecordError("publish_event", "transport")
		log.Printf("failed to publish transaction event %s: %v", entry.TransactionID, err)
	}
}

func (s *service) GetBalance(ctx context.Context, walletID string) (*BalanceSnapshot, error) {
	if wallet, ok := s.cache.GetWallet(ctx, walletID); ok {
		return snapshot(wallet), nil
	}

	wallet, err := s.repo.GetByWalletID(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if err := s.cache.CacheWallet(ctx, wallet); err != nil {
		log.Printf("failed to cache wallet %s: %v", walletID, err)
	}
	return snapshot(wallet), nil
}

func (s *service) GetTransactionHistory(ctx context.Context, walletID string, limit, offset int) ([]models.TransactionLedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if _, err := s.repo.GetByWalletID(ctx, walletID); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return s.ledger.ListByWallet(ctx, walletID, limit, offset)
}

func snapshot(w *models.Wallet) *BalanceSnapshot {
	return &BalanceSnapshot{
		WalletID:    w.WalletID,
		CustomerID:  w.CustomerID,
		Balance:     w.Balance,
		Currency:    w.Currency,
		LastUpdated: w.UpdatedAt,
	}
}

type noopCache struct{}

func (noopCache) GetWallet(context.Context, string) (*models.Wallet, bool) { return nil, false }
func (noopCache) CacheWallet(context.Context, *models.Wallet) error        { return nil }
func (noopCache) InvalidateWallet(context.Context, string) error           { return nil }
