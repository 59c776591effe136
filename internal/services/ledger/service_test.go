package ledger

import (
	"context"
	"testing"
	"time"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"
	"walletledger/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	args := m.Called(ctx, wallet)
	if args.Error(0) == nil && wallet.WalletID == "" {
		wallet.WalletID = "w-generated"
	}
	return args.Error(0)
}

func (m *MockWalletRepository) GetByWalletID(ctx context.Context, walletID string) (*models.Wallet, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetByCustomerID(ctx context.Context, customerID string) (*models.Wallet, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepository) UpdateBalanceVersioned(ctx context.Context, wallet *models.Wallet, newBalance decimal.Decimal) error {
	args := m.Called(ctx, wallet, newBalance)
	if args.Error(0) == nil {
		wallet.Balance = newBalance
		wallet.Version++
	}
	return args.Error(0)
}

func (m *MockWalletRepository) CreateLedgerEntry(ctx context.Context, entry *models.TransactionLedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWalletRepository) GetLedgerEntryByIdempotencyKey(ctx context.Context, key string) (*models.TransactionLedgerEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransactionLedgerEntry), args.Error(1)
}

func (m *MockWalletRepository) ExecuteInTransaction(fn func(tx repositories.WalletRepository) error) error {
	m.Called()
	return fn(m)
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.TransactionLedgerEntry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransactionLedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.TransactionLedgerEntry, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TransactionLedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListCompletedByDate(ctx context.Context, date string) ([]models.TransactionLedgerEntry, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TransactionLedgerEntry), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTransactionCompleted(ctx context.Context, event models.TransactionCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestService(repo *MockWalletRepository, ledgerRepo *MockLedgerRepository, publisher *MockPublisher) Service {
	return NewService(repo, ledgerRepo, nil, publisher, Config{
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	}, nil)
}

func activeWallet(balance string) *models.Wallet {
	return &models.Wallet{
		WalletID:   "w-1",
		CustomerID: "C1",
		Balance:    decimal.RequireFromString(balance),
		Currency:   "USD",
		Version:    4,
	}
}

func TestCreateWallet(t *testing.T) {
	t.Run("creates wallet for new customer", func(t *testing.T) {
		repo := new(MockWalletRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(repo, new(MockLedgerRepository), new(MockPublisher))
		wallet, err := svc.CreateWallet(context.Background(), "C1", "")

		assert.NoError(t, err)
		assert.Equal(t, "C1", wallet.CustomerID)
		assert.Equal(t, "USD", wallet.Currency)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate customer", func(t *testing.T) {
		repo := new(MockWalletRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(repositories.ErrDuplicateWallet)

		svc := newTestService(repo, new(MockLedgerRepository), new(MockPublisher))
		_, err := svc.CreateWallet(context.Background(), "C1", "USD")

		assert.ErrorIs(t, err, apperrors.ErrWalletExists)
	})

	t.Run("missing customer id", func(t *testing.T) {
		svc := newTestService(new(MockWalletRepository), new(MockLedgerRepository), new(MockPublisher))
		_, err := svc.CreateWallet(context.Background(), "", "USD")
		assert.Error(t, err)
	})
}

func TestApplyTransaction_Topup(t *testing.T) {
	repo := new(MockWalletRepository)
	publisher := new(MockPublisher)

	wallet := activeWallet("0.00")
	repo.On("ExecuteInTransaction").Return(nil)
	repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K1").Return(nil, repositories.ErrLedgerEntryNotFound)
	repo.On("GetByWalletID", mock.Anything, "w-1").Return(wallet, nil)
	repo.On("UpdateBalanceVersioned", mock.Anything, wallet, decimal.RequireFromString("100.00")).Return(nil)
	repo.On("CreateLedgerEntry", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishTransactionCompleted", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(repo, new(MockLedgerRepository), publisher)
	entry, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		WalletID:       "w-1",
		Type:           models.TransactionTypeTopup,
		Amount:         decimal.RequireFromString("100.00"),
		IdempotencyKey: "K1",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, entry.Status)
	assert.True(t, entry.BalanceAfter.Equal(decimal.RequireFromString("100.00")))
	assert.Equal(t, "C1", entry.CustomerID)
	assert.NotEmpty(t, entry.TransactionID)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestApplyTransaction_IdempotentReplay(t *testing.T) {
	repo := new(MockWalletRepository)
	publisher := new(MockPublisher)

	existing := &models.TransactionLedgerEntry{
		TransactionID:  "t-1",
		WalletID:       "w-1",
		IdempotencyKey: "K1",
		Status:         models.TransactionStatusCompleted,
		BalanceAfter:   decimal.RequireFromString("100.00"),
	}
	repo.On("ExecuteInTransaction").Return(nil)
	repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K1").Return(existing, nil)

	svc := newTestService(repo, new(MockLedgerRepository), publisher)
	entry, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		WalletID:       "w-1",
		Type:           models.TransactionTypeTopup,
		Amount:         decimal.RequireFromString("100.00"),
		IdempotencyKey: "K1",
	})

	assert.NoError(t, err)
	assert.Equal(t, "t-1", entry.TransactionID)
	// Replay must not mutate the wallet or publish again.
	repo.AssertNotCalled(t, "UpdateBalanceVersioned", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "CreateLedgerEntry", mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "PublishTransactionCompleted", mock.Anything, mock.Anything)
}

func TestApplyTransaction_InsufficientFunds(t *testing.T) {
	repo := new(MockWalletRepository)
	publisher := new(MockPublisher)

	wallet := activeWallet("100.00")
	repo.On("ExecuteInTransaction").Return(nil)
	repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K2").Return(nil, repositories.ErrLedgerEntryNotFound)
	repo.On("GetByWalletID", mock.Anything, "w-1").Return(wallet, nil)

	svc := newTestService(repo, new(MockLedgerRepository), publisher)
	_, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		WalletID:       "w-1",
		Type:           models.TransactionTypeConsume,
		Amount:         decimal.RequireFromString("150.00"),
		IdempotencyKey: "K2",
	})

	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("100.00")))
	repo.AssertNotCalled(t, "UpdateBalanceVersioned", mock.Anything, mock.Anything, mock.Anything)
	publisher.AssertNotCalled(t, "PublishTransactionCompleted", mock.Anything, mock.Anything)
}

func TestApplyTransaction_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  ApplyRequest
	}{
		{
			name: "zero amount",
			req: ApplyRequest{
				WalletID: "w-1", Type: models.TransactionTypeTopup,
				Amount: decimal.Zero, IdempotencyKey: "K1",
			},
		},
		{
			name: "negative amount",
			req: ApplyRequest{
				WalletID: "w-1", Type: models.TransactionTypeConsume,
				Amount: decimal.RequireFromString("-5.00"), IdempotencyKey: "K1",
			},
		},
		{
			name: "too many decimal places",
			req: ApplyRequest{
				WalletID: "w-1", Type: models.TransactionTypeTopup,
				Amount: decimal.RequireFromString("1.005"), IdempotencyKey: "K1",
			},
		},
		{
			name: "missing idempotency key",
			req: ApplyRequest{
				WalletID: "w-1", Type: models.TransactionTypeTopup,
				Amount: decimal.RequireFromString("1.00"),
			},
		},
		{
			name: "unknown type",
			req: ApplyRequest{
				WalletID: "w-1", Type: "TRANSFER",
				Amount: decimal.RequireFromString("1.00"), IdempotencyKey: "K1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockWalletRepository)
			svc := newTestService(repo, new(MockLedgerRepository), new(MockPublisher))

			_, err := svc.ApplyTransaction(context.Background(), tt.req)

			assert.Error(t, err)
			repo.AssertNotCalled(t, "ExecuteInTransaction")
		})
	}
}

func TestApplyTransaction_ConflictRetry(t *testing.T) {
	t.Run("succeeds after one conflict", func(t *testing.T) {
		repo := new(MockWalletRepository)
		publisher := new(MockPublisher)

		wallet := activeWallet("100.00")
		repo.On("ExecuteInTransaction").Return(nil)
		repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K3").Return(nil, repositories.ErrLedgerEntryNotFound)
		repo.On("GetByWalletID", mock.Anything, "w-1").Return(wallet, nil)
		repo.On("UpdateBalanceVersioned", mock.Anything, wallet, mock.Anything).
			Return(repositories.ErrVersionConflict).Once()
		repo.On("UpdateBalanceVersioned", mock.Anything, wallet, mock.Anything).
			Return(nil).Once()
		repo.On("CreateLedgerEntry", mock.Anything, mock.Anything).Return(nil)
		publisher.On("PublishTransactionCompleted", mock.Anything, mock.Anything).Return(nil)

		svc := newTestService(repo, new(MockLedgerRepository), publisher)
		entry, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
			WalletID:       "w-1",
			Type:           models.TransactionTypeConsume,
			Amount:         decimal.RequireFromString("40.00"),
			IdempotencyKey: "K3",
		})

		assert.NoError(t, err)
		assert.True(t, entry.BalanceAfter.Equal(decimal.RequireFromString("60.00")))
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("exhausted budget surfaces concurrent modification", func(t *testing.T) {
		repo := new(MockWalletRepository)
		publisher := new(MockPublisher)

		wallet := activeWallet("100.00")
		repo.On("ExecuteInTransaction").Return(nil)
		repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K4").Return(nil, repositories.ErrLedgerEntryNotFound)
		repo.On("GetByWalletID", mock.Anything, "w-1").Return(wallet, nil)
		repo.On("UpdateBalanceVersioned", mock.Anything, wallet, mock.Anything).
			Return(repositories.ErrVersionConflict)

		svc := newTestService(repo, new(MockLedgerRepository), publisher)
		_, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
			WalletID:       "w-1",
			Type:           models.TransactionTypeTopup,
			Amount:         decimal.RequireFromString("10.00"),
			IdempotencyKey: "K4",
		})

		assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)
		repo.AssertNumberOfCalls(t, "UpdateBalanceVersioned", 3)
		publisher.AssertNotCalled(t, "PublishTransactionCompleted", mock.Anything, mock.Anything)
	})
}

func TestApplyTransaction_DuplicateKeyOnFinalAttemptReturnsReplay(t *testing.T) {
	repo := new(MockWalletRepository)
	publisher := new(MockPublisher)

	wallet := activeWallet("100.00")
	existing := &models.TransactionLedgerEntry{
		TransactionID:  "t-winner",
		WalletID:       "w-1",
		IdempotencyKey: "K7",
		Status:         models.TransactionStatusCompleted,
	}

	// Every in-transaction lookup races past a concurrent writer, every
	// insert loses to its committed row. The final read must surface that
	// row as a replay rather than reporting a conflict.
	repo.On("ExecuteInTransaction").Return(nil)
	repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K7").
		Return(nil, repositories.ErrLedgerEntryNotFound).Times(3)
	repo.On("GetByWalletID", mock.Anything, "w-1").Return(wallet, nil)
	repo.On("UpdateBalanceVersioned", mock.Anything, wallet, mock.Anything).Return(nil)
	repo.On("CreateLedgerEntry", mock.Anything, mock.Anything).
		Return(repositories.ErrDuplicateIdempotencyKey)
	repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K7").Return(existing, nil)

	svc := newTestService(repo, new(MockLedgerRepository), publisher)
	entry, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		WalletID:       "w-1",
		Type:           models.TransactionTypeTopup,
		Amount:         decimal.RequireFromString("10.00"),
		IdempotencyKey: "K7",
	})

	assert.NoError(t, err)
	assert.Equal(t, "t-winner", entry.TransactionID)
	publisher.AssertNotCalled(t, "PublishTransactionCompleted", mock.Anything, mock.Anything)
}

func TestApplyTransaction_WalletNotFound(t *testing.T) {
	repo := new(MockWalletRepository)
	repo.On("ExecuteInTransaction").Return(nil)
	repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K5").Return(nil, repositories.ErrLedgerEntryNotFound)
	repo.On("GetByWalletID", mock.Anything, "missing").Return(nil, repositories.ErrWalletNotFound)

	svc := newTestService(repo, new(MockLedgerRepository), new(MockPublisher))
	_, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		WalletID:       "missing",
		Type:           models.TransactionTypeTopup,
		Amount:         decimal.RequireFromString("10.00"),
		IdempotencyKey: "K5",
	})

	assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
}

func TestApplyTransaction_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := new(MockWalletRepository)
	publisher := new(MockPublisher)

	wallet := activeWallet("0.00")
	repo.On("ExecuteInTransaction").Return(nil)
	repo.On("GetLedgerEntryByIdempotencyKey", mock.Anything, "K6").Return(nil, repositories.ErrLedgerEntryNotFound)
	repo.On("GetByWalletID", mock.Anything, "w-1").Return(wallet, nil)
	repo.On("UpdateBalanceVersioned", mock.Anything, wallet, mock.Anything).Return(nil)
	repo.On("CreateLedgerEntry", mock.Anything, mock.Anything).Return(nil)
	publisher.On("PublishTransactionCompleted", mock.Anything, mock.Anything).
		Return(assert.AnError)

	svc := newTestService(repo, new(MockLedgerRepository), publisher)
	entry, err := svc.ApplyTransaction(context.Background(), ApplyRequest{
		WalletID:       "w-1",
		Type:           models.TransactionTypeTopup,
		Amount:         decimal.RequireFromString("25.00"),
		IdempotencyKey: "K6",
	})

	// The commit is the source of truth; event delivery is best-effort.
	assert.NoError(t, err)
	assert.True(t, entry.BalanceAfter.Equal(decimal.RequireFromString("25.00")))
}

func TestGetTransactionHistory_LimitClamping(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"zero limit falls back to default", 0, 20},
		{"negative limit falls back to default", -5, 20},
		{"oversized limit is clamped", 500, 100},
		{"in-range limit passes through", 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockWalletRepository)
			ledgerRepo := new(MockLedgerRepository)
			repo.On("GetByWalletID", mock.Anything, "w-1").Return(activeWallet("10.00"), nil)
			ledgerRepo.On("ListByWallet", mock.Anything, "w-1", tt.wantLimit, 0).
				Return([]models.TransactionLedgerEntry{}, nil)

			svc := newTestService(repo, ledgerRepo, new(MockPublisher))
			_, err := svc.GetTransactionHistory(context.Background(), "w-1", tt.limit, 0)

			assert.NoError(t, err)
			ledgerRepo.AssertExpectations(t)
		})
	}
}

func TestGetBalance(t *testing.T) {
	t.Run("returns snapshot", func(t *testing.T) {
		repo := new(MockWalletRepository)
		wallet := activeWallet("42.50")
		wallet.UpdatedAt = time.Now()
		repo.On("GetByWalletID", mock.Anything, "w-1").Return(wallet, nil)

		svc := newTestService(repo, new(MockLedgerRepository), new(MockPublisher))
		snap, err := svc.GetBalance(context.Background(), "w-1")

		assert.NoError(t, err)
		assert.Equal(t, "w-1", snap.WalletID)
		assert.Equal(t, "C1", snap.CustomerID)
		assert.True(t, snap.Balance.Equal(decimal.RequireFromString("42.50")))
	})

	t.Run("unknown wallet", func(t *testing.T) {
		repo := new(MockWalletRepository)
		repo.On("GetByWalletID", mock.Anything, "missing").Return(nil, repositories.ErrWalletNotFound)

		svc := newTestService(repo, new(MockLedgerRepository), new(MockPublisher))
		_, err := svc.GetBalance(context.Background(), "missing")

		assert.ErrorIs(t, err, apperrors.ErrWalletNotFound)
	})
}
