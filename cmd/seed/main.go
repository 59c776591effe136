// Package main seeds demo wallets and ledger traffic so reconciliation has
// something to chew on in development environments.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"walletledger/internal/config"
	"walletledger/internal/events"
	"walletledger/internal/models"
	"walletledger/internal/repositories"
	"walletledger/internal/services/ledger"

	"github.com/shopspring/decimal"
)

func main() {
	config.LoadEnv()

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	walletRepo := repositories.NewWalletRepository(repositories.DB)
	ledgerRepo := repositories.NewLedgerRepository(repositories.DB)
	svc := ledger.NewService(
		walletRepo,
		ledgerRepo,
		nil,
		events.NoopPublisher{},
		ledger.Config{},
		nil,
	)

	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		customerID := fmt.Sprintf("CUST-%03d", i)
		wallet, err := svc.CreateWallet(ctx, customerID, "USD")
		if err != nil {
			log.Printf("skipping %s: %v", customerID, err)
			continue
		}

		topup := decimal.NewFromInt(int64(100 + rand.Intn(900)))
		if _, err := svc.ApplyTransaction(ctx, ledger.ApplyRequest{
			WalletID:       wallet.WalletID,
			Type:           models.TransactionTypeTopup,
			Amount:         topup,
			IdempotencyKey: fmt.Sprintf("seed-topup-%s", customerID),
			Description:    "seed top-up",
		}); err != nil {
			log.Printf("top-up failed for %s: %v", customerID, err)
			continue
		}

		consume := topup.Div(decimal.NewFromInt(4)).Round(2)
		if _, err := svc.ApplyTransaction(ctx, ledger.ApplyRequest{
			WalletID:       wallet.WalletID,
			Type:           models.TransactionTypeConsume,
			Amount:         consume,
			IdempotencyKey: fmt.Sprintf("seed-consume-%s", customerID),
			Description:    "seed consumption",
			ServiceType:    "seed",
		}); err != nil {
			log.Printf("consume failed for %s: %v", customerID, err)
		}
		log.Printf("seeded %s: wallet %s", customerID, wallet.WalletID)
	}
}
