// Package routes defines the API routing configuration.
// It wires repositories, services, and handlers together and registers all
// HTTP routes.
package routes

import (
	"walletledger/internal/events"
	"walletledger/internal/handlers"
	"walletledger/internal/repositories"
	"walletledger/internal/services/ledger"
	"walletledger/internal/services/reconciliation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes and returns the
// reconciliation service so the scheduler can share it.
func SetupRoutes(app *fiber.App, db *gorm.DB, publisher events.Publisher) reconciliation.Service {
	walletRepo := repositories.NewWalletRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	reconRepo := repositories.NewReconciliationRepository(db)

	ledgerService := ledger.NewService(
		walletRepo,
		ledgerRepo,
		repositories.CacheService,
		publisher,
		ledger.Config{},
		ledger.NoopMetricsCollector{},
	)
	reconService := reconciliation.NewService(ledgerRepo, reconRepo, nil)

	walletHandler := handlers.NewWalletHandler(ledgerService)
	reconHandler := handlers.NewReconciliationHandler(reconService)

	api := app.Group("/api")

	wallets := api.Group("/wallets")
	wallets.Post("/", walletHandler.CreateWallet)
	wallets.Post("/:id/topup", walletHandler.TopUp)
	wallets.Post("/:id/consume", walletHandler.Consume)
	wallets.Get("/:id/balance", walletHandler.GetBalance)
	wallets.Get("/:id/transactions", walletHandler.GetTransactions)

	recon := api.Group("/reconciliation")
	recon.Post("/run", reconHandler.Run)
	recon.Get("/report", reconHandler.GetReport)
	recon.Get("/export", reconHandler.ExportCSV)

	return reconService
}
