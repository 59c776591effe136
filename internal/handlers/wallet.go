package handlers

import (
	"walletledger/internal/models"
	"walletledger/internal/services/ledger"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	ledgerService ledger.Service
}

func NewWalletHandler(ledgerService ledger.Service) *WalletHandler {
	return &WalletHandler{ledgerService: ledgerService}
}

func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	var input struct {
		CustomerID string `json:"customer_id"`
		Currency   string `json:"currency"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.CustomerID == "" {
		return utils.BadRequest(c, "customer_id is required")
	}

	wallet, err := h.ledgerService.CreateWallet(c.Context(), input.CustomerID, input.Currency)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Created(c, fiber.Map{"wallet": wallet})
}

type mutationInput struct {
	Amount         decimal.Decimal        `json:"amount"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Description    string                 `json:"description"`
	ServiceType    string                 `json:"service_type"`
	Metadata       map[string]interface{} `json:"metadata"`
}

func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	return h.apply(c, models.TransactionTypeTopup)
}

func (h *WalletHandler) Consume(c *fiber.Ctx) error {
	return h.apply(c, models.TransactionTypeConsume)
}

func (h *WalletHandler) apply(c *fiber.Ctx, txType string) error {
	var input mutationInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	entry, err := h.ledgerService.ApplyTransaction(c.Context(), ledger.ApplyRequest{
		WalletID:       c.Params("id"),
		Type:           txType,
		Amount:         input.Amount,
		IdempotencyKey: input.IdempotencyKey,
		Description:    input.Description,
		ServiceType:    input.ServiceType,
		Metadata:       models.NewJSON(input.Metadata),
	})
	if err != nil {
		return respondError(c, err)
	}

	return utils.Success(c, fiber.Map{"transaction": entry})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	balance, err := h.ledgerService.GetBalance(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, balance)
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	entries, err := h.ledgerService.GetTransactionHistory(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, fiber.Map{"transactions": entries})
}
