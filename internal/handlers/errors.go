package handlers

import (
	"errors"
	"log"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// respondError maps domain errors to stable HTTP statuses. Anything
// uncategorized is logged with context and surfaced as a generic 500 so
// internal detail never leaks.
func respondError(c *fiber.Ctx, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case "WALLET_NOT_FOUND":
			return utils.NotFound(c, domainErr.Message)
		case "WALLET_EXISTS", "CONCURRENT_MODIFICATION":
			return utils.Conflict(c, domainErr.Message)
		default:
			return utils.BadRequest(c, domainErr.Message)
		}
	}

	log.Printf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return utils.InternalError(c, "internal error")
}
