package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"walletledger/internal/models"
	"walletledger/internal/services/reconciliation"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type ReconciliationHandler struct {
	reconService reconciliation.Service
}

func NewReconciliationHandler(reconService reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{reconService: reconService}
}

// Run triggers reconciliation for a date. When a multipart `file` is
// attached it is parsed as the external feed (CSV or JSON by extension);
// otherwise the configured feed source supplies the external side.
func (h *ReconciliationHandler) Run(c *fiber.Ctx) error {
	date, err := reconciliation.ParseDate(c.Query("date"))
	if err != nil {
		return respondError(c, reconciliation.ErrInvalidDate)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		// No upload: reconcile against the default feed source.
		report, runErr := h.reconService.Run(c.Context(), date)
		if runErr != nil {
			return respondError(c, runErr)
		}
		return utils.Success(c, report)
	}

	external, err := parseUploadedFeed(fileHeader)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}

	report, err := h.reconService.RunWithFeed(c.Context(), date, external)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, report)
}

func parseUploadedFeed(fileHeader *multipart.FileHeader) ([]models.ExternalTransaction, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".json":
		return reconciliation.ParseJSONFeed(file)
	case ".csv", "":
		return reconciliation.ParseCSVFeed(file)
	default:
		return nil, fmt.Errorf("unsupported feed format %q", filepath.Ext(fileHeader.Filename))
	}
}

func (h *ReconciliationHandler) GetReport(c *fiber.Ctx) error {
	date, err := reconciliation.ParseDate(c.Query("date"))
	if err != nil {
		return respondError(c, reconciliation.ErrInvalidDate)
	}

	report, err := h.reconService.GetReport(c.Context(), date)
	if err != nil {
		return respondError(c, err)
	}
	return utils.Success(c, report)
}

func (h *ReconciliationHandler) ExportCSV(c *fiber.Ctx) error {
	date, err := reconciliation.ParseDate(c.Query("date"))
	if err != nil {
		return respondError(c, reconciliation.ErrInvalidDate)
	}

	var buf bytes.Buffer
	if err := h.reconService.ExportCSV(c.Context(), date, &buf); err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="reconciliation_%s.csv"`, date.Format(reconciliation.DateLayout)))
	return c.Send(buf.Bytes())
}
