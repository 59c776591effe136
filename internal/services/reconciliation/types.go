package reconciliation

import (
	"time"

	"walletledger/internal/models"

	"github.com/shopspring/decimal"
)

// Summary aggregates one reconciliation run.
type Summary struct {
	TotalTransactions int             `json:"total_transactions"`
	Matched           int             `json:"matched"`
	Mismatched        int             `json:"mismatched"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	MatchedAmount     decimal.Decimal `json:"matched_amount"`
	DiscrepancyAmount decimal.Decimal `json:"discrepancy_amount"`
}

// Report is the caller-facing result of a reconciliation run: the summary
// plus every record that did not match.
type Report struct {
	Date          string                        `json:"date"`
	Summary       Summary                       `json:"summary"`
	Discrepancies []models.ReconciliationRecord `json:"discrepancies"`
}

// DateLayout is the business-date wire format.
const DateLayout = "2006-01-02"

// ParseDate parses a business date in DateLayout form.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
