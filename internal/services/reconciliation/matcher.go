package reconciliation

import (
	"fmt"
	"strings"
	"time"

	"walletledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// matchKey derives the tuple both sides are paired on. Transaction ids are
// deliberately absent: internal and external identifiers are not assumed to
// correspond.
func matchKey(customerID string, amount decimal.Decimal, txType string, date time.Time) string {
	return strings.Join([]string{
		customerID,
		amount.StringFixed(2),
		txType,
		date.Format(DateLayout),
	}, "|")
}

// pairKey is the amount-free portion of the match key, used to pair an
// internal transaction with an external one whose amount disagrees.
func pairKey(customerID, txType string, date time.Time) string {
	return strings.Join([]string{customerID, txType, date.Format(DateLayout)}, "|")
}

// Reconcile matches internal completed transactions against the external
// feed for one business date and returns the full record set for that date.
//
// Exact pairs (same customer, amount, type, date) become MATCHED. An internal
// transaction whose exact key is absent but whose (customer, type, date)
// tuple has an unconsumed external counterpart becomes AMOUNT_MISMATCH with
// the signed internal−external discrepancy. What remains unconsumed on
// either side is MISSING_EXTERNAL or MISSING_INTERNAL.
//
// Collision policy: when two transactions on the same side share a match key,
// the first seen wins and later duplicates are silently dropped from
// matching. This is deliberate: same-customer, same-amount, same-type,
// same-day traffic is indistinguishable under this key, and inventing a
// pairing would be guesswork.
func Reconcile(
	internal []models.TransactionLedgerEntry,
	external []models.ExternalTransaction,
	date time.Time,
) []models.ReconciliationRecord {
	now := time.Now()

	internalByKey := make(map[string]models.TransactionLedgerEntry, len(internal))
	internalOrder := make([]string, 0, len(internal))
	for _, tx := range internal {
		key := matchKey(tx.CustomerID, tx.Amount, tx.Type, date)
		if _, seen := internalByKey[key]; seen {
			continue
		}
		internalByKey[key] = tx
		internalOrder = append(internalOrder, key)
	}

	// External rows are keyed on their own transaction date, not the run
	// date: a row dated a different day must never pair with this day's
	// internal transactions.
	externalByKey := make(map[string]models.ExternalTransaction, len(external))
	externalOrder := make([]string, 0, len(external))
	externalByPair := make(map[string][]string)
	for _, tx := range external {
		key := matchKey(tx.CustomerID, tx.Amount, tx.Type, tx.TransactionDate)
		if _, seen := externalByKey[key]; seen {
			continue
		}
		externalByKey[key] = tx
		externalOrder = append(externalOrder, key)
		pk := pairKey(tx.CustomerID, tx.Type, tx.TransactionDate)
		externalByPair[pk] = append(externalByPair[pk], key)
	}

	records := make([]models.ReconciliationRecord, 0, len(internalOrder)+len(externalOrder))
	consumedInternal := make(map[string]bool)
	consumedExternal := make(map[string]bool)

	// Exact-match phase.
	for _, key := range internalOrder {
		ex, found := externalByKey[key]
		if !found {
			continue
		}
		consumedInternal[key] = true
		consumedExternal[key] = true
		records = append(records, newComparedRecord(internalByKey[key], ex, date, now))
	}

	// Mismatch phase: pair leftovers that agree on everything but amount.
	for _, key := range internalOrder {
		if consumedInternal[key] {
			continue
		}
		in := internalByKey[key]
		for _, exKey := range externalByPair[pairKey(in.CustomerID, in.Type, date)] {
			if consumedExternal[exKey] {
				continue
			}
			consumedInternal[key] = true
			consumedExternal[exKey] = true
			records = append(records, newComparedRecord(in, externalByKey[exKey], date, now))
			break
		}
	}

	// Leftover phase: whatever was never consumed is missing on one side.
	for _, key := range internalOrder {
		if consumedInternal[key] {
			continue
		}
		in := internalByKey[key]
		amount := in.Amount
		records = append(records, models.ReconciliationRecord{
			ReconciliationID:      uuid.NewString(),
			ReconciliationDate:    date,
			InternalTransactionID: in.TransactionID,
			InternalAmount:        &amount,
			Status:                models.ReconciliationStatusMissingExternal,
			DiscrepancyReason:     "internal transaction not found in external report",
			ProcessedAt:           now,
		})
	}
	for _, key := range externalOrder {
		if consumedExternal[key] {
			continue
		}
		ex := externalByKey[key]
		amount := ex.Amount
		records = append(records, models.ReconciliationRecord{
			ReconciliationID:      uuid.NewString(),
			ReconciliationDate:    date,
			ExternalTransactionID: ex.TransactionID,
			ExternalAmount:        &amount,
			Status:                models.ReconciliationStatusMissingInternal,
			DiscrepancyReason:     "external transaction not found in internal records",
			ProcessedAt:           now,
		})
	}

	return records
}

func newComparedRecord(in models.TransactionLedgerEntry, ex models.ExternalTransaction, date, now time.Time) models.ReconciliationRecord {
	internalAmount := in.Amount
	externalAmount := ex.Amount
	record := models.ReconciliationRecord{
		ReconciliationID:      uuid.NewString(),
		ReconciliationDate:    date,
		InternalTransactionID: in.TransactionID,
		ExternalTransactionID: ex.TransactionID,
		InternalAmount:        &internalAmount,
		ExternalAmount:        &externalAmount,
		ProcessedAt:           now,
	}

	if in.Amount.Equal(ex.Amount) {
		zero := decimal.Zero
		record.Status = models.ReconciliationStatusMatched
		record.DiscrepancyAmount = &zero
		return record
	}

	diff := in.Amount.Sub(ex.Amount)
	record.Status = models.ReconciliationStatusAmountMismatch
	record.DiscrepancyAmount = &diff
	record.DiscrepancyReason = fmt.Sprintf("amount mismatch: internal=%s, external=%s",
		in.Amount.StringFixed(2), ex.Amount.StringFixed(2))
	return record
}

// BuildReport summarizes a persisted record set. Total amount sums whichever
// side is present per record; discrepancy amount is total minus matched, sign
// preserved.
func BuildReport(records []models.ReconciliationRecord, date time.Time) *Report {
	matched := 0
	totalAmount := decimal.Zero
	matchedAmount := decimal.Zero
	discrepancies := make([]models.ReconciliationRecord, 0)

	for _, r := range records {
		switch {
		case r.InternalAmount != nil:
			totalAmount = totalAmount.Add(*r.InternalAmount)
		case r.ExternalAmount != nil:
			totalAmount = totalAmount.Add(*r.ExternalAmount)
		}
		if r.Status == models.ReconciliationStatusMatched {
			matched++
			if r.InternalAmount != nil {
				matchedAmount = matchedAmount.Add(*r.InternalAmount)
			}
		} else {
			discrepancies = append(discrepancies, r)
		}
	}

	return &Report{
		Date: date.Format(DateLayout),
		Summary: Summary{
			TotalTransactions: len(records),
			Matched:           matched,
			Mismatched:        len(records) - matched,
			TotalAmount:       totalAmount,
			MatchedAmount:     matchedAmount,
			DiscrepancyAmount: totalAmount.Sub(matchedAmount),
		},
		Discrepancies: discrepancies,
	}
}
