package reconciliation

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"strings"
	"time"

	"walletledger/internal/models"
	"walletledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeedSource supplies the external transaction list for a business date.
type FeedSource interface {
	Fetch(ctx context.Context, date time.Time) ([]models.ExternalTransaction, error)
}

// ParseCSVFeed reads an uploaded external feed. Expected columns:
// transaction id, amount, customer id, type, date. The header row is
// skipped, and rows that fail to parse are logged and dropped.
func ParseCSVFeed(r io.Reader) ([]models.ExternalTransaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv feed: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrInvalidFeed
	}

	transactions := make([]models.ExternalTransaction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		tx, err := parseFeedRow(row)
		if err != nil {
			log.Printf("skipping invalid feed row %v: %v", row, err)
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func parseFeedRow(row []string) (models.ExternalTransaction, error) {
	var tx models.ExternalTransaction
	if len(row) < 5 {
		return tx, fmt.Errorf("expected 5 columns, got %d", len(row))
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(row[1]))
	if err != nil {
		return tx, fmt.Errorf("bad amount: %w", err)
	}
	date, err := time.Parse(DateLayout, strings.TrimSpace(row[4]))
	if err != nil {
		return tx, fmt.Errorf("bad date: %w", err)
	}
	txType := strings.ToUpper(strings.TrimSpace(row[3]))
	if txType != models.TransactionTypeTopup && txType != models.TransactionTypeConsume {
		return tx, fmt.Errorf("bad type %q", row[3])
	}

	return models.ExternalTransaction{
		TransactionID:   strings.TrimSpace(row[0]),
		Amount:          amount,
		CustomerID:      strings.TrimSpace(row[2]),
		Type:            txType,
		TransactionDate: date,
	}, nil
}

// feedDate accepts both RFC3339 timestamps and plain YYYY-MM-DD dates, since
// external feeds commonly carry date-only values.
type feedDate struct {
	time.Time
}

func (d *feedDate) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return fmt.Errorf("bad transaction date %q", s)
	}
	d.Time = t
	return nil
}

// ParseJSONFeed reads an uploaded external feed in JSON array form.
func ParseJSONFeed(r io.Reader) ([]models.ExternalTransaction, error) {
	var rows []struct {
		TransactionID   string          `json:"transaction_id"`
		Amount          decimal.Decimal `json:"amount"`
		CustomerID      string          `json:"customer_id"`
		Type            string          `json:"type"`
		TransactionDate feedDate        `json:"transaction_date"`
	}
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse json feed: %w", err)
	}

	transactions := make([]models.ExternalTransaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, models.ExternalTransaction{
			TransactionID:   row.TransactionID,
			Amount:          row.Amount,
			CustomerID:      row.CustomerID,
			Type:            row.Type,
			TransactionDate: row.TransactionDate.Time,
		})
	}
	return transactions, nil
}

// StaticFeed wraps an already-parsed upload as a FeedSource.
type StaticFeed []models.ExternalTransaction

func (f StaticFeed) Fetch(context.Context, time.Time) ([]models.ExternalTransaction, error) {
	return f, nil
}

// StubFeed fabricates an external feed from the internal ledger for demo and
// development runs: most entries match, a few carry a shaved amount, a few
// are dropped, and the occasional unknown external entry is added.
type StubFeed struct {
	ledger repositories.LedgerRepository
	rng    *rand.Rand
}

func NewStubFeed(ledger repositories.LedgerRepository) *StubFeed {
	return &StubFeed{
		ledger: ledger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *StubFeed) Fetch(ctx context.Context, date time.Time) ([]models.ExternalTransaction, error) {
	internal, err := f.ledger.ListCompletedByDate(ctx, date.Format(DateLayout))
	if err != nil {
		return nil, err
	}

	external := make([]models.ExternalTransaction, 0, len(internal))
	for _, tx := range internal {
		roll := f.rng.Float64()
		switch {
		case roll < 0.9:
			external = append(external, models.ExternalTransaction{
				TransactionID:   "EXT-" + tx.TransactionID,
				Amount:          tx.Amount,
				CustomerID:      tx.CustomerID,
				Type:            tx.Type,
				TransactionDate: date,
			})
		case roll < 0.95:
			// 5% shaved amount to exercise the mismatch path
			external = append(external, models.ExternalTransaction{
				TransactionID:   "EXT-" + tx.TransactionID,
				Amount:          tx.Amount.Mul(decimal.NewFromFloat(0.95)).Round(2),
				CustomerID:      tx.CustomerID,
				Type:            tx.Type,
				TransactionDate: date,
			})
		default:
			// dropped: shows up as MISSING_EXTERNAL
		}
	}

	if f.rng.Float64() < 0.1 {
		external = append(external, models.ExternalTransaction{
			TransactionID:   "EXT-MISSING-" + uuid.NewString()[:8],
			Amount:          decimal.NewFromInt(100),
			CustomerID:      "CUST-" + uuid.NewString()[:8],
			Type:            models.TransactionTypeTopup,
			TransactionDate: date,
		})
	}

	return external, nil
}
