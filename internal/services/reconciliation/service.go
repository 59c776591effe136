// Package reconciliation detects divergence between internally recorded
// completed transactions and an externally supplied record of the same
// business date.
package reconciliation

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"time"

	"walletledger/internal/models"
	"walletledger/internal/repositories"

	"github.com/shopspring/decimal"
)

// Service runs reconciliation and serves its stored results.
type Service interface {
	// Run reconciles a date against the configured feed source.
	Run(ctx context.Context, date time.Time) (*Report, error)
	// RunWithFeed reconciles a date against an uploaded, already-parsed feed.
	RunWithFeed(ctx context.Context, date time.Time, external []models.ExternalTransaction) (*Report, error)
	// GetReport rebuilds the report from persisted records without re-matching.
	GetReport(ctx context.Context, date time.Time) (*Report, error)
	// ExportCSV writes the persisted records for a date as a flat CSV.
	ExportCSV(ctx context.Context, date time.Time, w io.Writer) error
}

type service struct {
	ledger repositories.LedgerRepository
	recon  repositories.ReconciliationRepository
	feed   FeedSource
}

// NewService creates a new reconciliation service. feed is the default
// external source used when a run has no uploaded file.
func NewService(ledger repositories.LedgerRepository, recon repositories.ReconciliationRepository, feed FeedSource) Service {
	if ledger == nil {
		panic("ledger repository is required")
	}
	if recon == nil {
		panic("reconciliation repository is required")
	}
	if feed == nil {
		feed = NewStubFeed(ledger)
	}
	return &service{ledger: ledger, recon: recon, feed: feed}
}

func (s *service) Run(ctx context.Context, date time.Time) (*Report, error) {
	external, err := s.feed.Fetch(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch external feed: %w", err)
	}
	return s.RunWithFeed(ctx, date, external)
}

func (s *service) RunWithFeed(ctx context.Context, date time.Time, external []models.ExternalTransaction) (*Report, error) {
	day := date.Format(DateLayout)
	log.Printf("running reconciliation for %s", day)

	internal, err := s.ledger.ListCompletedByDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load internal transactions: %w", err)
	}
	log.Printf("reconciliation %s: %d internal, %d external", day, len(internal), len(external))

	records := Reconcile(internal, external, date)

	// A re-run supersedes the prior set; the replace is atomic so a failed
	// run never leaves a partial record set behind.
	if err := s.recon.ReplaceForDate(ctx, day, records); err != nil {
		return nil, fmt.Errorf("failed to persist reconciliation records: %w", err)
	}

	log.Printf("reconciliation completed for %s: %d records", day, len(records))
	return BuildReport(records, date), nil
}

func (s *service) GetReport(ctx context.Context, date time.Time) (*Report, error) {
	records, err := s.recon.ListByDate(ctx, date.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	return BuildReport(records, date), nil
}

// csvHeader is the fixed export column order.
var csvHeader = []string{
	"Reconciliation ID", "Internal Transaction ID", "External Transaction ID",
	"Internal Amount", "External Amount", "Status", "Discrepancy Amount", "Reason",
}

func (s *service) ExportCSV(ctx context.Context, date time.Time, w io.Writer) error {
	records, err := s.recon.ListByDate(ctx, date.Format(DateLayout))
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.ReconciliationID,
			r.InternalTransactionID,
			r.ExternalTransactionID,
			amountField(r.InternalAmount),
			amountField(r.ExternalAmount),
			r.Status,
			amountField(r.DiscrepancyAmount),
			r.DiscrepancyReason,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// amountField renders absent amounts as empty fields, never a placeholder.
func amountField(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
