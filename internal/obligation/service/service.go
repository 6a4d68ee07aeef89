// Package service coordinates obligation imports and queries.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"fisco/internal/obligation/importer"
	"fisco/internal/obligation/models"
	"fisco/internal/obligation/store"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// Format names a supported ledger export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Service exposes obligation import and retrieval.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates an obligation Service.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import reads a ledger export and stores its obligations under the period.
// Unreadable rows and duplicates (within the file or against earlier
// imports) are skipped and reported, never aborting the rest of the file.
// Errors: CodeInvalidInput for a bad mapping, date format or file.
func (s *Service) Import(ctx context.Context, format Format, r io.Reader, mapping importer.ColumnMapping, dateFormat string, period domain.Period) (models.ImportResult, error) {
	if period.IsNil() {
		return models.ImportResult{}, dErrors.New(dErrors.CodeInvalidInput, "competence period is required")
	}
	im, err := importer.New(mapping, dateFormat)
	if err != nil {
		return models.ImportResult{}, err
	}

	var obligations []models.Obligation
	var skipped []models.SkippedRow
	switch format {
	case FormatCSV:
		obligations, skipped, err = im.ReadCSV(r, period)
	case FormatXLSX:
		obligations, skipped, err = im.ReadXLSX(r, period)
	default:
		return models.ImportResult{}, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported import format %q", format)
	}
	if err != nil {
		return models.ImportResult{}, err
	}

	result := models.ImportResult{Skipped: skipped}
	createdAt := s.now().UTC()
	for _, ob := range obligations {
		ob.CreatedAt = createdAt
		if err := s.store.Insert(ctx, ob); err != nil {
			if dErrors.Is(err, dErrors.CodeConflict) {
				result.Skipped = append(result.Skipped, models.SkippedRow{
					Reason: fmt.Sprintf("external id %q already imported", ob.ExternalID),
				})
				continue
			}
			return models.ImportResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist obligation")
		}
		result.Imported++
	}

	s.logger.InfoContext(ctx, "obligations imported",
		"period", period.String(),
		"imported", result.Imported,
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// List returns the obligations of a period. When dueWithinDays is positive,
// only obligations due on or before now plus that many days are returned.
func (s *Service) List(ctx context.Context, period domain.Period, dueWithinDays int) ([]models.Obligation, error) {
	if period.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "competence period is required")
	}
	obligations, err := s.store.ListByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	if dueWithinDays <= 0 {
		return obligations, nil
	}

	cutoff := s.now().UTC().AddDate(0, 0, dueWithinDays)
	var out []models.Obligation
	for _, ob := range obligations {
		if !ob.DueDate.After(cutoff) {
			out = append(out, ob)
		}
	}
	return out, nil
}

// Get returns one obligation. Errors: CodeNotFound.
func (s *Service) Get(ctx context.Context, id domain.ObligationID) (models.Obligation, error) {
	return s.store.Get(ctx, id)
}
