// Package store persists reconciliation reports. Reports are written once
// and never updated; the redis-backed cache wrapper exploits that.
package store

import (
	"context"

	"fisco/internal/reconcile/models"
	"fisco/pkg/domain"
)

// Store is the persistence contract for reports.
type Store interface {
	// Save stores a report. Errors: CodeConflict when the ID exists.
	Save(ctx context.Context, report models.Report) error
	// Get returns the report or CodeNotFound.
	Get(ctx context.Context, id domain.ReportID) (models.Report, error)
	// ListByPeriod returns the period's reports, newest first.
	ListByPeriod(ctx context.Context, period domain.Period) ([]models.Report, error)
}
