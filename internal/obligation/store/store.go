// Package store persists obligations.
package store

import (
	"context"

	"fisco/internal/obligation/models"
	"fisco/pkg/domain"
)

// Store is the persistence contract for obligations.
type Store interface {
	// Insert adds one obligation. Errors: CodeConflict when another
	// obligation with the same external ID exists in the same period.
	Insert(ctx context.Context, ob models.Obligation) error
	// Get returns the obligation or CodeNotFound.
	Get(ctx context.Context, id domain.ObligationID) (models.Obligation, error)
	// ListByPeriod returns all obligations of a period ordered by due date,
	// then ID.
	ListByPeriod(ctx context.Context, period domain.Period) ([]models.Obligation, error)
}
