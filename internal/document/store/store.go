// Package store persists document records. Two implementations share the
// Store contract: an in-memory store for tests and single-node use, and a
// PostgreSQL store for production.
package store

import (
	"context"

	"fisco/internal/document/models"
	"fisco/pkg/domain"
)

// Store is the persistence contract for document records.
type Store interface {
	// Save upserts a record keyed by its document ID.
	Save(ctx context.Context, record models.DocumentRecord) error
	// Get returns the record or CodeNotFound.
	Get(ctx context.Context, id domain.DocumentID) (models.DocumentRecord, error)
	// ListByPeriod returns all records for a competence period ordered by
	// upload time, then ID.
	ListByPeriod(ctx context.Context, period domain.Period) ([]models.DocumentRecord, error)
}
