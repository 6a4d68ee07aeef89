// Package service coordinates document ingestion: it runs uploads through the
// processing pipeline and persists the outcome, successful or not.
package service

import (
	"context"
	"log/slog"
	"time"

	"fisco/internal/document/models"
	"fisco/internal/document/store"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// Processor runs one raw document through preprocess, OCR and parsing.
type Processor interface {
	Process(ctx context.Context, doc models.RawDocument) (models.DocumentRecord, error)
}

// Service exposes document ingestion and retrieval.
type Service struct {
	store     store.Store
	processor Processor
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a document Service.
func New(st store.Store, processor Processor, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		processor: processor,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit ingests one uploaded payload under the declared competence period.
// The returned record reflects the pipeline outcome; extraction and parse
// failures are persisted, not returned as errors, so they stay visible to
// reconciliation. Errors: CodeInvalidInput for an empty payload or period,
// CodeUnsupportedFormat when the payload is not a known document format.
func (s *Service) Submit(ctx context.Context, filename string, payload []byte, period domain.Period) (models.DocumentRecord, error) {
	if len(payload) == 0 {
		return models.DocumentRecord{}, dErrors.New(dErrors.CodeInvalidInput, "payload is empty")
	}
	if period.IsNil() {
		return models.DocumentRecord{}, dErrors.New(dErrors.CodeInvalidInput, "competence period is required")
	}

	doc := models.RawDocument{
		ID:         domain.NewDocumentID(),
		Filename:   filename,
		Payload:    payload,
		UploadedAt: s.now().UTC(),
		Period:     period,
	}

	record, err := s.processor.Process(ctx, doc)
	if err != nil {
		return models.DocumentRecord{}, err
	}
	if err := s.store.Save(ctx, record); err != nil {
		return models.DocumentRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist document record")
	}

	s.logger.InfoContext(ctx, "document ingested",
		"document_id", record.ID.String(),
		"period", record.Period.String(),
		"pages", record.PageCount,
		"status", string(record.Status),
	)
	return record, nil
}

// Get returns one document record. Errors: CodeNotFound.
func (s *Service) Get(ctx context.Context, id domain.DocumentID) (models.DocumentRecord, error) {
	return s.store.Get(ctx, id)
}

// ListByPeriod returns all records of a competence period in upload order.
func (s *Service) ListByPeriod(ctx context.Context, period domain.Period) ([]models.DocumentRecord, error) {
	if period.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "competence period is required")
	}
	return s.store.ListByPeriod(ctx, period)
}
