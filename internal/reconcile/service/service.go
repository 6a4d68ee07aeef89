// Package service runs reconciliations: it loads the period's documents and
// obligations, matches them, builds the report, persists it and announces it.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	docstore "fisco/internal/document/store"
	obstore "fisco/internal/obligation/store"
	"fisco/internal/reconcile/engine"
	"fisco/internal/reconcile/metrics"
	"fisco/internal/reconcile/models"
	"fisco/internal/reconcile/report"
	"fisco/internal/reconcile/store"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// Publisher announces finished reports to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// ReportEvent is the payload published when a report is created.
type ReportEvent struct {
	ReportID  string         `json:"report_id"`
	Period    string         `json:"period"`
	CreatedAt time.Time      `json:"created_at"`
	Summary   models.Summary `json:"summary"`
}

// Service exposes reconciliation runs and report retrieval.
type Service struct {
	documents   docstore.Store
	obligations obstore.Store
	reports     store.Store
	engine      *engine.Engine
	logger      *slog.Logger
	metrics     *metrics.Metrics
	publisher   Publisher
	tracer      trace.Tracer
	now         func() time.Time
}

// Option configures optional collaborators.
type Option func(*Service)

// WithMetrics attaches reconciliation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPublisher attaches a report event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a reconciliation Service.
func New(documents docstore.Store, obligations obstore.Store, reports store.Store, eng *engine.Engine, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		documents:   documents,
		obligations: obligations,
		reports:     reports,
		engine:      eng,
		logger:      logger,
		tracer:      otel.Tracer("fisco/reconcile/service"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reconcile runs one reconciliation over the period's stored documents and
// obligations and persists the resulting report. The run aborts without
// persisting on CodeAggregationMismatch.
func (s *Service) Reconcile(ctx context.Context, period domain.Period) (models.Report, error) {
	if period.IsNil() {
		return models.Report{}, dErrors.New(dErrors.CodeInvalidInput, "competence period is required")
	}

	ctx, span := s.tracer.Start(ctx, "reconcile.run",
		trace.WithAttributes(attribute.String("reconcile.period", period.String())))
	defer span.End()
	start := s.now()

	records, err := s.documents.ListByPeriod(ctx, period)
	if err != nil {
		return models.Report{}, dErrors.Wrap(err, dErrors.CodeInternal, "load documents")
	}
	obligations, err := s.obligations.ListByPeriod(ctx, period)
	if err != nil {
		return models.Report{}, dErrors.Wrap(err, dErrors.CodeInternal, "load obligations")
	}
	span.SetAttributes(
		attribute.Int("reconcile.documents", len(records)),
		attribute.Int("reconcile.obligations", len(obligations)),
	)

	results := s.engine.Match(records, obligations)

	rep, err := report.Build(domain.NewReportID(), period, s.now().UTC(), results)
	if err != nil {
		// AggregationMismatch is fatal for the run; nothing is persisted.
		s.logger.ErrorContext(ctx, "report build failed",
			"period", period.String(),
			"error", err.Error(),
		)
		return models.Report{}, err
	}
	if err := s.reports.Save(ctx, rep); err != nil {
		return models.Report{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist report")
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(s.now().Sub(start).Seconds())
		for _, r := range results {
			s.metrics.ObserveResult(string(r.Status))
		}
	}
	if s.publisher != nil {
		event := ReportEvent{
			ReportID:  rep.ID.String(),
			Period:    rep.Period.String(),
			CreatedAt: rep.CreatedAt,
			Summary:   rep.Summary,
		}
		if err := s.publisher.Publish(ctx, rep.ID.String(), event); err != nil {
			// The report is already persisted; a lost event is logged, not
			// a run failure.
			s.logger.ErrorContext(ctx, "report event publish failed",
				"report_id", rep.ID.String(),
				"error", err.Error(),
			)
		}
	}

	s.logger.InfoContext(ctx, "reconciliation run finished",
		"report_id", rep.ID.String(),
		"period", period.String(),
		"matched", rep.Summary.Matched,
		"partial", rep.Summary.Partial,
		"unmatched_documents", rep.Summary.UnmatchedDocuments,
		"unmatched_obligations", rep.Summary.UnmatchedObligations,
		"extraction_failed", rep.Summary.ExtractionFailed,
	)
	return rep, nil
}

// GetReport returns one report. Errors: CodeNotFound.
func (s *Service) GetReport(ctx context.Context, id domain.ReportID) (models.Report, error) {
	return s.reports.Get(ctx, id)
}

// ListReports returns the period's reports, newest first.
func (s *Service) ListReports(ctx context.Context, period domain.Period) ([]models.Report, error) {
	if period.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "competence period is required")
	}
	return s.reports.ListByPeriod(ctx, period)
}
