// Package handler exposes reconciliation runs and reports over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fisco/internal/platform/metrics"
	"fisco/internal/platform/middleware"
	"fisco/internal/reconcile/models"
	"fisco/internal/transport/http/shared"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// Service defines the reconciliation operations the handler needs.
type Service interface {
	Reconcile(ctx context.Context, period domain.Period) (models.Report, error)
	GetReport(ctx context.Context, id domain.ReportID) (models.Report, error)
	ListReports(ctx context.Context, period domain.Period) ([]models.Report, error)
}

// Handler handles reconciliation endpoints.
type Handler struct {
	logger    *slog.Logger
	reconcile Service
	metrics   *metrics.Metrics
}

// New creates a reconciliation Handler.
func New(reconcile Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		reconcile: reconcile,
		metrics:   metrics,
	}
}

// Register registers the reconciliation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	recRouter := chi.NewRouter()
	recRouter.Use(middleware.Recovery(h.logger))
	recRouter.Use(middleware.RequestID)
	recRouter.Use(middleware.Logger(h.logger))
	recRouter.Use(middleware.Timeout(2 * time.Minute))
	recRouter.Use(middleware.ContentTypeJSON)
	recRouter.Use(middleware.Latency(h.metrics))
	recRouter.Post("/executar", h.handleRun)
	recRouter.Get("/relatorios", h.handleList)
	recRouter.Get("/relatorios/{id}", h.handleGet)

	r.Mount("/conciliacao", recRouter)
}

type runRequest struct {
	Period string `json:"period"`
}

// handleRun executes one reconciliation for the requested period.
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.reconcile.Reconcile(ctx, period)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeAggregationMismatch) {
			h.logger.ErrorContext(ctx, "reconciliation aborted",
				"request_id", requestID,
				"period", period.String(),
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "reconciliation failed",
			"request_id", requestID,
			"period", period.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "reconciliation failed"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, report)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.reconcile.GetReport(ctx, id)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load report",
			"request_id", middleware.GetRequestID(ctx),
			"report_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load report"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reports, err := h.reconcile.ListReports(ctx, period)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list reports",
			"request_id", middleware.GetRequestID(ctx),
			"period", period.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list reports"))
		return
	}
	if reports == nil {
		reports = []models.Report{}
	}

	shared.WriteJSON(w, http.StatusOK, reports)
}
