// Package handler exposes obligation import and queries over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fisco/internal/obligation/importer"
	"fisco/internal/obligation/models"
	"fisco/internal/obligation/service"
	"fisco/internal/platform/metrics"
	"fisco/internal/platform/middleware"
	"fisco/internal/transport/http/shared"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

const maxImportBytes = 16 << 20

// Service defines the obligation operations the handler needs.
type Service interface {
	Import(ctx context.Context, format service.Format, r io.Reader, mapping importer.ColumnMapping, dateFormat string, period domain.Period) (models.ImportResult, error)
	List(ctx context.Context, period domain.Period, dueWithinDays int) ([]models.Obligation, error)
	Get(ctx context.Context, id domain.ObligationID) (models.Obligation, error)
}

// Handler handles obligation endpoints.
type Handler struct {
	logger      *slog.Logger
	obligations Service
	metrics     *metrics.Metrics
}

// New creates an obligation Handler.
func New(obligations Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:      logger,
		obligations: obligations,
		metrics:     metrics,
	}
}

// Register registers the obligation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	obRouter := chi.NewRouter()
	obRouter.Use(middleware.Recovery(h.logger))
	obRouter.Use(middleware.RequestID)
	obRouter.Use(middleware.Logger(h.logger))
	obRouter.Use(middleware.Timeout(time.Minute))
	obRouter.Use(middleware.ContentTypeJSON)
	obRouter.Use(middleware.Latency(h.metrics))
	obRouter.Post("/importar", h.handleImport)
	obRouter.Get("/", h.handleList)
	obRouter.Get("/{id}", h.handleGet)

	r.Mount("/obrigacoes", obRouter)
}

// handleImport ingests a multipart ledger export: a "file" part, a "period"
// form value, and optional "mapping" (JSON column mapping) and "date_format"
// values. The format is taken from the file extension.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}

	period, err := domain.ParsePeriod(r.FormValue("period"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	mapping := importer.DefaultMapping()
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "mapping must be a JSON object"))
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "file part is required"))
		return
	}
	defer file.Close()

	format, err := formatFromFilename(header.Filename)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.obligations.Import(ctx, format, file, mapping, r.FormValue("date_format"), period)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "obligation import failed",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to import obligations"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	dueWithinDays := 0
	if raw := r.URL.Query().Get("due_within_days"); raw != "" {
		dueWithinDays, err = strconv.Atoi(raw)
		if err != nil || dueWithinDays < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "due_within_days must be a non-negative integer"))
			return
		}
	}

	obligations, err := h.obligations.List(ctx, period, dueWithinDays)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list obligations",
			"request_id", middleware.GetRequestID(ctx),
			"period", period.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list obligations"))
		return
	}
	if obligations == nil {
		obligations = []models.Obligation{}
	}

	shared.WriteJSON(w, http.StatusOK, obligations)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseObligationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	ob, err := h.obligations.Get(ctx, id)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load obligation",
			"request_id", middleware.GetRequestID(ctx),
			"obligation_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load obligation"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, ob)
}

func formatFromFilename(filename string) (service.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return service.FormatCSV, nil
	case ".xlsx":
		return service.FormatXLSX, nil
	default:
		return "", dErrors.Newf(dErrors.CodeUnsupportedFormat, "unsupported import file %q (want .csv or .xlsx)", filename)
	}
}
