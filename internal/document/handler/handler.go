// Package handler exposes document ingestion over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fisco/internal/document/models"
	"fisco/internal/platform/metrics"
	"fisco/internal/platform/middleware"
	"fisco/internal/transport/http/shared"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 32 << 20

// Service defines the document operations the handler needs.
type Service interface {
	Submit(ctx context.Context, filename string, payload []byte, period domain.Period) (models.DocumentRecord, error)
	Get(ctx context.Context, id domain.DocumentID) (models.DocumentRecord, error)
	ListByPeriod(ctx context.Context, period domain.Period) ([]models.DocumentRecord, error)
}

// Handler handles document endpoints.
type Handler struct {
	logger    *slog.Logger
	documents Service
	metrics   *metrics.Metrics
}

// New creates a document Handler.
func New(documents Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		documents: documents,
		metrics:   metrics,
	}
}

// Register registers the document routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	docRouter := chi.NewRouter()
	docRouter.Use(middleware.Recovery(h.logger))
	docRouter.Use(middleware.RequestID)
	docRouter.Use(middleware.Logger(h.logger))
	docRouter.Use(middleware.Timeout(2 * time.Minute))
	docRouter.Use(middleware.ContentTypeJSON)
	docRouter.Use(middleware.Latency(h.metrics))
	docRouter.Post("/", h.handleUpload)
	docRouter.Get("/", h.handleList)
	docRouter.Get("/{id}", h.handleGet)

	r.Mount("/documentos", docRouter)
}

// handleUpload ingests one multipart upload: a "file" part plus a "period"
// form value naming the competence period.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.WarnContext(ctx, "invalid multipart upload",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
		return
	}

	period, err := domain.ParsePeriod(r.FormValue("period"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "file part is required"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read file part"))
		return
	}

	record, err := h.documents.Submit(ctx, header.Filename, payload, period)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeUnsupportedFormat) || dErrors.Is(err, dErrors.CodeInvalidInput) {
			h.logger.WarnContext(ctx, "document rejected",
				"request_id", requestID,
				"filename", header.Filename,
				"error", err.Error(),
			)
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "document ingestion failed",
			"request_id", requestID,
			"filename", header.Filename,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to ingest document"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.documents.Get(ctx, id)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load document",
			"request_id", middleware.GetRequestID(ctx),
			"document_id", id.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load document"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	records, err := h.documents.ListByPeriod(ctx, period)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list documents",
			"request_id", middleware.GetRequestID(ctx),
			"period", period.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list documents"))
		return
	}
	if records == nil {
		records = []models.DocumentRecord{}
	}

	shared.WriteJSON(w, http.StatusOK, records)
}
