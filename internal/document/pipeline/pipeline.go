// Package pipeline orchestrates preprocess, OCR and parsing for one
// document. Pages fan out to concurrent workers and are reassembled in
// physical order before parsing (the ordering barrier); page failures
// isolate to the page, document failures to the document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"fisco/internal/document/metrics"
	"fisco/internal/document/models"
	"fisco/internal/document/ocr"
	"fisco/internal/document/parser"
	"fisco/internal/document/preprocess"
	"fisco/internal/platform/config"
	dErrors "fisco/pkg/domain-errors"
)

const initialBackoff = 100 * time.Millisecond

// Preprocessor splits and normalizes a raw payload into pages.
type Preprocessor interface {
	Run(ctx context.Context, doc models.RawDocument) ([]models.Page, error)
}

// Pipeline wires the document processing stages.
type Pipeline struct {
	pre     Preprocessor
	engine  ocr.Engine
	parser  *parser.Parser
	cfg     config.Pipeline
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPreprocessor swaps the page source (tests use fakes).
func WithPreprocessor(pre Preprocessor) Option {
	return func(p *Pipeline) { p.pre = pre }
}

// New builds a Pipeline around the given OCR engine.
func New(engine ocr.Engine, cfg config.Pipeline, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if engine == nil {
		return nil, fmt.Errorf("ocr engine is required")
	}
	p := &Pipeline{
		pre:    preprocess.New(),
		engine: engine,
		parser: parser.New(),
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("fisco/document/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// pageResult pairs a page's tokens with its failure, keyed by slice index so
// reassembly preserves physical page order.
type pageResult struct {
	tokens []models.Token
	err    error
}

// Process runs one document through preprocess, OCR and parsing.
// The returned record carries the outcome; an error is returned only for
// document-level rejection (empty or unsupported payloads), in which case no
// record exists. Page-level failures never fail siblings.
func (p *Pipeline) Process(ctx context.Context, doc models.RawDocument) (models.DocumentRecord, error) {
	ctx, span := p.tracer.Start(ctx, "document.process",
		trace.WithAttributes(
			attribute.String("document.id", doc.ID.String()),
			attribute.String("document.filename", doc.Filename),
		))
	defer span.End()

	record := models.DocumentRecord{
		ID:         doc.ID,
		Filename:   doc.Filename,
		UploadedAt: doc.UploadedAt,
		Period:     doc.Period,
	}

	pages, err := p.pre.Run(ctx, doc)
	if err != nil {
		return models.DocumentRecord{}, err
	}
	record.PageCount = len(pages)
	span.SetAttributes(attribute.Int("document.pages", len(pages)))

	results := make([]pageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism())
	for i := range pages {
		g.Go(func() error {
			tokens, err := p.extractPage(gctx, pages[i])
			results[i] = pageResult{tokens: tokens, err: err}
			// Failures are recorded, not returned: a page failure must not
			// cancel sibling workers.
			return nil
		})
	}
	_ = g.Wait() // ordering barrier; workers never return errors

	var tokens []models.Token
	var failedPages int
	for i, res := range results {
		if res.err != nil {
			failedPages++
			code := dErrors.CodeOf(res.err)
			if p.metrics != nil {
				p.metrics.ObservePageFailure(string(code))
			}
			p.logger.WarnContext(ctx, "page extraction failed",
				"document_id", doc.ID.String(),
				"page", pages[i].Number,
				"code", string(code),
				"error", res.err.Error(),
			)
			continue
		}
		if p.metrics != nil {
			p.metrics.ObservePage()
			for _, tok := range res.tokens {
				p.metrics.ObserveTokenConfidence(tok.Confidence)
			}
		}
		tokens = append(tokens, res.tokens...)
	}

	if failedPages == len(pages) {
		record.Status = models.StatusExtractionFailed
		record.FailureReason = fmt.Sprintf("all %d pages failed extraction", len(pages))
		p.observeDocument(record.Status)
		return record, nil
	}

	parsed, err := p.parser.Parse(doc.ID, doc.Filename, tokens)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeParseIncomplete) {
			record.Status = models.StatusParseIncomplete
			record.FailureReason = err.Error()
			p.observeDocument(record.Status)
			return record, nil
		}
		return models.DocumentRecord{}, err
	}

	record.Status = models.StatusParsed
	record.Parsed = &parsed
	p.observeDocument(record.Status)
	return record, nil
}

// extractPage runs OCR on one page under the per-unit timeout, retrying
// retriable failures with doubling backoff up to the configured budget.
func (p *Pipeline) extractPage(ctx context.Context, page models.Page) ([]models.Token, error) {
	attempts := p.cfg.ExtractRetries + 1
	backoff := initialBackoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "retry canceled")
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		tokens, err := p.recognizeOnce(ctx, page)
		if err == nil {
			return ocr.Normalize(tokens, p.cfg.MinOCRConfidence), nil
		}
		lastErr = err
		if !dErrors.Retriable(dErrors.CodeOf(err)) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *Pipeline) recognizeOnce(ctx context.Context, page models.Page) ([]models.Token, error) {
	unitCtx := ctx
	if p.cfg.PerUnitTimeout > 0 {
		var cancel context.CancelFunc
		unitCtx, cancel = context.WithTimeout(ctx, p.cfg.PerUnitTimeout)
		defer cancel()
	}

	tokens, err := p.engine.Recognize(unitCtx, page)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "page exceeded processing budget")
		}
		return nil, err
	}
	return tokens, nil
}

func (p *Pipeline) parallelism() int {
	if p.cfg.PageParallelism > 0 {
		return p.cfg.PageParallelism
	}
	return 1
}

func (p *Pipeline) observeDocument(status models.ProcessingStatus) {
	if p.metrics != nil {
		p.metrics.ObserveDocument(string(status))
	}
}
