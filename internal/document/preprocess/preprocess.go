// Package preprocess normalizes uploaded payloads into OCR-ready pages.
// Images become a single page; PDFs are split into one page per physical
// page, pulling the scanned raster out of each page with pdfcpu.
package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"

	"fisco/internal/document/models"
	dErrors "fisco/pkg/domain-errors"
)

// Canonical normalization targets. Tesseract quality degrades sharply below
// ~1000 px of page height on phone scans.
const (
	targetHeight = 1200
	contrastPct  = 12.0
)

// Format is the detected payload format.
type Format string

const (
	FormatPNG  Format = "image/png"
	FormatJPEG Format = "image/jpeg"
	FormatTIFF Format = "image/tiff"
	FormatPDF  Format = "application/pdf"
)

// Preprocessor converts raw payloads into normalized pages.
type Preprocessor struct{}

// New returns a Preprocessor.
func New() *Preprocessor { return &Preprocessor{} }

// Run splits doc into pages and normalizes each one. Pages are returned in
// physical order. A PDF page without a recoverable raster image yields a
// Page with empty PNG data; the OCR engine fails such pages individually so
// siblings still process.
// Errors: CodeUnsupportedFormat for empty payloads or unknown formats.
func (p *Preprocessor) Run(ctx context.Context, doc models.RawDocument) ([]models.Page, error) {
	if len(doc.Payload) == 0 {
		return nil, dErrors.New(dErrors.CodeUnsupportedFormat, "empty payload")
	}

	format, ok := DetectFormat(doc.Payload)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnsupportedFormat, "unrecognized document format")
	}

	if format == FormatPDF {
		return p.pdfPages(ctx, doc)
	}

	page, err := p.normalize(doc.Payload, format)
	if err != nil {
		return nil, err
	}
	page.DocumentID = doc.ID
	page.Number = 1
	return []models.Page{page}, nil
}

// DetectFormat sniffs the payload's magic bytes.
func DetectFormat(payload []byte) (Format, bool) {
	switch {
	case bytes.HasPrefix(payload, []byte("%PDF")):
		return FormatPDF, true
	case bytes.HasPrefix(payload, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG, true
	case bytes.HasPrefix(payload, []byte("\xff\xd8\xff")):
		return FormatJPEG, true
	case bytes.HasPrefix(payload, []byte("II*\x00")), bytes.HasPrefix(payload, []byte("MM\x00*")):
		return FormatTIFF, true
	}
	return "", false
}

// normalize decodes an image payload and applies the canonical grayscale,
// scale and contrast treatment.
func (p *Preprocessor) normalize(payload []byte, format Format) (models.Page, error) {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return models.Page{}, dErrors.Wrap(err, dErrors.CodeUnsupportedFormat, "decode image")
	}

	gray := imaging.Grayscale(img)
	params := models.PreprocessParams{
		Grayscale:    true,
		ContrastPct:  contrastPct,
		SourceFormat: string(format),
	}
	if gray.Bounds().Dy() < targetHeight {
		gray = imaging.Resize(gray, 0, targetHeight, imaging.Lanczos)
		params.TargetHeight = targetHeight
	}
	gray = imaging.AdjustContrast(gray, contrastPct)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return models.Page{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode normalized page")
	}
	return models.Page{PNG: buf.Bytes(), Params: params}, nil
}

// pdfPages extracts one page image per physical PDF page. pdfcpu works on
// files, so the payload round-trips through a temp directory that is removed
// before returning.
func (p *Preprocessor) pdfPages(ctx context.Context, doc models.RawDocument) ([]models.Page, error) {
	tempDir, err := os.MkdirTemp("", "fisco-preprocess-*")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create temp dir")
	}
	defer os.RemoveAll(tempDir)

	srcPath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(srcPath, doc.Payload, 0o600); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "write temp pdf")
	}

	pageCount, err := api.PageCountFile(srcPath)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnsupportedFormat, "unreadable pdf")
	}
	if pageCount == 0 {
		return nil, dErrors.New(dErrors.CodeUnsupportedFormat, "pdf has no pages")
	}

	cfg := pdfmodel.NewDefaultConfiguration()
	cfg.ValidationMode = pdfmodel.ValidationRelaxed

	pages := make([]models.Page, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "pdf split canceled")
		default:
		}

		page := models.Page{DocumentID: doc.ID, Number: n}
		raw, extractErr := extractPageImage(srcPath, tempDir, n, cfg)
		if extractErr == nil && len(raw) > 0 {
			normalized, normErr := p.normalize(raw, FormatPDF)
			if normErr == nil {
				page.PNG = normalized.PNG
				page.Params = normalized.Params
				page.Params.SourceFormat = string(FormatPDF)
			}
		}
		// Pages without a usable raster stay empty and fail at OCR time,
		// keeping one Page per physical page.
		pages = append(pages, page)
	}
	return pages, nil
}

// extractPageImage pulls the first embedded image of page n. Scanned fiscal
// documents carry exactly one full-page image per page.
func extractPageImage(srcPath, tempDir string, n int, cfg *pdfmodel.Configuration) ([]byte, error) {
	outDir := filepath.Join(tempDir, "page-"+strconv.Itoa(n))
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("create page dir: %w", err)
	}
	if err := api.ExtractImagesFile(srcPath, outDir, []string{strconv.Itoa(n)}, cfg); err != nil {
		return nil, fmt.Errorf("extract images for page %d: %w", n, err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read page dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read extracted image: %w", err)
		}
		return data, nil
	}
	return nil, nil
}
