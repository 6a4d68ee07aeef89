package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"

	"fisco/internal/document/models"
	dErrors "fisco/pkg/domain-errors"
)

// TesseractEngine recognizes text with a local tesseract install through the
// gosseract client. A fresh client per page keeps the engine safe for
// concurrent page workers.
type TesseractEngine struct {
	language      string
	clientFactory func() *gosseract.Client
}

// NewTesseract constructs a tesseract-backed engine. language selects the
// trained data pack ("por" for Brazilian fiscal documents).
func NewTesseract(language string) *TesseractEngine {
	return &TesseractEngine{
		language:      language,
		clientFactory: gosseract.NewClient,
	}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize runs word-level recognition on one page.
// Errors: CodeExtractionFailed when the page has no image data or the
// recognizer rejects it; the caller isolates the failure to this page.
func (e *TesseractEngine) Recognize(ctx context.Context, page models.Page) ([]models.Token, error) {
	if len(page.PNG) == 0 {
		return nil, dErrors.Newf(dErrors.CodeExtractionFailed, "page %d has no image data", page.Number)
	}
	select {
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "recognition canceled")
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(page.PNG); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExtractionFailed, "set page image")
	}
	if e.language != "" {
		if err := c.SetLanguage(e.language); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeExtractionFailed, "set language")
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeExtractionFailed, "recognize page")
	}

	tokens := make([]models.Token, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		tokens = append(tokens, models.Token{
			Page: page.Number,
			Text: b.Word,
			Bounds: models.Rect{
				X: b.Box.Min.X,
				Y: b.Box.Min.Y,
				W: b.Box.Dx(),
				H: b.Box.Dy(),
			},
			Confidence: b.Confidence / 100.0,
		})
	}
	return tokens, nil
}
