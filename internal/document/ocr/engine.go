// Package ocr defines the text recognition contract and the tesseract-backed
// implementation. Engines emit raw positioned tokens; Normalize puts them in
// reading order and flags low-confidence tokens without dropping them.
package ocr

import (
	"context"
	"sort"

	"fisco/internal/document/models"
)

// Engine is the OCR provider contract: one page in, positioned tokens out.
// Implementations fail with CodeExtractionFailed when the page image cannot
// be processed; that failure is scoped to the page, never the document.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, page models.Page) ([]models.Token, error)
}

// Normalize orders tokens top-to-bottom then left-to-right within a line and
// flags tokens below minConfidence. Flagged tokens are retained so the
// parser can decide what to do with them.
func Normalize(tokens []models.Token, minConfidence float64) []models.Token {
	out := make([]models.Token, len(tokens))
	copy(out, tokens)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Bounds.Y != out[j].Bounds.Y {
			return out[i].Bounds.Y < out[j].Bounds.Y
		}
		return out[i].Bounds.X < out[j].Bounds.X
	})

	// Bin into lines: a token belongs to the current line when its vertical
	// center falls inside the line anchor's vertical span.
	var lines [][]models.Token
	for _, tok := range out {
		placed := false
		for i := range lines {
			if sameLine(lines[i][0], tok) {
				lines[i] = append(lines[i], tok)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, []models.Token{tok})
		}
	}

	ordered := out[:0]
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Bounds.X < line[j].Bounds.X
		})
		ordered = append(ordered, line...)
	}

	for i := range ordered {
		ordered[i].LowConfidence = ordered[i].Confidence < minConfidence
	}
	return ordered
}

func sameLine(anchor, tok models.Token) bool {
	center := tok.Bounds.Y + tok.Bounds.H/2
	return center >= anchor.Bounds.Y && center <= anchor.Bounds.Y+anchor.Bounds.H
}
