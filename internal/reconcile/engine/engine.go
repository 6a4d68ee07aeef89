// Package engine matches parsed documents against expected obligations.
// The engine is pure: no I/O, no clocks, no ambient configuration. Given the
// same inputs it produces the same results in the same order.
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	docmodels "fisco/internal/document/models"
	obmodels "fisco/internal/obligation/models"
	"fisco/internal/platform/config"
	"fisco/internal/reconcile/models"
)

// Score weights. Amount dominates: two documents rarely carry the same
// amount, date and counterparty by accident.
const (
	weightAmount       = 0.5
	weightDate         = 0.2
	weightCounterparty = 0.3

	// fuzzyPenalty discounts counterparty matches that are similar but not
	// identical, so exact matches always outrank fuzzy ones.
	fuzzyPenalty = 0.9
)

// Scorer rates one document/obligation pair in [0, 1].
type Scorer func(doc docmodels.FinancialDocument, ob obmodels.Obligation) float64

// Engine scores and matches documents to obligations.
type Engine struct {
	cfg          config.Matching
	amount       Scorer
	date         Scorer
	counterparty Scorer
}

// Option replaces one of the default scorers.
type Option func(*Engine)

// WithAmountScorer overrides the amount closeness scorer.
func WithAmountScorer(s Scorer) Option {
	return func(e *Engine) { e.amount = s }
}

// WithDateScorer overrides the date closeness scorer.
func WithDateScorer(s Scorer) Option {
	return func(e *Engine) { e.date = s }
}

// WithCounterpartyScorer overrides the counterparty similarity scorer.
func WithCounterpartyScorer(s Scorer) Option {
	return func(e *Engine) { e.counterparty = s }
}

// New builds an Engine with the default scorers.
func New(cfg config.Matching, opts ...Option) *Engine {
	e := &Engine{cfg: cfg}
	e.amount = e.amountScore
	e.date = e.dateScore
	e.counterparty = e.counterpartyScore
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pair is one eligible document/obligation combination.
type pair struct {
	docIdx int
	obIdx  int
	score  float64
}

// Match reconciles the period's documents against its obligations.
// Records that never produced parsed fields surface as EXTRACTION_FAILED;
// parsed documents and obligations pair up greedily by descending score with
// a total tie order, so repeated runs over the same inputs are identical.
func (e *Engine) Match(records []docmodels.DocumentRecord, obligations []obmodels.Obligation) []models.Result {
	var results []models.Result

	var docs []docmodels.FinancialDocument
	for _, record := range records {
		if record.Status == docmodels.StatusParsed && record.Parsed != nil {
			docs = append(docs, *record.Parsed)
			continue
		}
		id := record.ID
		results = append(results, models.Result{
			Status:     models.StatusExtractionFailed,
			DocumentID: &id,
			Detail:     record.FailureReason,
		})
	}

	var pairs []pair
	for di, doc := range docs {
		for oi, ob := range obligations {
			// No counterparty agreement disqualifies the pair outright:
			// amount and date coincidences across unrelated parties are
			// common within a period.
			cp := e.counterparty(doc, ob)
			if cp == 0 {
				continue
			}
			score := weightAmount*e.amount(doc, ob) + weightDate*e.date(doc, ob) + weightCounterparty*cp
			if score < e.cfg.AcceptanceThreshold {
				continue
			}
			pairs = append(pairs, pair{docIdx: di, obIdx: oi, score: score})
		}
	}

	// Total order: score descending, then document ID, then obligation ID.
	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		aDoc, bDoc := docs[a.docIdx].ID.String(), docs[b.docIdx].ID.String()
		if aDoc != bDoc {
			return aDoc < bDoc
		}
		return obligations[a.obIdx].ID.String() < obligations[b.obIdx].ID.String()
	})

	claimedDocs := make(map[int]bool)
	claimedObs := make(map[int]bool)
	for _, p := range pairs {
		if claimedDocs[p.docIdx] || claimedObs[p.obIdx] {
			continue
		}
		claimedDocs[p.docIdx] = true
		claimedObs[p.obIdx] = true
		results = append(results, e.accept(docs[p.docIdx], obligations[p.obIdx], p.score))
	}

	for di, doc := range docs {
		if claimedDocs[di] {
			continue
		}
		id := doc.ID
		results = append(results, models.Result{
			Status:     models.StatusUnmatchedDocument,
			DocumentID: &id,
		})
	}
	for oi, ob := range obligations {
		if claimedObs[oi] {
			continue
		}
		id := ob.ID
		results = append(results, models.Result{
			Status:       models.StatusUnmatchedObligation,
			ObligationID: &id,
		})
	}
	return results
}

// accept classifies an accepted pair as MATCHED or PARTIAL.
func (e *Engine) accept(doc docmodels.FinancialDocument, ob obmodels.Obligation, score float64) models.Result {
	docID := doc.ID
	obID := ob.ID

	amountDiff := doc.Amount.Sub(ob.AmountDue).Abs()
	dateDiff := dateDiffDays(doc, ob)
	tolerance := decimal.NewFromFloat(e.cfg.AmountTolerance)

	amount := doc.Amount
	result := models.Result{
		DocumentID:   &docID,
		ObligationID: &obID,
		Score:        score,
		Amount:       &amount,
	}
	if amountDiff.LessThan(tolerance) && dateDiff == 0 {
		result.Status = models.StatusMatched
		return result
	}
	result.Status = models.StatusPartial
	result.Delta = &models.Delta{AmountDiff: amountDiff, DateDiffDays: dateDiff}
	return result
}

// amountScore is 1 inside the tolerance and decays linearly with the
// discrepancy relative to the expected amount.
func (e *Engine) amountScore(doc docmodels.FinancialDocument, ob obmodels.Obligation) float64 {
	diff := doc.Amount.Sub(ob.AmountDue).Abs()
	if diff.LessThanOrEqual(decimal.NewFromFloat(e.cfg.AmountTolerance)) {
		return 1
	}
	if ob.AmountDue.IsZero() {
		return 0
	}
	ratio, _ := diff.Div(ob.AmountDue.Abs()).Float64()
	if ratio >= 1 {
		return 0
	}
	return 1 - ratio
}

// dateScore decays linearly inside the date window and is 0 beyond it.
func (e *Engine) dateScore(doc docmodels.FinancialDocument, ob obmodels.Obligation) float64 {
	days := dateDiffDays(doc, ob)
	window := e.cfg.DateWindowDays
	if days > window {
		return 0
	}
	return float64(window+1-days) / float64(window+1)
}

// counterpartyScore is 1 for identical identifiers; near-identical ones
// (OCR misreads) score their similarity ratio with a penalty, and anything
// under the fuzzy threshold scores 0.
func (e *Engine) counterpartyScore(doc docmodels.FinancialDocument, ob obmodels.Obligation) float64 {
	if doc.Counterparty == "" || ob.Counterparty == "" {
		return 0
	}
	if doc.Counterparty == ob.Counterparty {
		return 1
	}
	ratio := levenshtein.RatioForStrings([]rune(doc.Counterparty), []rune(ob.Counterparty), levenshtein.DefaultOptions)
	if ratio < e.cfg.FuzzyMatchThreshold {
		return 0
	}
	return ratio * fuzzyPenalty
}

func dateDiffDays(doc docmodels.FinancialDocument, ob obmodels.Obligation) int {
	diff := doc.IssueDate.Sub(ob.DueDate)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
