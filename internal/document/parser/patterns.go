package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fisco/internal/document/models"
)

// candidate is one possible value for a field, scored by the OCR confidence
// of its source tokens times the confidence of the pattern that matched it.
type candidate struct {
	value       string
	position    int // reading-order index of the first source token
	ocrConf     float64
	patternConf float64
}

func (c candidate) score() float64 { return c.ocrConf * c.patternConf }

// Amount patterns, strongest first. Brazilian formatting: thousands dot,
// decimal comma, optional R$ prefix.
var (
	reAmountPrefixed = regexp.MustCompile(`^R\$\s?\d{1,3}(?:\.\d{3})*,\d{2}$`)
	reAmountGrouped  = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{2}$`)
	reAmountPlain    = regexp.MustCompile(`^\d+[.,]\d{2}$`)

	reDateSlash = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	reDateDash  = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
	reDateISO   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	reCNPJ     = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	reCNPJBare = regexp.MustCompile(`^\d{14}$`)
	reCPF      = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	reCPFBare  = regexp.MustCompile(`^\d{11}$`)

	reTaxCode = regexp.MustCompile(`^\d{4}$`)

	reNonDigit = regexp.MustCompile(`\D`)
)

// taxCodeContext are keywords that, when seen shortly before a 4-digit
// token, mark it as a codigo de receita rather than an arbitrary number.
var taxCodeContext = []string{"CODIGO", "CÓDIGO", "RECEITA", "DARF", "GPS"}

func amountCandidates(tokens []models.Token) []candidate {
	var out []candidate
	for i, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		switch {
		case reAmountPrefixed.MatchString(text):
			out = append(out, candidate{value: text, position: i, ocrConf: tok.Confidence, patternConf: 1.0})
		case reAmountGrouped.MatchString(text):
			out = append(out, candidate{value: text, position: i, ocrConf: tok.Confidence, patternConf: 0.7})
		case reAmountPlain.MatchString(text):
			out = append(out, candidate{value: text, position: i, ocrConf: tok.Confidence, patternConf: 0.5})
		}

		// "R$" split from the number by the recognizer.
		if text == "R$" && i+1 < len(tokens) {
			next := strings.TrimSpace(tokens[i+1].Text)
			if reAmountGrouped.MatchString(next) || reAmountPlain.MatchString(next) {
				out = append(out, candidate{
					value:       "R$" + next,
					position:    i,
					ocrConf:     min(tok.Confidence, tokens[i+1].Confidence),
					patternConf: 1.0,
				})
			}
		}
	}
	return out
}

func dateCandidates(tokens []models.Token) []candidate {
	var out []candidate
	for i, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		var conf float64
		switch {
		case reDateSlash.MatchString(text):
			conf = 1.0
		case reDateDash.MatchString(text):
			conf = 0.9
		case reDateISO.MatchString(text):
			conf = 0.9
		default:
			continue
		}
		if _, err := parseDate(text); err != nil {
			continue // matched the shape but not a real calendar date
		}
		out = append(out, candidate{value: text, position: i, ocrConf: tok.Confidence, patternConf: conf})
	}
	return out
}

func counterpartyCandidates(tokens []models.Token) []candidate {
	var out []candidate
	for i, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		var conf float64
		switch {
		case reCNPJ.MatchString(text):
			conf = 1.0
		case reCPF.MatchString(text):
			conf = 0.9
		case reCNPJBare.MatchString(text):
			conf = 0.6
		case reCPFBare.MatchString(text):
			conf = 0.5
		default:
			continue
		}
		out = append(out, candidate{value: text, position: i, ocrConf: tok.Confidence, patternConf: conf})
	}
	return out
}

func taxCodeCandidates(tokens []models.Token) []candidate {
	var out []candidate
	for i, tok := range tokens {
		text := strings.TrimSpace(tok.Text)
		if !reTaxCode.MatchString(text) {
			continue
		}
		conf := 0.4
		for j := max(0, i-3); j < i; j++ {
			upper := strings.ToUpper(tokens[j].Text)
			for _, kw := range taxCodeContext {
				if strings.Contains(upper, kw) {
					conf = 0.9
				}
			}
		}
		out = append(out, candidate{value: text, position: i, ocrConf: tok.Confidence, patternConf: conf})
	}
	return out
}

// parseAmount converts Brazilian-formatted money text into a decimal.
func parseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimPrefix(text, "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func parseDate(text string) (time.Time, error) {
	layouts := []string{"02/01/2006", "02-01-2006", "2006-01-02"}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// normalizeCounterparty strips formatting down to digits.
func normalizeCounterparty(text string) string {
	return reNonDigit.ReplaceAllString(text, "")
}
