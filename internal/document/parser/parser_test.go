package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fisco/internal/document/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

func word(text string, pos int, conf float64) models.Token {
	return models.Token{
		Text:       text,
		Bounds:     models.Rect{X: pos * 50, Y: 0, W: 40, H: 20},
		Confidence: conf,
	}
}

func guiaTokens() []models.Token {
	return []models.Token{
		word("DARF", 0, 0.95),
		word("CODIGO", 1, 0.9),
		word("0220", 2, 0.9),
		word("CNPJ", 3, 0.9),
		word("12.345.678/0001-90", 4, 0.92),
		word("VENCIMENTO", 5, 0.9),
		word("01/03/2024", 6, 0.93),
		word("VALOR", 7, 0.9),
		word("R$", 8, 0.9),
		word("150,00", 9, 0.91),
	}
}

func TestParse_Guia(t *testing.T) {
	id := domain.NewDocumentID()
	p := New()

	doc, err := p.Parse(id, "darf-marco.png", guiaTokens())
	require.NoError(t, err)

	assert.Equal(t, id, doc.ID)
	assert.Equal(t, models.TypeGuia, doc.Type)
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("150.00")), "got %s", doc.Amount)
	assert.Equal(t, "BRL", doc.Currency)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), doc.IssueDate)
	assert.Equal(t, "12345678000190", doc.Counterparty, "CNPJ normalized to digits")
	assert.Equal(t, "0220", doc.TaxCode)

	assert.Greater(t, doc.Confidence.Amount, 0.0)
	assert.Greater(t, doc.Confidence.IssueDate, 0.0)
	assert.Greater(t, doc.Confidence.Counterparty, 0.0)
	assert.Greater(t, doc.Confidence.TaxCode, 0.5, "context keyword boosts tax code confidence")
}

func TestParse_HighestCombinedScoreWins(t *testing.T) {
	// Two amount candidates; the later one has better OCR confidence and an
	// explicit R$ prefix, so it must win despite appearing later.
	tokens := []models.Token{
		word("10,00", 0, 0.5),
		word("R$", 1, 0.95),
		word("1.234,56", 2, 0.95),
		word("12.345.678/0001-90", 3, 0.9),
		word("15/04/2024", 4, 0.9),
	}

	doc, err := New().Parse(domain.NewDocumentID(), "nf.png", tokens)
	require.NoError(t, err)
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("1234.56")), "got %s", doc.Amount)
}

func TestParse_TieBreaksOnEarliestPosition(t *testing.T) {
	tokens := []models.Token{
		word("100,00", 0, 0.8),
		word("200,00", 1, 0.8),
		word("12.345.678/0001-90", 2, 0.9),
		word("15/04/2024", 3, 0.9),
	}

	doc, err := New().Parse(domain.NewDocumentID(), "nf.png", tokens)
	require.NoError(t, err)
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("100.00")), "got %s", doc.Amount)
}

func TestParse_MissingFieldsReported(t *testing.T) {
	tokens := []models.Token{
		word("RECIBO", 0, 0.9),
		word("R$", 1, 0.9),
		word("99,90", 2, 0.9),
		// no date, no counterparty
	}

	_, err := New().Parse(domain.NewDocumentID(), "recibo.png", tokens)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeParseIncomplete))

	var inc *IncompleteError
	require.True(t, errors.As(err, &inc))
	assert.ElementsMatch(t, []string{"date", "counterparty"}, inc.Fields)
}

func TestParse_InvalidCalendarDateRejected(t *testing.T) {
	tokens := []models.Token{
		word("99/99/2024", 0, 0.9), // matches the shape, not a real date
		word("R$", 1, 0.9),
		word("10,00", 2, 0.9),
		word("12.345.678/0001-90", 3, 0.9),
	}

	_, err := New().Parse(domain.NewDocumentID(), "x.png", tokens)
	require.Error(t, err)
	var inc *IncompleteError
	require.True(t, errors.As(err, &inc))
	assert.Contains(t, inc.Fields, "date")
}

func TestParse_LowConfidenceTokensStillUsable(t *testing.T) {
	// A flagged token can still carry a field; its low OCR confidence just
	// lowers the field confidence for the reconciliation engine to weigh.
	tokens := []models.Token{
		{Text: "R$", Confidence: 0.9},
		{Text: "55,00", Confidence: 0.25, LowConfidence: true},
		word("05/02/2024", 2, 0.9),
		word("111.444.777-35", 3, 0.9),
	}

	doc, err := New().Parse(domain.NewDocumentID(), "x.png", tokens)
	require.NoError(t, err)
	assert.True(t, doc.Amount.Equal(decimal.RequireFromString("55.00")))
	assert.Less(t, doc.Confidence.Amount, 0.4)
}

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		text string
		want models.DocumentType
	}{
		"danfe":      {"DANFE 12345", models.TypeNotaFiscal},
		"nota":       {"nota fiscal eletronica", models.TypeNotaFiscal},
		"darf":       {"DARF codigo 0220", models.TypeGuia},
		"boleto":     {"BOLETO bancario", models.TypeBoleto},
		"recibo":     {"recibo de pagamento", models.TypeRecibo},
		"extrato":    {"EXTRATO conta corrente", models.TypeExtrato},
		"sem_padrao": {"qualquer outra coisa", models.TypeUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var tokens []models.Token
			for i, w := range splitWords(tc.text) {
				tokens = append(tokens, word(w, i, 0.9))
			}
			assert.Equal(t, tc.want, Classify(tokens))
		})
	}
}

func splitWords(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"R$150,00":    "150.00",
		"R$ 1.234,56": "1234.56",
		"1.234,56":    "1234.56",
		"99,90":       "99.90",
		"10.50":       "10.50",
	}
	for in, want := range cases {
		got, err := parseAmount(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s -> %s", in, got)
	}
}
