package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	dErrors "fisco/pkg/domain-errors"

	"fisco/pkg/domain"
)

const period = domain.Period("2024-03")

func TestReadCSV_DefaultMapping(t *testing.T) {
	csv := strings.Join([]string{
		"id,descricao,valor,vencimento,contraparte,categoria",
		`OB-001,DARF IRPJ,"1.234,56",20/03/2024,12.345.678/0001-90,imposto`,
		`OB-002,Aluguel,"2.500,00",05/03/2024,98.765.432/0001-10,despesa`,
	}, "\n")

	im, err := New(DefaultMapping(), "")
	require.NoError(t, err)

	obligations, skipped, err := im.ReadCSV(strings.NewReader(csv), period)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, obligations, 2)

	first := obligations[0]
	assert.Equal(t, "OB-001", first.ExternalID)
	assert.Equal(t, "DARF IRPJ", first.Description)
	assert.True(t, first.AmountDue.Equal(decimal.RequireFromString("1234.56")), "got %s", first.AmountDue)
	assert.Equal(t, time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), first.DueDate)
	assert.Equal(t, "12345678000190", first.Counterparty, "CNPJ normalized to digits")
	assert.Equal(t, "imposto", first.Category)
	assert.Equal(t, period, first.Period)
	assert.False(t, first.ID.IsNil())
}

func TestReadCSV_CustomMappingAndDateFormat(t *testing.T) {
	csv := strings.Join([]string{
		"ref,amount,due,vendor",
		"A1,150.00,2024-03-10,11144477735",
	}, "\n")

	im, err := New(ColumnMapping{
		ExternalID:   "ref",
		Amount:       "amount",
		DueDate:      "due",
		Counterparty: "vendor",
	}, "yyyy-mm-dd")
	require.NoError(t, err)

	obligations, skipped, err := im.ReadCSV(strings.NewReader(csv), period)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, obligations, 1)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), obligations[0].DueDate)
	assert.Empty(t, obligations[0].Description)
}

func TestReadCSV_SkipsBadRowsAndDuplicates(t *testing.T) {
	csv := strings.Join([]string{
		"id,valor,vencimento,contraparte",
		`OB-001,"100,00",10/03/2024,12.345.678/0001-90`,
		`OB-002,not-a-number,10/03/2024,12.345.678/0001-90`,
		`OB-003,"50,00",99/99/2024,12.345.678/0001-90`,
		`OB-001,"100,00",10/03/2024,12.345.678/0001-90`,
		`,"10,00",10/03/2024,12.345.678/0001-90`,
	}, "\n")

	im, err := New(DefaultMapping(), "")
	require.NoError(t, err)

	obligations, skipped, err := im.ReadCSV(strings.NewReader(csv), period)
	require.NoError(t, err)
	require.Len(t, obligations, 1)
	assert.Equal(t, "OB-001", obligations[0].ExternalID)

	require.Len(t, skipped, 4)
	assert.Equal(t, 3, skipped[0].Row)
	assert.Contains(t, skipped[0].Reason, "amount")
	assert.Contains(t, skipped[1].Reason, "due date")
	assert.Contains(t, skipped[2].Reason, "duplicate external id")
	assert.Contains(t, skipped[3].Reason, "external id is empty")
}

func TestReadCSV_MissingColumnFails(t *testing.T) {
	csv := "id,valor,contraparte\nOB-1,100,123"

	im, err := New(DefaultMapping(), "")
	require.NoError(t, err)

	_, _, err = im.ReadCSV(strings.NewReader(csv), period)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	assert.Contains(t, err.Error(), "vencimento")
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"id", "descricao", "valor", "vencimento", "contraparte", "categoria"},
		{"OB-010", "GPS", "R$ 320,10", "15/03/2024", "111.444.777-35", "imposto"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	im, err := New(DefaultMapping(), "")
	require.NoError(t, err)

	obligations, skipped, err := im.ReadXLSX(buf, period)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, obligations, 1)
	assert.True(t, obligations[0].AmountDue.Equal(decimal.RequireFromString("320.10")))
	assert.Equal(t, "11144477735", obligations[0].Counterparty)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(ColumnMapping{Amount: "valor"}, "")
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput), "incomplete mapping")

	_, err = New(DefaultMapping(), "dd/mm")
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput), "date format without year")
}
