// Package importer reads ledger exports (CSV or XLSX) into obligations.
// Column names are caller-mapped since every accounting system exports its
// own header set; rows that cannot be read are skipped with a reason, never
// aborting the rest of the file.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fisco/internal/obligation/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// ColumnMapping names the source columns for each obligation field.
// Description and Category may be empty (not imported).
type ColumnMapping struct {
	ExternalID   string `json:"external_id"`
	Description  string `json:"description"`
	Amount       string `json:"amount"`
	DueDate      string `json:"due_date"`
	Counterparty string `json:"counterparty"`
	Category     string `json:"category"`
}

// DefaultMapping matches the column names of common Brazilian ledger exports.
func DefaultMapping() ColumnMapping {
	return ColumnMapping{
		ExternalID:   "id",
		Description:  "descricao",
		Amount:       "valor",
		DueDate:      "vencimento",
		Counterparty: "contraparte",
		Category:     "categoria",
	}
}

// Importer parses ledger exports under one column mapping and date format.
type Importer struct {
	mapping    ColumnMapping
	dateLayout string
}

// New builds an Importer. dateFormat uses dd/mm/yyyy-style tokens; empty
// defaults to dd/mm/yyyy.
// Errors: CodeInvalidInput when the mapping misses a required column or the
// date format lacks day, month or year.
func New(mapping ColumnMapping, dateFormat string) (*Importer, error) {
	if mapping.ExternalID == "" || mapping.Amount == "" || mapping.DueDate == "" || mapping.Counterparty == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"mapping requires external_id, amount, due_date and counterparty columns")
	}
	if dateFormat == "" {
		dateFormat = "dd/mm/yyyy"
	}
	layout, err := convertDateLayout(dateFormat)
	if err != nil {
		return nil, err
	}
	return &Importer{mapping: mapping, dateLayout: layout}, nil
}

// ReadCSV parses a CSV export. The first row must be the header.
func (im *Importer) ReadCSV(r io.Reader, period domain.Period) ([]models.Obligation, []models.SkippedRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed CSV")
	}
	return im.readRows(rows, period)
}

// ReadXLSX parses the first sheet of an XLSX export. The first row must be
// the header.
func (im *Importer) ReadXLSX(r io.Reader, period domain.Period) ([]models.Obligation, []models.SkippedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed XLSX")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "could not read sheet")
	}
	return im.readRows(rows, period)
}

// columnIndex resolves mapped column names to header positions,
// case-insensitively.
type columnIndex struct {
	externalID, description, amount, dueDate, counterparty, category int
}

func (im *Importer) resolveHeader(header []string) (columnIndex, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.ToLower(strings.TrimSpace(name))] = i
	}

	lookup := func(name string, required bool) (int, error) {
		if name == "" {
			return -1, nil
		}
		idx, ok := byName[strings.ToLower(name)]
		if !ok {
			if required {
				return -1, dErrors.Newf(dErrors.CodeInvalidInput, "column %q not found in header", name)
			}
			return -1, nil
		}
		return idx, nil
	}

	var ci columnIndex
	var err error
	if ci.externalID, err = lookup(im.mapping.ExternalID, true); err != nil {
		return ci, err
	}
	if ci.amount, err = lookup(im.mapping.Amount, true); err != nil {
		return ci, err
	}
	if ci.dueDate, err = lookup(im.mapping.DueDate, true); err != nil {
		return ci, err
	}
	if ci.counterparty, err = lookup(im.mapping.Counterparty, true); err != nil {
		return ci, err
	}
	ci.description, _ = lookup(im.mapping.Description, false)
	ci.category, _ = lookup(im.mapping.Category, false)
	return ci, nil
}

func (im *Importer) readRows(rows [][]string, period domain.Period) ([]models.Obligation, []models.SkippedRow, error) {
	if len(rows) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "file is empty")
	}
	ci, err := im.resolveHeader(rows[0])
	if err != nil {
		return nil, nil, err
	}

	var (
		out     []models.Obligation
		skipped []models.SkippedRow
		seen    = make(map[string]bool)
	)
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, counting the header
		ob, err := im.readRow(row, ci, period)
		if err != nil {
			skipped = append(skipped, models.SkippedRow{Row: rowNum, Reason: err.Error()})
			continue
		}
		if seen[ob.ExternalID] {
			skipped = append(skipped, models.SkippedRow{Row: rowNum,
				Reason: fmt.Sprintf("duplicate external id %q", ob.ExternalID)})
			continue
		}
		seen[ob.ExternalID] = true
		out = append(out, ob)
	}
	return out, skipped, nil
}

func (im *Importer) readRow(row []string, ci columnIndex, period domain.Period) (models.Obligation, error) {
	cell := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	externalID := cell(ci.externalID)
	if externalID == "" {
		return models.Obligation{}, fmt.Errorf("external id is empty")
	}
	amount, err := parseAmount(cell(ci.amount))
	if err != nil {
		return models.Obligation{}, fmt.Errorf("amount: %v", err)
	}
	dueDate, err := time.Parse(im.dateLayout, cell(ci.dueDate))
	if err != nil {
		return models.Obligation{}, fmt.Errorf("due date: %v", err)
	}
	counterparty := reNonDigit.ReplaceAllString(cell(ci.counterparty), "")
	if counterparty == "" {
		return models.Obligation{}, fmt.Errorf("counterparty is empty")
	}

	return models.Obligation{
		ID:           domain.NewObligationID(),
		ExternalID:   externalID,
		Description:  cell(ci.description),
		AmountDue:    amount,
		DueDate:      dueDate,
		Counterparty: counterparty,
		Category:     cell(ci.category),
		Period:       period,
	}, nil
}

var reNonDigit = regexp.MustCompile(`\D`)

// parseAmount accepts Brazilian formatting (1.234,56, optional R$ prefix) and
// plain decimal-point values.
func parseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "R$"))
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

// convertDateLayout translates dd/mm/yyyy-style tokens to a Go time layout.
func convertDateLayout(format string) (string, error) {
	layout := format
	replacements := []struct{ token, layout string }{
		{"yyyy", "2006"},
		{"dd", "02"},
		{"mm", "01"},
	}
	for _, r := range replacements {
		if !strings.Contains(layout, r.token) {
			return "", dErrors.Newf(dErrors.CodeInvalidInput, "date format %q lacks %s", format, r.token)
		}
		layout = strings.ReplaceAll(layout, r.token, r.layout)
	}
	return layout, nil
}
