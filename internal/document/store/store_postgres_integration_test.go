//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"fisco/internal/document/models"
	"fisco/internal/document/store"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
	"fisco/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "documents"))
}

func parsedRecord(period string) models.DocumentRecord {
	id := domain.NewDocumentID()
	return models.DocumentRecord{
		ID:         id,
		Filename:   "nf-0042.pdf",
		UploadedAt: time.Now().UTC().Truncate(time.Microsecond),
		Period:     domain.Period(period),
		PageCount:  2,
		Status:     models.StatusParsed,
		Parsed: &models.FinancialDocument{
			ID:             id,
			SourceFilename: "nf-0042.pdf",
			Type:           models.TypeNotaFiscal,
			Amount:         decimal.RequireFromString("1234.56"),
			Currency:       "BRL",
			IssueDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			Counterparty:   "12345678000190",
			Confidence:     models.FieldConfidence{Amount: 0.9, IssueDate: 0.9, Counterparty: 0.9},
		},
	}
}

func (s *PostgresStoreSuite) TestSaveAndGetRoundTrip() {
	ctx := context.Background()
	rec := parsedRecord("2024-03")

	s.Require().NoError(s.store.Save(ctx, rec))

	got, err := s.store.Get(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.Period, got.Period)
	s.Equal(models.StatusParsed, got.Status)
	s.Require().NotNil(got.Parsed)
	s.True(got.Parsed.Amount.Equal(rec.Parsed.Amount))
	s.Equal(rec.Parsed.Counterparty, got.Parsed.Counterparty)
	s.True(rec.Parsed.IssueDate.Equal(got.Parsed.IssueDate))
}

func (s *PostgresStoreSuite) TestSaveUpserts() {
	ctx := context.Background()
	rec := parsedRecord("2024-03")
	s.Require().NoError(s.store.Save(ctx, rec))

	rec.Status = models.StatusExtractionFailed
	rec.FailureReason = "all 2 pages failed extraction"
	rec.Parsed = nil
	s.Require().NoError(s.store.Save(ctx, rec))

	got, err := s.store.Get(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExtractionFailed, got.Status)
	s.Equal(rec.FailureReason, got.FailureReason)
	s.Nil(got.Parsed)
}

func (s *PostgresStoreSuite) TestGetUnknownIsNotFound() {
	_, err := s.store.Get(context.Background(), domain.NewDocumentID())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *PostgresStoreSuite) TestListByPeriodOrdersAndFilters() {
	ctx := context.Background()

	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	second := parsedRecord("2024-03")
	second.UploadedAt = base.Add(time.Hour)
	first := parsedRecord("2024-03")
	first.UploadedAt = base
	other := parsedRecord("2024-04")
	other.UploadedAt = base

	for _, rec := range []models.DocumentRecord{second, first, other} {
		s.Require().NoError(s.store.Save(ctx, rec))
	}

	got, err := s.store.ListByPeriod(ctx, domain.Period("2024-03"))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(first.ID, got[0].ID)
	s.Equal(second.ID, got[1].ID)
}
