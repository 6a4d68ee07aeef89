//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"fisco/internal/reconcile/models"
	"fisco/internal/reconcile/store"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "reports"))
}

func matchedAmount() *decimal.Decimal {
	v := decimal.RequireFromString("150.00")
	return &v
}

func sampleReport(period string) models.Report {
	docID := domain.NewDocumentID()
	obID := domain.NewObligationID()
	return models.Report{
		ID:        domain.NewReportID(),
		Period:    domain.Period(period),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Results: []models.Result{
			{
				Status:       models.StatusMatched,
				DocumentID:   &docID,
				ObligationID: &obID,
				Score:        1.0,
				Amount:       matchedAmount(),
			},
		},
		Summary: models.Summary{
			TotalDocuments:   1,
			TotalObligations: 1,
			Matched:          1,
			MatchedAmount:    decimal.RequireFromString("150.00"),
			TotalDiscrepancy: decimal.Zero,
		},
	}
}

func (s *PostgresStoreSuite) TestSaveAndGetRoundTrip() {
	ctx := context.Background()
	rep := sampleReport("2024-03")

	s.Require().NoError(s.store.Save(ctx, rep))

	got, err := s.store.Get(ctx, rep.ID)
	s.Require().NoError(err)
	s.Equal(rep.ID, got.ID)
	s.Equal(rep.Period, got.Period)
	s.Require().Len(got.Results, 1)
	s.Equal(models.StatusMatched, got.Results[0].Status)
	s.Equal(*rep.Results[0].DocumentID, *got.Results[0].DocumentID)
	s.True(got.Summary.MatchedAmount.Equal(rep.Summary.MatchedAmount))
}

func (s *PostgresStoreSuite) TestSaveDuplicateIDConflicts() {
	ctx := context.Background()
	rep := sampleReport("2024-03")
	s.Require().NoError(s.store.Save(ctx, rep))

	err := s.store.Save(ctx, rep)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *PostgresStoreSuite) TestGetUnknownIsNotFound() {
	_, err := s.store.Get(context.Background(), domain.NewReportID())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *PostgresStoreSuite) TestListByPeriodNewestFirst() {
	ctx := context.Background()

	older := sampleReport("2024-03")
	newer := sampleReport("2024-03")
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	for _, rep := range []models.Report{older, newer} {
		s.Require().NoError(s.store.Save(ctx, rep))
	}

	got, err := s.store.ListByPeriod(ctx, domain.Period("2024-03"))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(newer.ID, got[0].ID)
	s.Equal(older.ID, got[1].ID)
}
