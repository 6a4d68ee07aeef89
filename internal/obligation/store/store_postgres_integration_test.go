//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"fisco/internal/obligation/models"
	"fisco/internal/obligation/store"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "obligations"))
}

func testObligation(period, externalID string) models.Obligation {
	return models.Obligation{
		ID:           domain.NewObligationID(),
		ExternalID:   externalID,
		Description:  "DARF IRPJ 1o trimestre",
		AmountDue:    decimal.RequireFromString("1234.56"),
		DueDate:      time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		Counterparty: "12345678000190",
		Category:     "imposto",
		Period:       domain.Period(period),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestInsertAndGetRoundTrip() {
	ctx := context.Background()
	ob := testObligation("2024-03", "OB-001")

	s.Require().NoError(s.store.Insert(ctx, ob))

	got, err := s.store.Get(ctx, ob.ID)
	s.Require().NoError(err)
	s.Equal(ob.ExternalID, got.ExternalID)
	s.True(got.AmountDue.Equal(ob.AmountDue))
	s.True(ob.DueDate.Equal(got.DueDate))
	s.Equal(ob.Counterparty, got.Counterparty)
	s.Equal(ob.Period, got.Period)
}

func (s *PostgresStoreSuite) TestDuplicateExternalIDConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, testObligation("2024-03", "OB-001")))

	err := s.store.Insert(ctx, testObligation("2024-03", "OB-001"))
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	s.Require().NoError(s.store.Insert(ctx, testObligation("2024-04", "OB-001")))
}

func (s *PostgresStoreSuite) TestListByPeriodOrdersByDueDate() {
	ctx := context.Background()

	late := testObligation("2024-03", "OB-002")
	late.DueDate = late.DueDate.AddDate(0, 0, 5)
	early := testObligation("2024-03", "OB-001")
	for _, ob := range []models.Obligation{late, early} {
		s.Require().NoError(s.store.Insert(ctx, ob))
	}

	got, err := s.store.ListByPeriod(ctx, domain.Period("2024-03"))
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(early.ID, got[0].ID)
	s.Equal(late.ID, got[1].ID)
}

func (s *PostgresStoreSuite) TestGetUnknownIsNotFound() {
	_, err := s.store.Get(context.Background(), domain.NewObligationID())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
