package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fisco/internal/obligation/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// PostgresStore persists obligations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed obligation store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const obligationsSchema = `
CREATE TABLE IF NOT EXISTS obligations (
    id           UUID PRIMARY KEY,
    external_id  TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    amount_due   NUMERIC(18,2) NOT NULL,
    due_date     TIMESTAMPTZ NOT NULL,
    counterparty TEXT NOT NULL,
    category     TEXT NOT NULL DEFAULT '',
    period       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (period, external_id)
);
CREATE INDEX IF NOT EXISTS obligations_period_idx ON obligations (period, due_date);
`

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// EnsureSchema creates the obligations table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, obligationsSchema); err != nil {
		return fmt.Errorf("ensure obligations schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, ob models.Obligation) error {
	if ob.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "obligation id is required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO obligations (id, external_id, description, amount_due, due_date, counterparty, category, period, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ob.ID.String(), ob.ExternalID, ob.Description, ob.AmountDue.String(), ob.DueDate,
		ob.Counterparty, ob.Category, ob.Period.String(), ob.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return dErrors.Newf(dErrors.CodeConflict, "external id %q already imported for %s", ob.ExternalID, ob.Period)
		}
		return fmt.Errorf("insert obligation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.ObligationID) (models.Obligation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, external_id, description, amount_due, due_date, counterparty, category, period, created_at
		FROM obligations WHERE id = $1`, id.String())
	ob, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Obligation{}, dErrors.New(dErrors.CodeNotFound, "obligation not found")
		}
		return models.Obligation{}, fmt.Errorf("get obligation: %w", err)
	}
	return ob, nil
}

func (s *PostgresStore) ListByPeriod(ctx context.Context, period domain.Period) ([]models.Obligation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_id, description, amount_due, due_date, counterparty, category, period, created_at
		FROM obligations WHERE period = $1
		ORDER BY due_date, id`, period.String())
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var out []models.Obligation
	for rows.Next() {
		ob, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		out = append(out, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	return out, nil
}

func scanObligation(row pgx.Row) (models.Obligation, error) {
	var (
		ob        models.Obligation
		rawID     string
		rawAmount string
		rawPeriod string
	)
	err := row.Scan(&rawID, &ob.ExternalID, &ob.Description, &rawAmount, &ob.DueDate,
		&ob.Counterparty, &ob.Category, &rawPeriod, &ob.CreatedAt)
	if err != nil {
		return models.Obligation{}, err
	}
	ob.ID, err = domain.ParseObligationID(rawID)
	if err != nil {
		return models.Obligation{}, fmt.Errorf("parse stored obligation id: %w", err)
	}
	ob.AmountDue, err = decimal.NewFromString(rawAmount)
	if err != nil {
		return models.Obligation{}, fmt.Errorf("parse stored amount: %w", err)
	}
	ob.Period, err = domain.ParsePeriod(rawPeriod)
	if err != nil {
		return models.Obligation{}, fmt.Errorf("parse stored period: %w", err)
	}
	return ob, nil
}
