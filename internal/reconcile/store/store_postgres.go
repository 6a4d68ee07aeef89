package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fisco/internal/reconcile/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// PostgresStore persists reports in PostgreSQL. Results and summary are
// JSONB: reports are read back whole, never queried field by field.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed report store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const reportsSchema = `
CREATE TABLE IF NOT EXISTS reports (
    id         UUID PRIMARY KEY,
    period     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    results    JSONB NOT NULL,
    summary    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_period_idx ON reports (period, created_at DESC);
`

const uniqueViolation = "23505"

// EnsureSchema creates the reports table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, reportsSchema); err != nil {
		return fmt.Errorf("ensure reports schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, report models.Report) error {
	if report.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "report id is required")
	}
	results, err := json.Marshal(report.Results)
	if err != nil {
		return fmt.Errorf("marshal report results: %w", err)
	}
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshal report summary: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO reports (id, period, created_at, results, summary)
		VALUES ($1, $2, $3, $4, $5)`,
		report.ID.String(), report.Period.String(), report.CreatedAt, results, summary,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return dErrors.Newf(dErrors.CodeConflict, "report %s already exists", report.ID.String())
		}
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.ReportID) (models.Report, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, period, created_at, results, summary
		FROM reports WHERE id = $1`, id.String())
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Report{}, dErrors.New(dErrors.CodeNotFound, "report not found")
		}
		return models.Report{}, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

func (s *PostgresStore) ListByPeriod(ctx context.Context, period domain.Period) ([]models.Report, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, period, created_at, results, summary
		FROM reports WHERE period = $1
		ORDER BY created_at DESC, id`, period.String())
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func scanReport(row pgx.Row) (models.Report, error) {
	var (
		report     models.Report
		rawID      string
		rawPeriod  string
		rawResults []byte
		rawSummary []byte
	)
	if err := row.Scan(&rawID, &rawPeriod, &report.CreatedAt, &rawResults, &rawSummary); err != nil {
		return models.Report{}, err
	}
	var err error
	report.ID, err = domain.ParseReportID(rawID)
	if err != nil {
		return models.Report{}, fmt.Errorf("parse stored report id: %w", err)
	}
	report.Period, err = domain.ParsePeriod(rawPeriod)
	if err != nil {
		return models.Report{}, fmt.Errorf("parse stored period: %w", err)
	}
	if err := json.Unmarshal(rawResults, &report.Results); err != nil {
		return models.Report{}, fmt.Errorf("unmarshal report results: %w", err)
	}
	if err := json.Unmarshal(rawSummary, &report.Summary); err != nil {
		return models.Report{}, fmt.Errorf("unmarshal report summary: %w", err)
	}
	return report, nil
}
