package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fisco/internal/document/models"
	"fisco/pkg/domain"
	dErrors "fisco/pkg/domain-errors"
)

// PostgresStore persists document records in PostgreSQL. Parsed fields are
// stored as JSONB so the schema does not chase the parser's field set.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed document store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id             UUID PRIMARY KEY,
    filename       TEXT NOT NULL,
    uploaded_at    TIMESTAMPTZ NOT NULL,
    period         TEXT NOT NULL,
    page_count     INT NOT NULL,
    status         TEXT NOT NULL,
    failure_reason TEXT NOT NULL DEFAULT '',
    parsed         JSONB
);
CREATE INDEX IF NOT EXISTS documents_period_idx ON documents (period, uploaded_at);
`

// EnsureSchema creates the documents table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, documentsSchema); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, record models.DocumentRecord) error {
	if record.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "document id is required")
	}
	var parsed []byte
	if record.Parsed != nil {
		var err error
		parsed, err = json.Marshal(record.Parsed)
		if err != nil {
			return fmt.Errorf("marshal parsed document: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, filename, uploaded_at, period, page_count, status, failure_reason, parsed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			uploaded_at = EXCLUDED.uploaded_at,
			period = EXCLUDED.period,
			page_count = EXCLUDED.page_count,
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			parsed = EXCLUDED.parsed`,
		record.ID.String(), record.Filename, record.UploadedAt, record.Period.String(),
		record.PageCount, string(record.Status), record.FailureReason, parsed,
	)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.DocumentID) (models.DocumentRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, filename, uploaded_at, period, page_count, status, failure_reason, parsed
		FROM documents WHERE id = $1`, id.String())
	record, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DocumentRecord{}, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return models.DocumentRecord{}, fmt.Errorf("get document: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByPeriod(ctx context.Context, period domain.Period) ([]models.DocumentRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, uploaded_at, period, page_count, status, failure_reason, parsed
		FROM documents WHERE period = $1
		ORDER BY uploaded_at, id`, period.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentRecord
	for rows.Next() {
		record, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

func scanDocument(row pgx.Row) (models.DocumentRecord, error) {
	var (
		record    models.DocumentRecord
		rawID     string
		rawPeriod string
		status    string
		parsed    []byte
	)
	err := row.Scan(&rawID, &record.Filename, &record.UploadedAt, &rawPeriod,
		&record.PageCount, &status, &record.FailureReason, &parsed)
	if err != nil {
		return models.DocumentRecord{}, err
	}
	record.ID, err = domain.ParseDocumentID(rawID)
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("parse stored document id: %w", err)
	}
	record.Period, err = domain.ParsePeriod(rawPeriod)
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("parse stored period: %w", err)
	}
	record.Status = models.ProcessingStatus(status)
	if len(parsed) > 0 {
		var doc models.FinancialDocument
		if err := json.Unmarshal(parsed, &doc); err != nil {
			return models.DocumentRecord{}, fmt.Errorf("unmarshal parsed document: %w", err)
		}
		record.Parsed = &doc
	}
	return record, nil
}
