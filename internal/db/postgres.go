package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/contract-auditor/internal/types"
)

// PostgresStore keeps contracts in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const pgColumns = `id, file_name, file_size, file_mime_type, document_hash, document, raw_text, text_truncated,
	status, extracted_data, validation_issues, requires_human_review, review_reasons,
	confidence_score, processing_time_ms, human_approved, override_approved,
	reviewer_notes, reviewed_at, created_at, updated_at, processed_at`

const pgSummaryColumns = `id, file_name, file_size, file_mime_type, document_hash, NULL::bytea, '', text_truncated,
	status, extracted_data, validation_issues, requires_human_review, review_reasons,
	confidence_score, processing_time_ms, human_approved, override_approved,
	reviewer_notes, reviewed_at, created_at, updated_at, processed_at`

// NewPostgresStore connects, verifies the connection and applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema("postgres.sql")); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &PersistenceError{Op: "ping", Cause: err}
	}
	return nil
}

// Save upserts the whole record in one statement.
func (s *PostgresStore) Save(ctx context.Context, c *types.Contract) error {
	cols, err := encodeColumns(c)
	if err != nil {
		return &PersistenceError{Op: "save", ID: c.ID, Cause: err}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO contracts (`+pgColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		 ON CONFLICT (id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			file_mime_type = EXCLUDED.file_mime_type,
			document_hash = EXCLUDED.document_hash,
			document = EXCLUDED.document,
			raw_text = EXCLUDED.raw_text,
			text_truncated = EXCLUDED.text_truncated,
			status = EXCLUDED.status,
			extracted_data = EXCLUDED.extracted_data,
			validation_issues = EXCLUDED.validation_issues,
			requires_human_review = EXCLUDED.requires_human_review,
			review_reasons = EXCLUDED.review_reasons,
			confidence_score = EXCLUDED.confidence_score,
			processing_time_ms = EXCLUDED.processing_time_ms,
			human_approved = EXCLUDED.human_approved,
			override_approved = EXCLUDED.override_approved,
			reviewer_notes = EXCLUDED.reviewer_notes,
			reviewed_at = EXCLUDED.reviewed_at,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			processed_at = EXCLUDED.processed_at`,
		c.ID, c.FileName, c.FileSize, c.FileMIMEType, c.DocumentHash, c.Document, c.RawText, c.TextTruncated,
		string(c.Status), cols.extractedData, cols.issues, c.RequiresHumanReview, cols.reasons,
		c.ConfidenceScore, c.ProcessingTimeMs, c.HumanApproved, c.OverrideApproved,
		c.ReviewerNotes, c.ReviewedAt, c.CreatedAt, c.UpdatedAt, c.ProcessedAt,
	)
	if err != nil {
		return &PersistenceError{Op: "save", ID: c.ID, Cause: err}
	}
	return nil
}

// Load retrieves a contract by ID
func (s *PostgresStore) Load(ctx context.Context, id string) (*types.Contract, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM contracts WHERE id = $1`, id)
	c, err := scanPgContract(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "load", ID: id, Cause: err}
	}
	return c, nil
}

// List returns contracts matching filter, newest first.
func (s *PostgresStore) List(ctx context.Context, filter types.ContractFilter) ([]types.Contract, error) {
	query := `SELECT ` + pgSummaryColumns + ` FROM contracts`
	var conds []string
	var args []any
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RequiresReview != nil {
		args = append(args, *filter.RequiresReview)
		conds = append(conds, fmt.Sprintf("requires_human_review = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Cause: err}
	}
	defer rows.Close()

	contracts := []types.Contract{}
	for rows.Next() {
		c, err := scanPgContract(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "list", Cause: err}
		}
		contracts = append(contracts, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list", Cause: err}
	}
	return contracts, nil
}

// Delete removes a contract by ID
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return &PersistenceError{Op: "delete", ID: id, Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgContract(row pgx.Row) (*types.Contract, error) {
	var c types.Contract
	var status string
	var cols jsonColumns

	err := row.Scan(
		&c.ID, &c.FileName, &c.FileSize, &c.FileMIMEType, &c.DocumentHash, &c.Document, &c.RawText, &c.TextTruncated,
		&status, &cols.extractedData, &cols.issues, &c.RequiresHumanReview, &cols.reasons,
		&c.ConfidenceScore, &c.ProcessingTimeMs, &c.HumanApproved, &c.OverrideApproved,
		&c.ReviewerNotes, &c.ReviewedAt, &c.CreatedAt, &c.UpdatedAt, &c.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = types.ContractStatus(status)
	if err := decodeColumns(&c, cols); err != nil {
		return nil, err
	}
	return &c, nil
}
