package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jonathan/contract-auditor/internal/types"
)

// sqliteTime is fixed width so that text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore keeps contracts in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteColumns = `id, file_name, file_size, file_mime_type, document_hash, document, raw_text, text_truncated,
	status, extracted_data, validation_issues, requires_human_review, review_reasons,
	confidence_score, processing_time_ms, human_approved, override_approved,
	reviewer_notes, reviewed_at, created_at, updated_at, processed_at`

const sqliteSummaryColumns = `id, file_name, file_size, file_mime_type, document_hash, NULL, '', text_truncated,
	status, extracted_data, validation_issues, requires_human_review, review_reasons,
	confidence_score, processing_time_ms, human_approved, override_approved,
	reviewer_notes, reviewed_at, created_at, updated_at, processed_at`

// NewSQLiteStore opens (creating if needed) the database at dsn and applies the schema.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema("sqlite.sql")); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &PersistenceError{Op: "ping", Cause: err}
	}
	return nil
}

// Save upserts the whole record in one statement.
func (s *SQLiteStore) Save(ctx context.Context, c *types.Contract) error {
	cols, err := encodeColumns(c)
	if err != nil {
		return &PersistenceError{Op: "save", ID: c.ID, Cause: err}
	}

	var extracted any
	if cols.extractedData != nil {
		extracted = string(cols.extractedData)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO contracts (`+sqliteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FileName, c.FileSize, c.FileMIMEType, c.DocumentHash, c.Document, c.RawText, c.TextTruncated,
		string(c.Status), extracted, string(cols.issues), c.RequiresHumanReview, string(cols.reasons),
		nullFloat(c.ConfidenceScore), nullInt(c.ProcessingTimeMs), c.HumanApproved, c.OverrideApproved,
		nullString(c.ReviewerNotes), formatTime(c.ReviewedAt), c.CreatedAt.UTC().Format(sqliteTime),
		c.UpdatedAt.UTC().Format(sqliteTime), formatTime(c.ProcessedAt),
	)
	if err != nil {
		return &PersistenceError{Op: "save", ID: c.ID, Cause: err}
	}
	return nil
}

// Load retrieves a contract by ID.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*types.Contract, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM contracts WHERE id = ?`, id)
	c, err := scanSQLiteContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "load", ID: id, Cause: err}
	}
	return c, nil
}

// List returns contracts matching filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter types.ContractFilter) ([]types.Contract, error) {
	query := `SELECT ` + sqliteSummaryColumns + ` FROM contracts`
	var conds []string
	var args []any
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.RequiresReview != nil {
		conds = append(conds, "requires_human_review = ?")
		args = append(args, *filter.RequiresReview)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Cause: err}
	}
	defer func() { _ = rows.Close() }()

	contracts := []types.Contract{}
	for rows.Next() {
		c, err := scanSQLiteContract(rows)
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

// Delete removes a contract by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return &PersistenceError{Op: "delete", ID: id, Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &PersistenceError{Op: "delete", ID: id, Cause: err}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteContract(row rowScanner) (*types.Contract, error) {
	var (
		c               types.Contract
		status          string
		issues, reasons string
		confidence      sql.NullFloat64
		processingMs    sql.NullInt64
		extracted       sql.NullString
		notes           sql.NullString
		reviewedAt      sql.NullString
		createdAt       sql.NullString
		updatedAt       sql.NullString
		processedAt     sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.FileName, &c.FileSize, &c.FileMIMEType, &c.DocumentHash, &c.Document, &c.RawText, &c.TextTruncated,
		&status, &extracted, &issues, &c.RequiresHumanReview, &reasons,
		&confidence, &processingMs, &c.HumanApproved, &c.OverrideApproved,
		&notes, &reviewedAt, &createdAt, &updatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = types.ContractStatus(status)
	if confidence.Valid {
		v := confidence.Float64
		c.ConfidenceScore = &v
	}
	if processingMs.Valid {
		v := int(processingMs.Int64)
		c.ProcessingTimeMs = &v
	}
	if notes.Valid {
		v := notes.String
		c.ReviewerNotes = &v
	}
	if c.ReviewedAt, err = parseTime(reviewedAt); err != nil {
		return nil, err
	}
	if c.ProcessedAt, err = parseTime(processedAt); err != nil {
		return nil, err
	}
	if t, err := parseTime(createdAt); err != nil {
		return nil, err
	} else if t != nil {
		c.CreatedAt = *t
	}
	if t, err := parseTime(updatedAt); err != nil {
		return nil, err
	} else if t != nil {
		c.UpdatedAt = *t
	}

	cols := jsonColumns{issues: []byte(issues), reasons: []byte(reasons)}
	if extracted.Valid {
		cols.extractedData = []byte(extracted.String)
	}
	if err := decodeColumns(&c, cols); err != nil {
		return nil, err
	}
	return &c, nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTime)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteTime, s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", s.String, err)
	}
	return &t, nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
