// Package report drives the multi-stage report generation pipeline.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kylejryan/claim-workflow-engine/internal/models"
)

// ErrReportNotFound is returned when the referenced report row is missing.
var ErrReportNotFound = errors.New("report not found")

// Store persists report rows. Every stage reads the row fresh before
// mutating it; no in-memory state survives between stages.
type Store interface {
	Get(ctx context.Context, id string) (*models.Report, error)
	SetStatus(ctx context.Context, id string, status models.ReportStatus) error
	MarkCompleted(ctx context.Context, id, s3Key string) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
}

// PGStore is the Postgres implementation of Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a pgx pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Get loads one report row.
func (s *PGStore) Get(ctx context.Context, id string) (*models.Report, error) {
	const q = `
		SELECT id, user_id, claim_id, status, report_type, email_address,
		       s3_key, error_message, created_at, updated_at, completed_at
		FROM reports WHERE id = $1`

	var r models.Report
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&r.ID, &r.UserID, &r.ClaimID, &r.Status, &r.ReportType, &r.EmailAddress,
		&r.S3Key, &r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &r, nil
}

// SetStatus moves the report to a new in-flight status.
func (s *PGStore) SetStatus(ctx context.Context, id string, status models.ReportStatus) error {
	const q = `UPDATE reports SET status = $2, updated_at = now() WHERE id = $1`
	return s.exec(ctx, id, q, id, status)
}

// MarkCompleted records the archive key and the terminal COMPLETED status.
// completed_at is set here and only here.
func (s *PGStore) MarkCompleted(ctx context.Context, id, s3Key string) error {
	const q = `
		UPDATE reports
		SET status = $2, s3_key = $3, completed_at = now(), updated_at = now()
		WHERE id = $1`
	return s.exec(ctx, id, q, id, models.ReportCompleted, s3Key)
}

// MarkFailed records the terminal FAILED status with the captured message.
func (s *PGStore) MarkFailed(ctx context.Context, id, errorMessage string) error {
	const q = `
		UPDATE reports
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`
	return s.exec(ctx, id, q, id, models.ReportFailed, errorMessage)
}

func (s *PGStore) exec(ctx context.Context, id, q string, args ...any) error {
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update report %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}
