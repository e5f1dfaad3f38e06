package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/model"
)

const submissionColumns = `
	id, account_id, platform, video_url, description, status, earnings,
	review_notes, submitted_at, reviewed_at, paid_at`

// SubmissionRepository handles content submission persistence.
// Status changes are conditional on the current status so a command applies at most once.
type SubmissionRepository struct {
	db Querier
}

// NewSubmissionRepository creates a new SubmissionRepository instance.
func NewSubmissionRepository(db Querier) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func scanSubmission(row pgx.Row) (*model.ContentSubmission, error) {
	var s model.ContentSubmission
	err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.Platform,
		&s.VideoURL,
		&s.Description,
		&s.Status,
		&s.Earnings,
		&s.ReviewNotes,
		&s.SubmittedAt,
		&s.ReviewedAt,
		&s.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a pending submission.
func (r *SubmissionRepository) Create(ctx context.Context, accountID int64, platform, videoURL, description string) (*model.ContentSubmission, error) {
	const query = `
		INSERT INTO content_submissions (account_id, platform, video_url, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + submissionColumns

	s, err := scanSubmission(r.db.QueryRow(ctx, query, accountID, platform, videoURL, description))
	if err != nil {
		return nil, wrapErr("create submission", err)
	}
	return s, nil
}

// GetByID retrieves a submission by ID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*model.ContentSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM content_submissions WHERE id = $1`

	s, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound("get submission", err, ErrSubmissionNotFound)
	}
	return s, nil
}

// Approve moves a pending submission to approved and fixes its earnings.
func (r *SubmissionRepository) Approve(ctx context.Context, id int64, earnings decimal.Decimal, notes string) (*model.ContentSubmission, error) {
	const query = `
		UPDATE content_submissions
		SET status = 'approved', earnings = $2, review_notes = $3, reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + submissionColumns

	return r.transition(ctx, id, model.SubmissionApproved, query, id, earnings, notes)
}

// MarkPaid moves an approved submission to paid.
func (r *SubmissionRepository) MarkPaid(ctx context.Context, id int64) (*model.ContentSubmission, error) {
	const query = `
		UPDATE content_submissions
		SET status = 'paid', paid_at = NOW()
		WHERE id = $1 AND status = 'approved'
		RETURNING ` + submissionColumns

	return r.transition(ctx, id, model.SubmissionPaid, query, id)
}

// Reject moves a pending submission to rejected.
func (r *SubmissionRepository) Reject(ctx context.Context, id int64, notes string) (*model.ContentSubmission, error) {
	const query = `
		UPDATE content_submissions
		SET status = 'rejected', review_notes = $2, reviewed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + submissionColumns

	return r.transition(ctx, id, model.SubmissionRejected, query, id, notes)
}

func (r *SubmissionRepository) transition(ctx context.Context, id int64, to, query string, args ...any) (*model.ContentSubmission, error) {
	s, err := scanSubmission(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapErr("update submission", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperr.ErrInvalidTransition.Withf("submission %d is %s, cannot become %s", id, current.Status, to)
}

// GetByAccountID returns an account's submissions, newest first.
func (r *SubmissionRepository) GetByAccountID(ctx context.Context, accountID int64) ([]*model.ContentSubmission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM content_submissions
		WHERE account_id = $1
		ORDER BY submitted_at DESC, id DESC
	`
	return r.list(ctx, query, accountID)
}

// GetByStatus returns submissions in a status, oldest first.
func (r *SubmissionRepository) GetByStatus(ctx context.Context, status string, limit int) ([]*model.ContentSubmission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM content_submissions
		WHERE status = $1
		ORDER BY submitted_at, id
		LIMIT $2
	`
	return r.list(ctx, query, status, limit)
}

func (r *SubmissionRepository) list(ctx context.Context, query string, args ...any) ([]*model.ContentSubmission, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list submissions", err)
	}
	defer rows.Close()

	var out []*model.ContentSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, wrapErr("scan submission", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate submissions", err)
	}
	return out, nil
}
