package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"rewards-ledger/internal/apperr"
	"rewards-ledger/internal/ledger"
	"rewards-ledger/internal/model"
	"rewards-ledger/internal/pkg/lock"
	"rewards-ledger/internal/repository"
	"rewards-ledger/internal/rules"
)

// SubmissionService moves content submissions through review.
// Earnings are fixed at approval and credited once, when the submission is paid.
type SubmissionService struct {
	store  *repository.Store
	ledger *ledger.Ledger
	rules  *rules.Engine
	locks  *lock.AccountLock
	retry  retrier
}

// NewSubmissionService creates a new SubmissionService instance.
func NewSubmissionService(store *repository.Store, l *ledger.Ledger, engine *rules.Engine, locks *lock.AccountLock, conflictRetries int) *SubmissionService {
	return &SubmissionService{
		store:  store,
		ledger: l,
		rules:  engine,
		locks:  locks,
		retry:  retrier{attempts: conflictRetries, metrics: l.Metrics()},
	}
}

// Submit records a pending submission.
func (s *SubmissionService) Submit(ctx context.Context, accountID int64, platform, videoURL, description string) (*model.ContentSubmission, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform == "" {
		return nil, apperr.Validationf("platform is required")
	}
	u, err := url.Parse(strings.TrimSpace(videoURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validationf("video url must be an http(s) url")
	}

	if _, err := s.store.Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	sub, err := s.store.Submissions.Create(ctx, accountID, platform, u.String(), strings.TrimSpace(description))
	if err != nil {
		return nil, err
	}

	log.Info().Int64("account_id", accountID).Int64("submission_id", sub.ID).Str("platform", platform).Msg("Content submitted")
	return sub, nil
}

// Approve moves a pending submission to approved and fixes its earnings.
// Nothing is credited until Pay.
func (s *SubmissionService) Approve(ctx context.Context, id int64, notes string) (*model.ContentSubmission, error) {
	current, err := s.store.Submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sub, err := s.store.Submissions.Approve(ctx, id, s.rules.ContentEarnings(current.Platform).Round(2), notes)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("submission_id", id).Str("earnings", sub.Earnings.StringFixed(2)).Msg("Submission approved")
	return sub, nil
}

// Pay moves an approved submission to paid and credits its earnings.
// Paying twice fails with ErrInvalidTransition and credits nothing.
func (s *SubmissionService) Pay(ctx context.Context, id int64) (*model.ContentSubmission, *model.Transaction, error) {
	current, err := s.store.Submissions.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var (
		sub    *model.ContentSubmission
		credit *model.Transaction
	)
	err = withAccountLock(ctx, s.locks, current.AccountID, func() error {
		return s.retry.do(ctx, "pay_submission", func() error {
			return s.store.RunInTx(ctx, func(tx *repository.Tx) error {
				var err error
				if sub, err = tx.Submissions.MarkPaid(ctx, id); err != nil {
					return err
				}
				credit, err = s.ledger.ApplyDelta(ctx, tx, ledger.Entry{
					AccountID:   sub.AccountID,
					Amount:      sub.Earnings,
					Category:    model.CategoryContent,
					Description: fmt.Sprintf("Content earnings: %s video #%d", sub.Platform, sub.ID),
					RefID:       refID("submission", fmt.Sprint(sub.ID)),
				})
				return err
			})
		})
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info().
		Int64("account_id", sub.AccountID).
		Int64("submission_id", id).
		Str("amount", credit.Amount.StringFixed(2)).
		Msg("Submission paid")
	return sub, credit, nil
}

// Reject moves a pending submission to rejected.
func (s *SubmissionService) Reject(ctx context.Context, id int64, notes string) (*model.ContentSubmission, error) {
	sub, err := s.store.Submissions.Reject(ctx, id, notes)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("submission_id", id).Msg("Submission rejected")
	return sub, nil
}

// List returns an account's submissions, newest first.
func (s *SubmissionService) List(ctx context.Context, accountID int64) ([]*model.ContentSubmission, error) {
	return s.store.Submissions.GetByAccountID(ctx, accountID)
}

// Pending returns submissions awaiting review, oldest first.
func (s *SubmissionService) Pending(ctx context.Context, limit int) ([]*model.ContentSubmission, error) {
	return s.store.Submissions.GetByStatus(ctx, model.SubmissionPending, pageSize(limit))
}
