package service

import (
	"context"

	"rewards-ledger/internal/model"
	"rewards-ledger/internal/repository"
)

// ReferralService answers referral queries. Attribution happens in SignUp.
type ReferralService struct {
	store *repository.Store
}

// NewReferralService creates a new ReferralService instance.
func NewReferralService(store *repository.Store) *ReferralService {
	return &ReferralService{store: store}
}

// Stats returns the referral count and rewards of a referrer.
func (s *ReferralService) Stats(ctx context.Context, accountID int64) (*model.ReferralStats, error) {
	if _, err := s.store.Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Referrals.Stats(ctx, accountID)
}

// List returns the referrals made by an account, most recent first.
func (s *ReferralService) List(ctx context.Context, accountID int64) ([]*model.Referral, error) {
	if _, err := s.store.Accounts.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.Referrals.ListByReferrer(ctx, accountID)
}
