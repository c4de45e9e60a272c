package service

import (
	"context"
	"errors"
	"fmt"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ApprovalServiceImpl implements ports.ApprovalService.
type ApprovalServiceImpl struct {
	accountRepo   ports.AccountRepository
	publisher     ports.EventPublisher
	allowReversal bool
	log           zerolog.Logger
}

// NewApprovalService creates a new ApprovalServiceImpl. With allowReversal an
// admin may flip an approved account to rejected and back.
func NewApprovalService(
	accountRepo ports.AccountRepository,
	publisher ports.EventPublisher,
	allowReversal bool,
	log zerolog.Logger,
) *ApprovalServiceImpl {
	return &ApprovalServiceImpl{
		accountRepo:   accountRepo,
		publisher:     publisher,
		allowReversal: allowReversal,
		log:           log,
	}
}

func (s *ApprovalServiceImpl) Approve(ctx context.Context, caller domain.Caller, accountID uuid.UUID) (*ports.ApprovalResult, error) {
	return s.decide(ctx, caller, accountID, domain.AccountStatusApproved)
}

func (s *ApprovalServiceImpl) Reject(ctx context.Context, caller domain.Caller, accountID uuid.UUID) (*ports.ApprovalResult, error) {
	return s.decide(ctx, caller, accountID, domain.AccountStatusRejected)
}

func (s *ApprovalServiceImpl) decide(ctx context.Context, caller domain.Caller, accountID uuid.UUID, next domain.AccountStatus) (*ports.ApprovalResult, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrAdminOnly()
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if err := domain.CheckTransition(account.Status, next, s.allowReversal); err != nil {
		switch {
		case errors.Is(err, domain.ErrSameStatus):
			return nil, apperror.ErrInvalidTransition(fmt.Sprintf("Account status is already %s", account.Status))
		case errors.Is(err, domain.ErrInvalidTransition):
			return nil, apperror.ErrInvalidTransition(
				fmt.Sprintf("Account status cannot change from %s to %s", account.Status, next))
		default:
			return nil, apperror.InternalError(err)
		}
	}

	// compare-and-set: a concurrent decision makes this a no-op
	updated, err := s.accountRepo.UpdateStatus(ctx, account.ID, account.Status, next)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update account status: %w", err))
	}
	if !updated {
		return nil, apperror.ErrInvalidTransition("Account status was changed concurrently")
	}

	previous := account.Status
	account.Status = next

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("from", string(previous)).
		Str("to", string(next)).
		Str("admin_id", caller.UserID.String()).
		Msg("account status changed")

	if err := s.publisher.Publish(ctx, domain.AccountEvent(account)); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID.String()).Msg("failed to publish account event")
	}

	return &ports.ApprovalResult{Account: account, Message: decisionMessage(next)}, nil
}

func decisionMessage(status domain.AccountStatus) string {
	if status == domain.AccountStatusApproved {
		return "Account approved successfully"
	}
	return "Account rejected successfully"
}
