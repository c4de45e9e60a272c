package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/pkg/apperror"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	accountRepo ports.AccountRepository
	kycRepo     ports.KYCRepository
	userRepo    ports.UserRepository
	transactor  ports.DBTransactor
	numbers     ports.AccountNumberGenerator
	attempts    int
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl. attempts bounds
// account-number generation when the number collides with an existing one.
func NewAccountService(
	accountRepo ports.AccountRepository,
	kycRepo ports.KYCRepository,
	userRepo ports.UserRepository,
	transactor ports.DBTransactor,
	numbers ports.AccountNumberGenerator,
	attempts int,
	log zerolog.Logger,
) *AccountServiceImpl {
	if attempts < 1 {
		attempts = 1
	}
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		kycRepo:     kycRepo,
		userRepo:    userRepo,
		transactor:  transactor,
		numbers:     numbers,
		attempts:    attempts,
		log:         log,
	}
}

// Apply opens a pending account for the caller together with its KYC record
// and the caller's address, all in one transaction.
func (s *AccountServiceImpl) Apply(ctx context.Context, caller domain.Caller, req ports.ApplyRequest) (*domain.Account, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	balance, err := domain.ParseAmount(req.Balance)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	// early, friendly rejection; UNIQUE(user_id) is what actually guarantees it
	existing, err := s.accountRepo.GetByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check existing account: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrDuplicateAccount()
	}

	var account *domain.Account
	attempt := 0
	op := func() error {
		attempt++
		acct, err := s.applyOnce(ctx, caller, req, balance)
		if err == nil {
			account = acct
			return nil
		}
		if errors.Is(err, ports.ErrDuplicateAccountNumber) {
			s.log.Warn().Int("attempt", attempt).Msg("account number collision, regenerating")
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, s.retryPolicy(ctx)); err != nil {
		switch {
		case errors.Is(err, ports.ErrDuplicateOwner), errors.Is(err, ports.ErrDuplicateKYC):
			return nil, apperror.ErrDuplicateAccount()
		case errors.Is(err, ports.ErrDuplicateAccountNumber):
			return nil, apperror.InternalError(fmt.Errorf("no free account number after %d attempts: %w", attempt, err))
		default:
			return nil, apperror.InternalError(fmt.Errorf("apply for account: %w", err))
		}
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("user_id", caller.UserID.String()).
		Str("account_type", string(account.AccountType)).
		Msg("account application submitted")

	return account, nil
}

func (s *AccountServiceImpl) retryPolicy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 10 * time.Millisecond
	exp.MaxInterval = 200 * time.Millisecond
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(s.attempts-1)), ctx)
}

func (s *AccountServiceImpl) applyOnce(ctx context.Context, caller domain.Caller, req ports.ApplyRequest, balance int64) (*domain.Account, error) {
	number, err := s.numbers.Generate()
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	account := &domain.Account{
		ID:                  uuid.New(),
		UserID:              caller.UserID,
		AccountNumber:       number,
		AccountType:         req.AccountType,
		Balance:             balance,
		Status:              domain.AccountStatusPending,
		NomineeName:         req.NomineeName,
		NomineeRelationship: req.NomineeRelationship,
		CreatedAt:           now,
	}
	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		return nil, err
	}

	kyc := &domain.KYCRecord{
		ID:            uuid.New(),
		UserID:        caller.UserID,
		AadhaarNumber: req.AadhaarNumber,
		AadhaarFile:   req.AadhaarFile,
		PANNumber:     req.PANNumber,
		PANFile:       req.PANFile,
		Status:        domain.KYCStatusPending,
		SubmittedAt:   now,
	}
	if err := s.kycRepo.Create(ctx, dbTx, kyc); err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateAddress(ctx, dbTx, caller.UserID, req.Address); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return account, nil
}

// GetMine returns the caller's account with owner and KYC details.
func (s *AccountServiceImpl) GetMine(ctx context.Context, caller domain.Caller) (*domain.AccountDetails, error) {
	account, err := s.accountRepo.GetByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	owner, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find owner: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrNotFound("User")
	}

	kyc, err := s.kycRepo.GetByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find kyc: %w", err))
	}

	return &domain.AccountDetails{Account: *account, Owner: *owner, KYC: kyc}, nil
}

// ListAll returns every account joined with owner and KYC. Admin only.
func (s *AccountServiceImpl) ListAll(ctx context.Context, caller domain.Caller) ([]domain.AccountDetails, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrAdminOnly()
	}
	details, err := s.accountRepo.ListDetails(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list accounts: %w", err))
	}
	if details == nil {
		details = []domain.AccountDetails{}
	}
	return details, nil
}
