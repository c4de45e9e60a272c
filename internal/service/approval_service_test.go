package service

import (
	"context"
	"errors"
	"testing"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type approvalDeps struct {
	svc         *ApprovalServiceImpl
	accountRepo *mocks.MockAccountRepository
	publisher   *mocks.MockEventPublisher
}

func setupApprovalService(t *testing.T, allowReversal bool) *approvalDeps {
	ctrl := gomock.NewController(t)
	d := &approvalDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		publisher:   mocks.NewMockEventPublisher(ctrl),
	}
	d.svc = NewApprovalService(d.accountRepo, d.publisher, allowReversal, newTestLogger())
	return d
}

var testAdmin = domain.Caller{UserID: uuid.New(), Role: domain.RoleAdmin}

func TestApprovalService_Approve_Pending(t *testing.T) {
	d := setupApprovalService(t, true)
	ctx := context.Background()
	acct := &domain.Account{ID: uuid.New(), Status: domain.AccountStatusPending}

	d.accountRepo.EXPECT().GetByID(ctx, acct.ID).Return(acct, nil)
	d.accountRepo.EXPECT().UpdateStatus(ctx, acct.ID, domain.AccountStatusPending, domain.AccountStatusApproved).Return(true, nil)
	d.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, e domain.Event) error {
			assert.Equal(t, domain.EventAccountApproved, e.Type)
			return nil
		})

	res, err := d.svc.Approve(ctx, testAdmin, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Account approved successfully", res.Message)
	assert.Equal(t, domain.AccountStatusApproved, res.Account.Status)
}

func TestApprovalService_Reject_Pending(t *testing.T) {
	d := setupApprovalService(t, true)
	ctx := context.Background()
	acct := &domain.Account{ID: uuid.New(), Status: domain.AccountStatusPending}

	d.accountRepo.EXPECT().GetByID(ctx, acct.ID).Return(acct, nil)
	d.accountRepo.EXPECT().UpdateStatus(ctx, acct.ID, domain.AccountStatusPending, domain.AccountStatusRejected).Return(true, nil)
	d.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	res, err := d.svc.Reject(ctx, testAdmin, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "Account rejected successfully", res.Message)
}

func TestApprovalService_SameStatusIsConflict(t *testing.T) {
	d := setupApprovalService(t, true)
	ctx := context.Background()
	acct := &domain.Account{ID: uuid.New(), Status: domain.AccountStatusApproved}

	d.accountRepo.EXPECT().GetByID(ctx, acct.ID).Return(acct, nil)

	_, err := d.svc.Approve(ctx, testAdmin, acct.ID)
	assertAppError(t, err, "CNF_002")
	assert.Contains(t, err.Error(), "already approved")
}

func TestApprovalService_Reversal(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed", func(t *testing.T) {
		d := setupApprovalService(t, true)
		acct := &domain.Account{ID: uuid.New(), Status: domain.AccountStatusApproved}
		d.accountRepo.EXPECT().GetByID(ctx, acct.ID).Return(acct, nil)
		d.accountRepo.EXPECT().UpdateStatus(ctx, acct.ID, domain.AccountStatusApproved, domain.AccountStatusRejected).Return(true, nil)
		d.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

		_, err := d.svc.Reject(ctx, testAdmin, acct.ID)
		require.NoError(t, err)
	})

	t.Run("blocked", func(t *testing.T) {
		d := setupApprovalService(t, false)
		acct := &domain.Account{ID: uuid.New(), Status: domain.AccountStatusRejected}
		d.accountRepo.EXPECT().GetByID(ctx, acct.ID).Return(acct, nil)

		_, err := d.svc.Approve(ctx, testAdmin, acct.ID)
		assertAppError(t, err, "CNF_002")
	})
}

func TestApprovalService_NotFound(t *testing.T) {
	d := setupApprovalService(t, true)
	ctx := context.Background()
	id := uuid.New()

	d.accountRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.Approve(ctx, testAdmin, id)
	assertAppError(t, err, "NF_002")
}

func TestApprovalService_CustomerRefused(t *testing.T) {
	d := setupApprovalService(t, true)

	_, err := d.svc.Approve(context.Background(), domain.Caller{UserID: uuid.New(), Role: domain.RoleCustomer}, uuid.New())
	assertAppError(t, err, "AUTHZ_001")
}

func TestApprovalService_ConcurrentDecision(t *testing.T) {
	d := setupApprovalService(t, true)
	ctx := context.Background()
	acct := &domain.Account{ID: uuid.New(), Status: domain.AccountStatusPending}

	d.accountRepo.EXPECT().GetByID(ctx, acct.ID).Return(acct, nil)
	d.accountRepo.EXPECT().UpdateStatus(ctx, acct.ID, domain.AccountStatusPending, domain.AccountStatusApproved).Return(false, nil)

	_, err := d.svc.Approve(ctx, testAdmin, acct.ID)
	assertAppError(t, err, "CNF_002")
}

func TestApprovalService_PublishFailureIsNotFatal(t *testing.T) {
	d := setupApprovalService(t, true)
	ctx := context.Background()
	acct := &domain.Account{ID: uuid.New(), Status: domain.AccountStatusPending}

	d.accountRepo.EXPECT().GetByID(ctx, acct.ID).Return(acct, nil)
	d.accountRepo.EXPECT().UpdateStatus(ctx, acct.ID, domain.AccountStatusPending, domain.AccountStatusApproved).Return(true, nil)
	d.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("broker down"))

	_, err := d.svc.Approve(ctx, testAdmin, acct.ID)
	require.NoError(t, err)
}
