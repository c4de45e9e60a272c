package service

import (
	"context"
	"fmt"
	"time"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("retail-bank/service")

// TransactionEngineImpl implements ports.TransactionEngine. It is the only
// code path that changes balances or appends ledger rows.
type TransactionEngineImpl struct {
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	publisher   ports.EventPublisher
	log         zerolog.Logger
}

// NewTransactionEngine creates a new TransactionEngineImpl.
func NewTransactionEngine(
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	publisher ports.EventPublisher,
	log zerolog.Logger,
) *TransactionEngineImpl {
	return &TransactionEngineImpl{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		publisher:   publisher,
		log:         log,
	}
}

// Deposit credits an approved account with money from outside the bank.
// Nothing is written when the request is rejected.
func (s *TransactionEngineImpl) Deposit(ctx context.Context, caller domain.Caller, req ports.DepositRequest) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionEngine.Deposit",
		trace.WithAttributes(attribute.String("account_number", req.AccountNumber)))
	defer span.End()

	txn, err := s.deposit(ctx, caller, req)
	recordOutcome(span, err)
	return txn, err
}

func (s *TransactionEngineImpl) deposit(ctx context.Context, caller domain.Caller, req ports.DepositRequest) (*domain.Transaction, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrAdminOnly()
	}
	if req.AccountNumber == "" || req.Amount == nil {
		return nil, apperror.ErrMissingDepositFields()
	}
	if !domain.ValidAccountNumber(req.AccountNumber) {
		return nil, apperror.ErrInvalidAccountNumber()
	}
	amount, err := domain.ParseAmount(*req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, req.AccountNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}
	if !account.IsApproved() {
		return nil, apperror.ErrAccountNotApproved()
	}

	if _, err := s.accountRepo.AdjustBalance(ctx, dbTx, account.ID, amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit account: %w", err))
	}

	receiver := account.AccountNumber
	txn := newLedgerRow(domain.SystemSender, &receiver, amount, domain.TransactionTypeCredit,
		domain.TransactionStatusSuccess, describe(req.Description, "Deposit to "+receiver))
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("account_number", receiver).
		Int64("amount", amount).
		Str("admin_id", caller.UserID.String()).
		Msg("deposit completed")

	s.publish(ctx, txn)
	return txn, nil
}

// Transfer moves money from the caller's account to req.ReceiverAccount.
// Rejections found after both accounts are locked leave a failed ledger row.
func (s *TransactionEngineImpl) Transfer(ctx context.Context, caller domain.Caller, req ports.TransferRequest) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "TransactionEngine.Transfer",
		trace.WithAttributes(attribute.String("receiver_account", req.ReceiverAccount)))
	defer span.End()

	txn, err := s.transfer(ctx, caller, req)
	recordOutcome(span, err)
	return txn, err
}

func (s *TransactionEngineImpl) transfer(ctx context.Context, caller domain.Caller, req ports.TransferRequest) (*domain.Transaction, error) {
	if req.ReceiverAccount == "" || req.Amount == nil {
		return nil, apperror.ErrMissingTransferFields()
	}
	if !domain.ValidAccountNumber(req.ReceiverAccount) {
		return nil, apperror.ErrInvalidAccountNumber()
	}
	amount, err := domain.ParseAmount(*req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	sender, err := s.accountRepo.GetByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find sender account: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrSenderAccountNotFound()
	}
	if sender.AccountNumber == req.ReceiverAccount {
		return nil, apperror.ErrSelfTransfer()
	}
	if !sender.IsApproved() {
		return nil, apperror.ErrSenderNotApproved()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock both rows in account-number order so opposing transfers cannot deadlock.
	locked, err := s.accountRepo.LockByNumbers(ctx, dbTx, sender.AccountNumber, req.ReceiverAccount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock accounts: %w", err))
	}

	// the sender may have been rejected between the read above and the lock
	from := locked[sender.AccountNumber]
	if from == nil {
		return nil, apperror.ErrSenderAccountNotFound()
	}
	if !from.IsApproved() {
		return nil, apperror.ErrSenderNotApproved()
	}

	to := locked[req.ReceiverAccount]
	if to == nil {
		return s.fail(ctx, dbTx, from.AccountNumber, nil, amount, "Receiver account not found", apperror.ErrReceiverNotFound())
	}
	receiver := to.AccountNumber
	if !to.IsApproved() {
		return s.fail(ctx, dbTx, from.AccountNumber, &receiver, amount, "Receiver account is not approved", apperror.ErrReceiverNotApproved())
	}
	if from.Balance < amount {
		return s.fail(ctx, dbTx, from.AccountNumber, &receiver, amount, "Insufficient balance", apperror.ErrInsufficientBalance())
	}

	if _, err := s.accountRepo.AdjustBalance(ctx, dbTx, from.ID, -amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if _, err := s.accountRepo.AdjustBalance(ctx, dbTx, to.ID, amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit receiver: %w", err))
	}

	txn := newLedgerRow(from.AccountNumber, &receiver, amount, domain.TransactionTypeTransfer,
		domain.TransactionStatusSuccess, describe(req.Description, "Transfer to "+receiver))
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("from", from.AccountNumber).
		Str("to", receiver).
		Int64("amount", amount).
		Msg("transfer completed")

	s.publish(ctx, txn)
	return txn, nil
}

// fail records a rejected transfer and commits it, then returns cause.
func (s *TransactionEngineImpl) fail(
	ctx context.Context,
	dbTx pgx.Tx,
	sender string,
	receiver *string,
	amount int64,
	reason string,
	cause *apperror.AppError,
) (*domain.Transaction, error) {
	txn := newLedgerRow(sender, receiver, amount, domain.TransactionTypeTransfer, domain.TransactionStatusFailed, reason)
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("record failed transfer: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit failed transfer: %w", err))
	}

	s.log.Warn().
		Str("tx_id", txn.ID.String()).
		Str("from", sender).
		Int64("amount", amount).
		Str("reason", reason).
		Msg("transfer rejected")

	s.publish(ctx, txn)
	return nil, cause
}

func (s *TransactionEngineImpl) publish(ctx context.Context, txn *domain.Transaction) {
	if err := s.publisher.Publish(ctx, domain.TransactionEvent(txn)); err != nil {
		s.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Msg("failed to publish transaction event")
	}
}

func newLedgerRow(
	sender string,
	receiver *string,
	amount int64,
	txType domain.TransactionType,
	status domain.TransactionStatus,
	description string,
) *domain.Transaction {
	return &domain.Transaction{
		ID:              uuid.New(),
		Reference:       uuid.New(),
		SenderAccount:   sender,
		ReceiverAccount: receiver,
		Amount:          amount,
		Type:            txType,
		Status:          status,
		Description:     description,
		CreatedAt:       time.Now().UTC(),
	}
}

func describe(given, fallback string) string {
	if given != "" {
		return given
	}
	return fallback
}

func recordOutcome(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperror.KindOf(err)))
}
