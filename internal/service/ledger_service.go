package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"
	"retail-bank/pkg/apperror"

	"github.com/rs/zerolog"
)

var statementHeader = []string{
	"date", "reference", "direction", "counterparty", "amount", "status", "description",
}

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	log         zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(accountRepo ports.AccountRepository, txRepo ports.TransactionRepository, log zerolog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{accountRepo: accountRepo, txRepo: txRepo, log: log}
}

// History lists the caller's ledger rows, newest first. A caller without an
// account has an empty history.
func (s *LedgerServiceImpl) History(ctx context.Context, caller domain.Caller) ([]domain.Transaction, error) {
	_, rows, err := s.history(ctx, caller)
	return rows, err
}

func (s *LedgerServiceImpl) history(ctx context.Context, caller domain.Caller) (*domain.Account, []domain.Transaction, error) {
	account, err := s.accountRepo.GetByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("find account: %w", err))
	}
	if account == nil {
		return nil, []domain.Transaction{}, nil
	}

	rows, err := s.txRepo.ListByAccountNumber(ctx, account.AccountNumber)
	if err != nil {
		return nil, nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	if rows == nil {
		rows = []domain.Transaction{}
	}
	return account, rows, nil
}

// AllTransactions lists every ledger row for an admin. filter is one of
// all, credit, debit or transfer.
func (s *LedgerServiceImpl) AllTransactions(ctx context.Context, caller domain.Caller, filter string) ([]domain.Transaction, error) {
	if !caller.IsAdmin() {
		return nil, apperror.ErrAdminOnly()
	}
	txType, ok := domain.ParseTransactionFilter(filter)
	if !ok {
		return nil, apperror.ErrInvalidFilter()
	}

	rows, err := s.txRepo.List(ctx, txType)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	if rows == nil {
		rows = []domain.Transaction{}
	}
	return rows, nil
}

// Statement writes the caller's history to w as CSV.
func (s *LedgerServiceImpl) Statement(ctx context.Context, caller domain.Caller, w io.Writer) error {
	account, rows, err := s.history(ctx, caller)
	if err != nil {
		return err
	}
	if account == nil {
		return apperror.ErrAccountNotFound()
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(statementHeader); err != nil {
		return apperror.InternalError(fmt.Errorf("write statement header: %w", err))
	}
	for i := range rows {
		if err := cw.Write(statementRow(&rows[i], account.AccountNumber)); err != nil {
			return apperror.InternalError(fmt.Errorf("write statement row: %w", err))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperror.InternalError(fmt.Errorf("flush statement: %w", err))
	}

	s.log.Debug().Str("account_number", account.AccountNumber).Int("rows", len(rows)).Msg("statement exported")
	return nil
}

func statementRow(t *domain.Transaction, own string) []string {
	direction := t.Direction(own)
	counterparty := t.SenderAccount
	if direction == domain.TransactionTypeDebit {
		counterparty = ""
		if t.ReceiverAccount != nil {
			counterparty = *t.ReceiverAccount
		}
	}
	return []string{
		t.CreatedAt.UTC().Format(time.RFC3339),
		t.Reference.String(),
		string(direction),
		csvSafe(counterparty),
		domain.FormatAmount(t.Amount),
		string(t.Status),
		csvSafe(t.Description),
	}
}

// csvSafe stops spreadsheets from evaluating a user-supplied cell as a formula.
func csvSafe(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}
