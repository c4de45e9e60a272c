package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeTransfer TransactionType = "transfer"
	TransactionTypeCredit   TransactionType = "credit"
	TransactionTypeDebit    TransactionType = "debit"
)

// TransactionStatus is the outcome recorded for a ledger entry.
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// SystemSender marks ledger rows whose money did not come from a customer account.
const SystemSender = "SYSTEM"

// Transaction is an append-only ledger entry. Failed attempts are recorded too.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	Reference       uuid.UUID         `json:"reference"`
	SenderAccount   string            `json:"sender_account"`
	ReceiverAccount *string           `json:"receiver_account"`
	Amount          int64             `json:"amount"` // minor units
	Type            TransactionType   `json:"type"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	CreatedAt       time.Time         `json:"created_at"`
}

// IsSuccess returns true if money actually moved.
func (t *Transaction) IsSuccess() bool {
	return t.Status == TransactionStatusSuccess
}

// Direction returns debit or credit as seen from accountNumber.
func (t *Transaction) Direction(accountNumber string) TransactionType {
	if t.SenderAccount == accountNumber {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

// ParseTransactionFilter maps an admin listing filter to a type.
// "all" and "" mean no filter and yield nil.
func ParseTransactionFilter(s string) (*TransactionType, bool) {
	switch s {
	case "", "all":
		return nil, true
	case string(TransactionTypeTransfer), string(TransactionTypeCredit), string(TransactionTypeDebit):
		t := TransactionType(s)
		return &t, true
	default:
		return nil, false
	}
}
