package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// AccountStatus represents the lifecycle state of a bank account.
type AccountStatus string

const (
	AccountStatusPending  AccountStatus = "pending"
	AccountStatusApproved AccountStatus = "approved"
	AccountStatusRejected AccountStatus = "rejected"
)

// AccountType is the product an account was opened as.
type AccountType string

const (
	AccountTypeSavings      AccountType = "savings"
	AccountTypeCurrent      AccountType = "current"
	AccountTypeFixedDeposit AccountType = "fixed_deposit"
	AccountTypeSalary       AccountType = "salary"
)

// AccountTypes lists every accepted account type.
var AccountTypes = []AccountType{
	AccountTypeSavings, AccountTypeCurrent, AccountTypeFixedDeposit, AccountTypeSalary,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// NomineeRelationships lists the accepted nominee relationships.
var NomineeRelationships = []string{
	"spouse", "father", "mother", "son", "daughter", "brother", "sister", "other",
}

// AccountNumberLength is the fixed number of digits in an account number.
const AccountNumberLength = 12

var accountNumberRe = regexp.MustCompile(`^\d{12}$`)

// ValidAccountNumber reports whether s is exactly twelve decimal digits.
func ValidAccountNumber(s string) bool {
	return accountNumberRe.MatchString(s)
}

// Account is a bank account owned by exactly one user.
type Account struct {
	ID                  uuid.UUID     `json:"account_uuid"`
	UserID              uuid.UUID     `json:"user_id"`
	AccountNumber       string        `json:"account_number"`
	AccountType         AccountType   `json:"account_type"`
	Balance             int64         `json:"balance"` // minor units (paise)
	Status              AccountStatus `json:"status"`
	NomineeName         string        `json:"nominee_name"`
	NomineeRelationship string        `json:"nominee_relationship"`
	CreatedAt           time.Time     `json:"created_at"`
}

// IsApproved returns true if the account may move money.
func (a *Account) IsApproved() bool {
	return a.Status == AccountStatusApproved
}

// AccountDetails is an account joined with its owner and KYC record.
type AccountDetails struct {
	Account Account    `json:"account"`
	Owner   User       `json:"owner"`
	KYC     *KYCRecord `json:"kyc,omitempty"`
}

var (
	ErrSameStatus         = errors.New("account status unchanged")
	ErrInvalidTransition  = errors.New("invalid account status transition")
	ErrInvalidTargetState = errors.New("invalid target account status")
)

// CheckTransition validates moving an account from current to next.
// pending may go to approved or rejected. Decided accounts may only flip
// to the other decision when allowReversal is set.
func CheckTransition(current, next AccountStatus, allowReversal bool) error {
	if next != AccountStatusApproved && next != AccountStatusRejected {
		return fmt.Errorf("%w: %s", ErrInvalidTargetState, next)
	}
	if current == next {
		return fmt.Errorf("%w: already %s", ErrSameStatus, current)
	}
	if current == AccountStatusPending || allowReversal {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}
