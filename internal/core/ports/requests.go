package ports

import (
	"errors"
	"regexp"

	"retail-bank/internal/core/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

var (
	phoneRe   = regexp.MustCompile(`^\d{10}$`)
	aadhaarRe = regexp.MustCompile(`^\d{12}$`)
	panRe     = regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`)
	emailRe   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// RegisterRequest holds input for customer registration.
type RegisterRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.Email, validation.Required, validation.Match(emailRe).Error("must be a valid email address")),
		validation.Field(&r.PhoneNumber, validation.Required, validation.Match(phoneRe).Error("must be 10 digits")),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(matches(r.Password))),
	)
}

// LoginRequest holds login credentials.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ResetPasswordRequest is an admin-initiated password change.
type ResetPasswordRequest struct {
	PhoneNumber     string `json:"phone_number"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber, validation.Required, validation.Match(phoneRe).Error("must be 10 digits")),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(6, 72)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(matches(r.NewPassword))),
	)
}

// ApplyRequest is an account application with KYC documents.
type ApplyRequest struct {
	AccountType         domain.AccountType `json:"account_type"`
	Balance             decimal.Decimal    `json:"balance"`
	AadhaarNumber       string             `json:"aadhar_number"`
	AadhaarFile         string             `json:"aadhar_file"`
	PANNumber           string             `json:"pan_number"`
	PANFile             string             `json:"pan_file"`
	NomineeName         string             `json:"nominee_name"`
	NomineeRelationship string             `json:"nominee_relationship"`
	Address             string             `json:"address"`
}

func (r ApplyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccountType, validation.Required, validation.By(func(v interface{}) error {
			if !v.(domain.AccountType).Valid() {
				return errors.New("must be one of savings, current, fixed_deposit, salary")
			}
			return nil
		})),
		validation.Field(&r.Balance, validation.By(func(v interface{}) error {
			if _, err := domain.ParseAmount(v.(decimal.Decimal)); err != nil {
				return errors.New("must be a positive amount with at most 2 decimal places")
			}
			return nil
		})),
		validation.Field(&r.AadhaarNumber, validation.Required, validation.Match(aadhaarRe).Error("must be 12 digits")),
		validation.Field(&r.AadhaarFile, validation.Required),
		validation.Field(&r.PANNumber, validation.Required, validation.Match(panRe).Error("must look like ABCDE1234F")),
		validation.Field(&r.PANFile, validation.Required),
		validation.Field(&r.NomineeName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.NomineeRelationship, validation.Required, validation.In(relationships()...)),
		validation.Field(&r.Address, validation.Required, validation.Length(5, 255)),
	)
}

// TransferRequest moves money from the caller's account to ReceiverAccount.
// A nil Amount means the field was absent.
type TransferRequest struct {
	ReceiverAccount string           `json:"receiver_account"`
	Amount          *decimal.Decimal `json:"amount"`
	Description     string           `json:"description"`
}

// DepositRequest credits an account from outside the bank.
type DepositRequest struct {
	AccountNumber string           `json:"account_number"`
	Amount        *decimal.Decimal `json:"balance"`
	Description   string           `json:"description"`
}

func matches(other string) validation.RuleFunc {
	return func(v interface{}) error {
		if v.(string) != other {
			return errors.New("passwords do not match")
		}
		return nil
	}
}

func relationships() []interface{} {
	out := make([]interface{}, len(domain.NomineeRelationships))
	for i, r := range domain.NomineeRelationships {
		out[i] = r
	}
	return out
}
