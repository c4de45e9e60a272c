package dto

import (
	"time"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for customer registration.
type RegisterRequest struct {
	FullName        string `json:"full_name" binding:"required,min=2,max=100"`
	Email           string `json:"email" binding:"required,email"`
	PhoneNumber     string `json:"phone_number" binding:"required,phone"`
	Password        string `json:"password" binding:"required,min=6,max=72" sanitize:"-"`
	ConfirmPassword string `json:"confirm_password" binding:"required" sanitize:"-"`
}

func (r RegisterRequest) ToPort() ports.RegisterRequest {
	return ports.RegisterRequest(r)
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required" sanitize:"-"`
}

func (r LoginRequest) ToPort() ports.LoginRequest {
	return ports.LoginRequest(r)
}

// ResetPasswordRequest is the admin password reset body.
type ResetPasswordRequest struct {
	PhoneNumber     string `json:"phone_number" binding:"required,phone"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72" sanitize:"-"`
	ConfirmPassword string `json:"confirm_password" binding:"required" sanitize:"-"`
}

func (r ResetPasswordRequest) ToPort() ports.ResetPasswordRequest {
	return ports.ResetPasswordRequest(r)
}

// ApplyRequest is the account application body. File fields carry references
// to documents uploaded elsewhere.
type ApplyRequest struct {
	AccountType         string          `json:"account_type" binding:"required,oneof=savings current fixed_deposit salary"`
	Balance             decimal.Decimal `json:"balance"`
	AadhaarNumber       string          `json:"aadhar_number" binding:"required,aadhaar"`
	AadhaarFile         string          `json:"aadhar_file" binding:"required,max=255"`
	PANNumber           string          `json:"pan_number" binding:"required,pan"`
	PANFile             string          `json:"pan_file" binding:"required,max=255"`
	NomineeName         string          `json:"nominee_name" binding:"required,max=100"`
	NomineeRelationship string          `json:"nominee_relationship" binding:"required"`
	Address             string          `json:"address" binding:"required,max=255"`
}

func (r ApplyRequest) ToPort() ports.ApplyRequest {
	return ports.ApplyRequest{
		AccountType:         domain.AccountType(r.AccountType),
		Balance:             r.Balance,
		AadhaarNumber:       r.AadhaarNumber,
		AadhaarFile:         r.AadhaarFile,
		PANNumber:           r.PANNumber,
		PANFile:             r.PANFile,
		NomineeName:         r.NomineeName,
		NomineeRelationship: r.NomineeRelationship,
		Address:             r.Address,
	}
}

// TransferRequest has no presence rules here: the engine reports missing
// fields with its own error code.
type TransferRequest struct {
	ReceiverAccount string           `json:"receiver_account"`
	Amount          *decimal.Decimal `json:"amount"`
	Description     string           `json:"description" binding:"max=255"`
}

func (r TransferRequest) ToPort() ports.TransferRequest {
	return ports.TransferRequest(r)
}

// DepositRequest is the admin deposit body. The amount field is named balance.
type DepositRequest struct {
	AccountNumber string           `json:"account_number"`
	Amount        *decimal.Decimal `json:"balance"`
	Description   string           `json:"description" binding:"max=255"`
}

func (r DepositRequest) ToPort() ports.DepositRequest {
	return ports.DepositRequest(r)
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          string  `json:"id"`
	FullName    string  `json:"full_name"`
	Email       string  `json:"email"`
	PhoneNumber string  `json:"phone_number"`
	Address     *string `json:"address,omitempty"`
	Role        string  `json:"role"`
	CreatedAt   string  `json:"created_at"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		FullName:    u.FullName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		Role:        string(u.Role),
		CreatedAt:   u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expires_at"` // Unix timestamp
	User      UserResponse `json:"user"`
}

// AccountResponse renders balances in rupees with two decimals.
type AccountResponse struct {
	AccountUUID         string `json:"account_uuid"`
	AccountNumber       string `json:"account_number"`
	AccountType         string `json:"account_type"`
	Balance             string `json:"balance"`
	Status              string `json:"status"`
	NomineeName         string `json:"nominee_name"`
	NomineeRelationship string `json:"nominee_relationship"`
	CreatedAt           string `json:"created_at"`
}

func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		AccountUUID:         a.ID.String(),
		AccountNumber:       a.AccountNumber,
		AccountType:         string(a.AccountType),
		Balance:             domain.FormatAmount(a.Balance),
		Status:              string(a.Status),
		NomineeName:         a.NomineeName,
		NomineeRelationship: a.NomineeRelationship,
		CreatedAt:           a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// KYCResponse summarises a KYC record.
type KYCResponse struct {
	AadhaarNumber string `json:"aadhar_number"`
	AadhaarFile   string `json:"aadhar_file"`
	PANNumber     string `json:"pan_number"`
	PANFile       string `json:"pan_file"`
	Status        string `json:"status"`
	SubmittedAt   string `json:"submitted_at"`
}

// AccountDetailsResponse is an account with its owner and KYC summary.
type AccountDetailsResponse struct {
	Account AccountResponse `json:"account"`
	Owner   UserResponse    `json:"owner"`
	KYC     *KYCResponse    `json:"kyc,omitempty"`
}

func NewAccountDetailsResponse(d *domain.AccountDetails) AccountDetailsResponse {
	out := AccountDetailsResponse{
		Account: NewAccountResponse(&d.Account),
		Owner:   NewUserResponse(&d.Owner),
	}
	if d.KYC != nil {
		out.KYC = &KYCResponse{
			AadhaarNumber: d.KYC.AadhaarNumber,
			AadhaarFile:   d.KYC.AadhaarFile,
			PANNumber:     d.KYC.PANNumber,
			PANFile:       d.KYC.PANFile,
			Status:        d.KYC.Status,
			SubmittedAt:   d.KYC.SubmittedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}

func NewAccountDetailsList(list []domain.AccountDetails) []AccountDetailsResponse {
	out := make([]AccountDetailsResponse, len(list))
	for i := range list {
		out[i] = NewAccountDetailsResponse(&list[i])
	}
	return out
}

// TransactionResponse is a ledger row. Direction is set only when the row
// is shown from one account's point of view.
type TransactionResponse struct {
	ID              string  `json:"id"`
	Reference       string  `json:"reference"`
	SenderAccount   string  `json:"sender_account"`
	ReceiverAccount *string `json:"receiver_account"`
	Amount          string  `json:"amount"`
	Type            string  `json:"type"`
	Direction       string  `json:"direction,omitempty"`
	Status          string  `json:"status"`
	Description     string  `json:"description"`
	CreatedAt       string  `json:"created_at"`
}

func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		Reference:       t.Reference.String(),
		SenderAccount:   t.SenderAccount,
		ReceiverAccount: t.ReceiverAccount,
		Amount:          domain.FormatAmount(t.Amount),
		Type:            string(t.Type),
		Status:          string(t.Status),
		Description:     t.Description,
		CreatedAt:       t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewTransactionList renders rows. With a non-empty own account number each
// row also carries its direction.
func NewTransactionList(rows []domain.Transaction, own string) []TransactionResponse {
	out := make([]TransactionResponse, len(rows))
	for i := range rows {
		out[i] = NewTransactionResponse(&rows[i])
		if own != "" {
			out[i].Direction = string(rows[i].Direction(own))
		}
	}
	return out
}
