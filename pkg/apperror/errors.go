package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable error category returned to clients.
type Kind string

const (
	KindValidation     Kind = "ValidationError"
	KindNotFound       Kind = "NotFoundError"
	KindConflict       Kind = "ConflictError"
	KindAuthentication Kind = "AuthenticationError"
	KindAuthorization  Kind = "AuthorizationError"
	KindBusinessRule   Kind = "BusinessRuleViolation"
	KindRateLimited    Kind = "RateLimited"
	KindPersistence    Kind = "PersistenceError"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Kind       Kind   `json:"error_kind"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // internal cause, never serialised
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, kind Kind, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, kind Kind, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// KindOf returns the Kind of err, or KindPersistence for anything that is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPersistence
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// ---- Validation (VAL) ----

// Validation returns a generic input validation error.
func Validation(message string) *AppError {
	return New("VAL_001", KindValidation, message, http.StatusBadRequest)
}

func ErrInvalidAccountNumber() *AppError {
	return New("VAL_002", KindValidation, "Invalid account number format. Must be 12 digits", http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_003", KindValidation, "Amount must be a positive number with at most 2 decimal places", http.StatusBadRequest)
}

func ErrInvalidFilter() *AppError {
	return New("VAL_004", KindValidation, "Invalid type filter: must be all, credit, debit or transfer", http.StatusBadRequest)
}

func ErrMissingTransferFields() *AppError {
	return New("VAL_005", KindValidation, "Missing required fields receiver account and amount", http.StatusBadRequest)
}

func ErrMissingDepositFields() *AppError {
	return New("VAL_006", KindValidation, "Missing required fields account number and amount", http.StatusBadRequest)
}

// ---- Not found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", KindNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrAccountNotFound() *AppError {
	return New("NF_002", KindNotFound, "Account not found", http.StatusNotFound)
}

func ErrSenderAccountNotFound() *AppError {
	return New("NF_003", KindNotFound, "Sender account not found", http.StatusNotFound)
}

func ErrReceiverNotFound() *AppError {
	return New("NF_004", KindNotFound, "Receiver account not found", http.StatusNotFound)
}

// ---- Conflicts (CNF) ----

func ErrDuplicateAccount() *AppError {
	return New("CNF_001", KindConflict, "You already have an account in this bank", http.StatusConflict)
}

func ErrInvalidTransition(message string) *AppError {
	return New("CNF_002", KindConflict, message, http.StatusConflict)
}

func ErrPhoneExists() *AppError {
	return New("CNF_003", KindConflict, "This mobile number already exists", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", KindAuthentication, "Invalid phone number or password", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", KindAuthentication, "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Authorization (AUTHZ) ----

func ErrAdminOnly() *AppError {
	return New("AUTHZ_001", KindAuthorization, "Admin access only", http.StatusForbidden)
}

func ErrForbidden() *AppError {
	return New("AUTHZ_002", KindAuthorization, "You are not allowed to act on this resource", http.StatusForbidden)
}

// ---- Business rules (TXN) ----

func ErrSelfTransfer() *AppError {
	return New("TXN_001", KindBusinessRule, "Cannot transfer to your own account", http.StatusBadRequest)
}

func ErrSenderNotApproved() *AppError {
	return New("TXN_002", KindBusinessRule, "Sender account is not approved for transactions", http.StatusForbidden)
}

func ErrReceiverNotApproved() *AppError {
	return New("TXN_003", KindBusinessRule, "Receiver account is not approved for transactions", http.StatusForbidden)
}

func ErrInsufficientBalance() *AppError {
	return New("TXN_004", KindBusinessRule, "Insufficient balance", http.StatusBadRequest)
}

func ErrAccountNotApproved() *AppError {
	return New("TXN_005", KindBusinessRule, "Account is not approved for transactions", http.StatusForbidden)
}

// ---- Rate limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", KindRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & persistence (SYS) ----

// InternalError hides err behind a generic persistence failure.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", KindPersistence, "Internal server error", http.StatusInternalServerError, err)
}
