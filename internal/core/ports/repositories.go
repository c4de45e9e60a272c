package ports

import (
	"context"
	"errors"

	"retail-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Unique-constraint violations surfaced by storage adapters. Services map
// them onto client-facing errors.
var (
	ErrDuplicateOwner         = errors.New("user already owns an account")
	ErrDuplicateAccountNumber = errors.New("account number already taken")
	ErrDuplicatePhone         = errors.New("phone number already registered")
	ErrDuplicateKYC           = errors.New("kyc record already exists for user")
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateAddress(ctx context.Context, tx pgx.Tx, id uuid.UUID, address string) error
}

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByOwner(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*domain.Account, error)
	// LockByNumbers locks every existing account in ascending number order.
	// Missing numbers are absent from the result.
	LockByNumbers(ctx context.Context, tx pgx.Tx, numbers ...string) (map[string]*domain.Account, error)
	// UpdateStatus sets status to `to` only while it is still `from`.
	// It reports false when the row changed underneath or does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.AccountStatus) (bool, error)
	// AdjustBalance adds delta (may be negative) and returns the new balance.
	AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error)
	ListDetails(ctx context.Context) ([]domain.AccountDetails, error)
}

// KYCRepository defines persistence operations for KYC records.
type KYCRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.KYCRecord) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.KYCRecord, error)
}

// TransactionRepository defines persistence operations for the ledger.
// Rows are append-only; the port exposes no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	// ListByAccountNumber returns rows where number is sender or receiver, newest first.
	ListByAccountNumber(ctx context.Context, number string) ([]domain.Transaction, error)
	// List returns all rows, optionally filtered by type, newest first.
	List(ctx context.Context, txType *domain.TransactionType) ([]domain.Transaction, error)
}

// AuditRepository defines persistence operations for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// HealthChecker is implemented by every backing store /health reports on.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
