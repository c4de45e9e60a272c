package ports

import (
	"context"
	"io"
	"time"

	"retail-bank/internal/core/domain"

	"github.com/google/uuid"
)

// HashService handles password hashing (bcrypt).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// AccountNumberGenerator produces candidate 12-digit account numbers.
// Uniqueness is enforced by storage, not by the generator.
type AccountNumberGenerator interface {
	Generate() (string, error)
}

// EventPublisher emits domain events after commit. Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	// Allow records one hit and reports whether key is still under limit.
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// AuthService defines registration, login and admin password reset.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	ResetPassword(ctx context.Context, caller domain.Caller, req ResetPasswordRequest) error
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AccountService defines account application and lookup.
type AccountService interface {
	Apply(ctx context.Context, caller domain.Caller, req ApplyRequest) (*domain.Account, error)
	GetMine(ctx context.Context, caller domain.Caller) (*domain.AccountDetails, error)
	ListAll(ctx context.Context, caller domain.Caller) ([]domain.AccountDetails, error)
}

// ApprovalService is the only component that moves an account out of pending.
type ApprovalService interface {
	Approve(ctx context.Context, caller domain.Caller, accountID uuid.UUID) (*ApprovalResult, error)
	Reject(ctx context.Context, caller domain.Caller, accountID uuid.UUID) (*ApprovalResult, error)
}

// ApprovalResult describes a committed status decision.
type ApprovalResult struct {
	Account *domain.Account
	Message string
}

// TransactionEngine is the single writer of balances and ledger rows.
type TransactionEngine interface {
	Deposit(ctx context.Context, caller domain.Caller, req DepositRequest) (*domain.Transaction, error)
	Transfer(ctx context.Context, caller domain.Caller, req TransferRequest) (*domain.Transaction, error)
}

// LedgerService reads the ledger.
type LedgerService interface {
	History(ctx context.Context, caller domain.Caller) ([]domain.Transaction, error)
	AllTransactions(ctx context.Context, caller domain.Caller, filter string) ([]domain.Transaction, error)
	Statement(ctx context.Context, caller domain.Caller, w io.Writer) error
}

// AuditService records audited actions asynchronously.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
