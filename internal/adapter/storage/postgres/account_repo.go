package postgres

import (
	"context"
	"errors"
	"fmt"

	"retail-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, user_id, account_number, account_type, balance, status,
	nominee_name, nominee_relationship, created_at`

// ErrNegativeBalance is returned when a balance update would violate CHECK (balance >= 0).
var ErrNegativeBalance = errors.New("balance would become negative")

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts an account inside the application transaction.
// UNIQUE(user_id) and UNIQUE(account_number) surface as port sentinels.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		a.ID, a.UserID, a.AccountNumber, a.AccountType, a.Balance, a.Status,
		a.NomineeName, a.NomineeRelationship, a.CreatedAt,
	)
	if err != nil {
		return mapConstraintError("insert account", err)
	}
	return nil
}

// GetByID fetches an account by its UUID (without locking).
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id), "get account by id")
}

// GetByOwner fetches the single account owned by userID.
func (r *AccountRepo) GetByOwner(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, userID), "get account by owner")
}

// GetByNumber fetches an account by its 12-digit number (non-locking read).
func (r *AccountRepo) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, number), "get account by number")
}

// GetByNumberForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, number), "get account for update")
}

// LockByNumbers locks all listed accounts in ascending account_number order
// so that two opposing transfers cannot deadlock.
func (r *AccountRepo) LockByNumbers(ctx context.Context, tx pgx.Tx, numbers ...string) (map[string]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE account_number = ANY($1) ORDER BY account_number FOR UPDATE`

	rows, err := tx.Query(ctx, query, numbers)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer rows.Close()

	locked := make(map[string]*domain.Account, len(numbers))
	for rows.Next() {
		a, err := scanAccount(rows, "scan locked account")
		if err != nil {
			return nil, err
		}
		locked[a.AccountNumber] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked accounts: %w", err)
	}
	return locked, nil
}

// UpdateStatus is a compare-and-set on status.
func (r *AccountRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.AccountStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET status = $1 WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update account status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AdjustBalance applies a relative change so concurrent writers never lose updates.
func (r *AccountRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`, delta, id,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("account not found: %s", id)
		}
		if isCheckViolation(err) {
			return 0, ErrNegativeBalance
		}
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	return balance, nil
}

// ListDetails returns every account with its owner and KYC record, newest first.
func (r *AccountRepo) ListDetails(ctx context.Context) ([]domain.AccountDetails, error) {
	query := `SELECT a.id, a.user_id, a.account_number, a.account_type, a.balance, a.status,
			a.nominee_name, a.nominee_relationship, a.created_at,
			u.id, u.full_name, u.email, u.phone_number, u.address, u.role, u.created_at,
			k.id, k.aadhaar_number, k.aadhaar_file, k.pan_number, k.pan_file, k.status, k.submitted_at
		FROM accounts a
		JOIN users u ON u.id = a.user_id
		LEFT JOIN kyc_documents k ON k.user_id = a.user_id
		ORDER BY a.created_at DESC, a.id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list account details: %w", err)
	}
	defer rows.Close()

	var out []domain.AccountDetails
	for rows.Next() {
		var (
			d   domain.AccountDetails
			kyc kycScan
		)
		err := rows.Scan(
			&d.Account.ID, &d.Account.UserID, &d.Account.AccountNumber, &d.Account.AccountType,
			&d.Account.Balance, &d.Account.Status, &d.Account.NomineeName,
			&d.Account.NomineeRelationship, &d.Account.CreatedAt,
			&d.Owner.ID, &d.Owner.FullName, &d.Owner.Email, &d.Owner.PhoneNumber,
			&d.Owner.Address, &d.Owner.Role, &d.Owner.CreatedAt,
			&kyc.ID, &kyc.AadhaarNumber, &kyc.AadhaarFile, &kyc.PANNumber,
			&kyc.PANFile, &kyc.Status, &kyc.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan account details: %w", err)
		}
		d.KYC = kyc.record(d.Account.UserID)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account details: %w", err)
	}
	return out, nil
}

func scanAccount(row pgx.Row, op string) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.UserID, &a.AccountNumber, &a.AccountType, &a.Balance, &a.Status,
		&a.NomineeName, &a.NomineeRelationship, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}
