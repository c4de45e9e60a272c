package postgres

import (
	"context"
	"fmt"

	"retail-bank/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, reference, sender_account, receiver_account, amount, type, status, description, created_at`

// TransactionRepo implements ports.TransactionRepository.
// The table is append-only; a trigger rejects UPDATE and DELETE.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a ledger row within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Reference, t.SenderAccount, t.ReceiverAccount,
		t.Amount, t.Type, t.Status, t.Description, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByAccountNumber returns rows where number is sender or receiver, newest first.
func (r *TransactionRepo) ListByAccountNumber(ctx context.Context, number string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE sender_account = $1 OR receiver_account = $1
		ORDER BY created_at DESC, id DESC`

	return r.list(ctx, "list transactions by account", query, number)
}

// List returns every row, optionally restricted to one type, newest first.
func (r *TransactionRepo) List(ctx context.Context, txType *domain.TransactionType) ([]domain.Transaction, error) {
	var args []any
	where := ""
	if txType != nil {
		where = "WHERE type = $1"
		args = append(args, *txType)
	}
	query := fmt.Sprintf(`SELECT %s FROM transactions %s ORDER BY created_at DESC, id DESC`, transactionColumns, where)

	return r.list(ctx, "list transactions", query, args...)
}

func (r *TransactionRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.Reference, &t.SenderAccount, &t.ReceiverAccount,
			&t.Amount, &t.Type, &t.Status, &t.Description, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}
