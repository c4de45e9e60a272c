package memory

import (
	"context"
	"fmt"
	"sort"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct{ s *Store }

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	var err error
	if lockErr := r.s.autocommit(ctx, func() {
		for _, existing := range r.s.users {
			if existing.PhoneNumber == u.PhoneNumber {
				err = ports.ErrDuplicatePhone
				return
			}
		}
		cp := *u
		r.s.users[u.ID] = &cp
	}); lockErr != nil {
		return lockErr
	}
	return err
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (r *UserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	var err error
	if lockErr := r.s.autocommit(ctx, func() {
		u, ok := r.s.users[id]
		if !ok {
			err = fmt.Errorf("user not found: %s", id)
			return
		}
		cp := *u
		cp.PasswordHash = passwordHash
		r.s.users[id] = &cp
	}); lockErr != nil {
		return lockErr
	}
	return err
}

func (r *UserRepo) UpdateAddress(_ context.Context, tx pgx.Tx, id uuid.UUID, address string) error {
	return r.s.within(tx, func(t *memTx) error {
		u := t.stageUser(id)
		if u == nil {
			return fmt.Errorf("user not found: %s", id)
		}
		addr := address
		u.Address = &addr
		return nil
	})
}

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct{ s *Store }

func NewAccountRepo(s *Store) *AccountRepo { return &AccountRepo{s: s} }

func (r *AccountRepo) Create(_ context.Context, tx pgx.Tx, a *domain.Account) error {
	return r.s.within(tx, func(t *memTx) error {
		if t.findAccount(func(e *domain.Account) bool { return e.UserID == a.UserID }) != nil {
			return ports.ErrDuplicateOwner
		}
		if t.findAccount(func(e *domain.Account) bool { return e.AccountNumber == a.AccountNumber }) != nil {
			return ports.ErrDuplicateAccountNumber
		}
		if a.Balance < 0 {
			return ErrNegativeBalance
		}
		cp := *a
		t.accounts[a.ID] = &cp
		return nil
	})
}

func (r *AccountRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if a, ok := r.s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *AccountRepo) GetByOwner(_ context.Context, userID uuid.UUID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(a *domain.Account) bool { return a.UserID == userID }), nil
}

func (r *AccountRepo) GetByNumber(_ context.Context, number string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(func(a *domain.Account) bool { return a.AccountNumber == number }), nil
}

// GetByNumberForUpdate reads through tx. The writer semaphore held by tx
// stands in for the row lock.
func (r *AccountRepo) GetByNumberForUpdate(_ context.Context, tx pgx.Tx, number string) (*domain.Account, error) {
	var found *domain.Account
	err := r.s.within(tx, func(t *memTx) error {
		found = t.findAccount(func(a *domain.Account) bool { return a.AccountNumber == number })
		return nil
	})
	return found, err
}

func (r *AccountRepo) LockByNumbers(_ context.Context, tx pgx.Tx, numbers ...string) (map[string]*domain.Account, error) {
	out := make(map[string]*domain.Account, len(numbers))
	err := r.s.within(tx, func(t *memTx) error {
		for _, n := range numbers {
			if a := t.findAccount(func(a *domain.Account) bool { return a.AccountNumber == n }); a != nil {
				out[n] = a
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AccountRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.AccountStatus) (bool, error) {
	var ok bool
	err := r.s.autocommit(ctx, func() {
		a, found := r.s.accounts[id]
		if !found || a.Status != from {
			return
		}
		cp := *a
		cp.Status = to
		r.s.accounts[id] = &cp
		ok = true
	})
	return ok, err
}

func (r *AccountRepo) AdjustBalance(_ context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := r.s.within(tx, func(t *memTx) error {
		current := t.account(id)
		if current == nil {
			return fmt.Errorf("account not found: %s", id)
		}
		if current.Balance+delta < 0 {
			return ErrNegativeBalance
		}
		a := t.stageAccount(id)
		a.Balance += delta
		balance = a.Balance
		return nil
	})
	return balance, err
}

func (r *AccountRepo) ListDetails(_ context.Context) ([]domain.AccountDetails, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.AccountDetails, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		d := domain.AccountDetails{Account: *a}
		if u, ok := r.s.users[a.UserID]; ok {
			d.Owner = *u
		}
		if k, ok := r.s.kyc[a.UserID]; ok {
			cp := *k
			d.KYC = &cp
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Account, out[j].Account
		if !ai.CreatedAt.Equal(aj.CreatedAt) {
			return ai.CreatedAt.After(aj.CreatedAt)
		}
		return ai.ID.String() > aj.ID.String()
	})
	return out, nil
}

// find must be called with mu held.
func (r *AccountRepo) find(match func(*domain.Account) bool) *domain.Account {
	for _, a := range r.s.accounts {
		if match(a) {
			cp := *a
			return &cp
		}
	}
	return nil
}

// KYCRepo implements ports.KYCRepository.
type KYCRepo struct{ s *Store }

func NewKYCRepo(s *Store) *KYCRepo { return &KYCRepo{s: s} }

func (r *KYCRepo) Create(_ context.Context, tx pgx.Tx, k *domain.KYCRecord) error {
	return r.s.within(tx, func(t *memTx) error {
		if t.hasKYC(k.UserID) {
			return ports.ErrDuplicateKYC
		}
		cp := *k
		t.kyc[k.UserID] = &cp
		return nil
	})
}

func (r *KYCRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*domain.KYCRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if k, ok := r.s.kyc[userID]; ok {
		cp := *k
		return &cp, nil
	}
	return nil, nil
}

// TransactionRepo implements ports.TransactionRepository. Rows are never mutated and
// become visible at Commit.
type TransactionRepo struct{ s *Store }

func NewTransactionRepo(s *Store) *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return r.s.within(tx, func(mt *memTx) error {
		if t.Amount <= 0 {
			return fmt.Errorf("insert transaction: amount must be positive")
		}
		mt.ledger = append(mt.ledger, *t)
		return nil
	})
}

func (r *TransactionRepo) ListByAccountNumber(_ context.Context, number string) ([]domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool {
		return t.SenderAccount == number || (t.ReceiverAccount != nil && *t.ReceiverAccount == number)
	}), nil
}

func (r *TransactionRepo) List(_ context.Context, txType *domain.TransactionType) ([]domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool {
		return txType == nil || t.Type == *txType
	}), nil
}

func (r *TransactionRepo) filter(keep func(*domain.Transaction) bool) []domain.Transaction {
	r.s.mu.RLock()
	out := []domain.Transaction{}
	for i := range r.s.ledger {
		if keep(&r.s.ledger[i]) {
			out = append(out, r.s.ledger[i])
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ s *Store }

func NewAuditRepo(s *Store) *AuditRepo { return &AuditRepo{s: s} }

func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.audit = append(r.s.audit, *log)
	return nil
}

// Entries returns a snapshot of the audit log.
func (r *AuditRepo) Entries() []domain.AuditLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.s.audit...)
}
