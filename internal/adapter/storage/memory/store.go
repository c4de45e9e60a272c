// Package memory is an in-process storage adapter. It mirrors the Postgres
// schema constraints (unique keys, non-negative balance, append-only ledger)
// and serializes transactions. Writes made inside a transaction are staged on
// it and become visible to other readers only at Commit.
package memory

import (
	"context"
	"errors"
	"sync"

	"retail-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNegativeBalance = errors.New("balance would become negative")
	ErrForeignTx       = errors.New("memory: transaction was not started by this store")
)

// Store holds the committed tables. sem admits one writer at a time, the
// way row locks do in Postgres; mu guards the maps themselves.
type Store struct {
	sem chan struct{}

	mu       sync.RWMutex
	users    map[uuid.UUID]*domain.User
	accounts map[uuid.UUID]*domain.Account
	kyc      map[uuid.UUID]*domain.KYCRecord // keyed by user id
	ledger   []domain.Transaction
	audit    []domain.AuditLog
}

func NewStore() *Store {
	return &Store{
		sem:      make(chan struct{}, 1),
		users:    make(map[uuid.UUID]*domain.User),
		accounts: make(map[uuid.UUID]*domain.Account),
		kyc:      make(map[uuid.UUID]*domain.KYCRecord),
	}
}

// Begin implements ports.DBTransactor. It waits for the running writer and
// gives up when ctx is done.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	return &memTx{
		store:    s,
		users:    make(map[uuid.UUID]*domain.User),
		accounts: make(map[uuid.UUID]*domain.Account),
		kyc:      make(map[uuid.UUID]*domain.KYCRecord),
	}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Name() string { return "memory" }

func (s *Store) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.sem }

// autocommit runs fn as a single-statement transaction against committed state.
func (s *Store) autocommit(ctx context.Context, fn func()) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return nil
}

// memTx stages changed rows. Lookups inside the transaction see staged rows
// first, then committed ones. Only Commit and Rollback are implemented; the
// embedded interface is nil.
type memTx struct {
	pgx.Tx
	store    *Store
	users    map[uuid.UUID]*domain.User
	accounts map[uuid.UUID]*domain.Account
	kyc      map[uuid.UUID]*domain.KYCRecord
	ledger   []domain.Transaction
	done     bool
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	for id, u := range t.users {
		s.users[id] = u
	}
	for id, a := range t.accounts {
		s.accounts[id] = a
	}
	for id, k := range t.kyc {
		s.kyc[id] = k
	}
	s.ledger = append(s.ledger, t.ledger...)
	s.mu.Unlock()

	t.discard()
	s.release()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.discard()
	t.store.release()
	return nil
}

func (t *memTx) discard() {
	t.users, t.accounts, t.kyc, t.ledger = nil, nil, nil, nil
}

// account returns the row as this transaction sees it, or nil.
// Must be called with store.mu held.
func (t *memTx) account(id uuid.UUID) *domain.Account {
	if a, ok := t.accounts[id]; ok {
		return a
	}
	return t.store.accounts[id]
}

// stageAccount returns a private copy of the row that Commit will publish.
// Must be called with store.mu held.
func (t *memTx) stageAccount(id uuid.UUID) *domain.Account {
	if a, ok := t.accounts[id]; ok {
		return a
	}
	committed, ok := t.store.accounts[id]
	if !ok {
		return nil
	}
	cp := *committed
	t.accounts[id] = &cp
	return &cp
}

// findAccount returns a copy of the first visible account matching.
// Must be called with store.mu held.
func (t *memTx) findAccount(match func(*domain.Account) bool) *domain.Account {
	for _, a := range t.accounts {
		if match(a) {
			cp := *a
			return &cp
		}
	}
	for id, a := range t.store.accounts {
		if _, staged := t.accounts[id]; staged {
			continue
		}
		if match(a) {
			cp := *a
			return &cp
		}
	}
	return nil
}

// stageUser returns a private copy of the user row. Must be called with store.mu held.
func (t *memTx) stageUser(id uuid.UUID) *domain.User {
	if u, ok := t.users[id]; ok {
		return u
	}
	committed, ok := t.store.users[id]
	if !ok {
		return nil
	}
	cp := *committed
	t.users[id] = &cp
	return &cp
}

func (t *memTx) hasKYC(userID uuid.UUID) bool {
	if _, ok := t.kyc[userID]; ok {
		return true
	}
	_, ok := t.store.kyc[userID]
	return ok
}

// within runs fn against tx's staged view while holding a read lock on the
// committed tables. Committed state only changes under the writer semaphore,
// which tx holds, so a read lock is enough.
func (s *Store) within(tx pgx.Tx, fn func(t *memTx) error) error {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return ErrForeignTx
	}
	if mt.done {
		return pgx.ErrTxClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(mt)
}
