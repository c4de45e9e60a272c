package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// KYCRepo implements ports.KYCRepository.
type KYCRepo struct {
	pool Pool
}

func NewKYCRepo(pool Pool) *KYCRepo {
	return &KYCRepo{pool: pool}
}

// Create inserts a KYC record inside the application transaction.
func (r *KYCRepo) Create(ctx context.Context, tx pgx.Tx, k *domain.KYCRecord) error {
	query := `INSERT INTO kyc_documents (id, user_id, aadhaar_number, aadhaar_file, pan_number, pan_file, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		k.ID, k.UserID, k.AadhaarNumber, k.AadhaarFile,
		k.PANNumber, k.PANFile, k.Status, k.SubmittedAt,
	)
	if err != nil {
		return mapConstraintError("insert kyc", err)
	}
	return nil
}

func (r *KYCRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.KYCRecord, error) {
	query := `SELECT id, user_id, aadhaar_number, aadhaar_file, pan_number, pan_file, status, submitted_at
		FROM kyc_documents WHERE user_id = $1`

	k := &domain.KYCRecord{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&k.ID, &k.UserID, &k.AadhaarNumber, &k.AadhaarFile,
		&k.PANNumber, &k.PANFile, &k.Status, &k.SubmittedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get kyc by user: %w", err)
	}
	return k, nil
}

// kycScan receives the nullable side of a LEFT JOIN on kyc_documents.
type kycScan struct {
	ID            *uuid.UUID
	AadhaarNumber *string
	AadhaarFile   *string
	PANNumber     *string
	PANFile       *string
	Status        *string
	SubmittedAt   *time.Time
}

func (k kycScan) record(userID uuid.UUID) *domain.KYCRecord {
	if k.ID == nil {
		return nil
	}
	return &domain.KYCRecord{
		ID:            *k.ID,
		UserID:        userID,
		AadhaarNumber: deref(k.AadhaarNumber),
		AadhaarFile:   deref(k.AadhaarFile),
		PANNumber:     deref(k.PANNumber),
		PANFile:       deref(k.PANFile),
		Status:        deref(k.Status),
		SubmittedAt:   derefTime(k.SubmittedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
