package domain

import (
	"time"

	"github.com/google/uuid"
)

// KYCStatusPending is the only status ever written. Approval never reads it.
const KYCStatusPending = "pending"

// KYCRecord holds identity-document metadata submitted with an application.
type KYCRecord struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	AadhaarNumber string    `json:"aadhar_number"`
	AadhaarFile   string    `json:"aadhar_file"`
	PANNumber     string    `json:"pan_number"`
	PANFile       string    `json:"pan_file"`
	Status        string    `json:"status"`
	SubmittedAt   time.Time `json:"submitted_at"`
}
