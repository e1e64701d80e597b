package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/money"
)

// Deposit/withdrawal request status enum.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// DepositRequest is a user-initiated top-up. The wallet is credited
// optimistically at request time; admin review reconciles the amount.
type DepositRequest struct {
	ID            uuid.UUID   `json:"id"`
	UserID        uuid.UUID   `json:"user_id"`
	Amount        money.Cents `json:"amount"`
	Method        string      `json:"method"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	Status        string      `json:"status"`
	RequestedAt   time.Time   `json:"requested_at"`
	ReviewedAt    *time.Time  `json:"reviewed_at,omitempty"`
}

// WithdrawalRequest moves funds balance→escrow at request time; admin approval
// releases them out of the system, rejection returns them.
type WithdrawalRequest struct {
	ID            uuid.UUID   `json:"id"`
	UserID        uuid.UUID   `json:"user_id"`
	Amount        money.Cents `json:"amount"`
	Method        string      `json:"method"`
	AccountNumber string      `json:"account_number"`
	TransactionID uuid.UUID   `json:"transaction_id"`
	Status        string      `json:"status"`
	RequestedAt   time.Time   `json:"requested_at"`
	ReviewedAt    *time.Time  `json:"reviewed_at,omitempty"`
}

// PaymentMethod is an admin-configured deposit/withdrawal channel shown to users.
type PaymentMethod struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // deposit | withdrawal | both
	Details   string    `json:"details"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
